package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentStore is the docstore.Store backed by a SQL database through GORM.
//
// Each store transaction holds one SQL transaction for its whole life, so reads see one
// snapshot (REPEATABLE READ on PostgreSQL). Commit re-reads every observed version under
// row locks and writes with "WHERE version = ?", so a concurrent writer surfaces as a conflict.
type DocumentStore struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewDocumentStore creates a store over an open database
func NewDocumentStore(db *gorm.DB, logger *zap.Logger) *DocumentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentStore{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AutoMigrate creates the document tables. Deployments run the SQL migrations instead;
// this is for SQLite and tests.
func (s *DocumentStore) AutoMigrate() error {
	return s.db.AutoMigrate(&models.DocumentModel{}, &models.CollectionVersionModel{})
}

// Begin implements docstore.Store
func (s *DocumentStore) Begin(ctx context.Context) (docstore.Txn, error) {
	var opts *sql.TxOptions
	if s.db.Dialector.Name() == "postgres" {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	}
	tx := s.db.WithContext(ctx).Begin(opts)
	if tx.Error != nil {
		return nil, translateError(tx.Error, "")
	}
	return &sqlTxn{
		store:       s,
		tx:          tx,
		reads:       make(map[docstore.Path]int64),
		collections: make(map[docstore.Path]int64),
	}, nil
}

type sqlTxn struct {
	docstore.WriteBuffer

	store       *DocumentStore
	tx          *gorm.DB
	reads       map[docstore.Path]int64
	collections map[docstore.Path]int64
	done        bool
}

func (t *sqlTxn) checkRead() error {
	if t.done {
		return docstore.ErrTxnClosed
	}
	if t.HasWrites() {
		return docstore.ErrReadAfterWrite
	}
	return nil
}

// Get implements docstore.Txn
func (t *sqlTxn) Get(ctx context.Context, path docstore.Path) (*docstore.Document, error) {
	if err := t.checkRead(); err != nil {
		return nil, err
	}
	if !path.IsDocument() {
		return nil, docstore.ErrNotDocument(path)
	}

	var row models.DocumentModel
	err := t.tx.WithContext(ctx).Where("path = ?", path.String()).Take(&row).Error
	if err != nil {
		translated := translateError(err, path)
		if shared.IsNotFound(translated) {
			t.reads[path] = 0
		}
		return nil, translated
	}
	t.reads[path] = row.Version
	return row.ToDomain()
}

// Query implements docstore.Txn. Filters run on decoded documents so the same
// semantics hold on every SQL dialect.
func (t *sqlTxn) Query(ctx context.Context, q docstore.Query) ([]*docstore.Document, error) {
	if err := t.checkRead(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	cv, err := t.collectionVersion(ctx, q.Collection, false)
	if err != nil {
		return nil, err
	}
	t.collections[q.Collection] = cv

	var rows []models.DocumentModel
	if err := t.tx.WithContext(ctx).
		Where("collection = ?", q.Collection.String()).
		Order("path").
		Find(&rows).Error; err != nil {
		return nil, translateError(err, q.Collection)
	}

	docs := make([]*docstore.Document, 0, len(rows))
	for i := range rows {
		doc, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	out, err := q.Apply(docs)
	if err != nil {
		return nil, err
	}
	for _, doc := range out {
		t.reads[doc.Path] = doc.Version
	}
	return out, nil
}

// Set implements docstore.Txn
func (t *sqlTxn) Set(path docstore.Path, data any) error {
	if t.done {
		return docstore.ErrTxnClosed
	}
	return t.StageSet(path, data)
}

// Update implements docstore.Txn
func (t *sqlTxn) Update(path docstore.Path, updates ...docstore.FieldUpdate) error {
	if t.done {
		return docstore.ErrTxnClosed
	}
	return t.StageUpdate(path, updates)
}

// Delete implements docstore.Txn
func (t *sqlTxn) Delete(path docstore.Path) error {
	if t.done {
		return docstore.ErrTxnClosed
	}
	return t.StageDelete(path)
}

// Commit implements docstore.Txn
func (t *sqlTxn) Commit(ctx context.Context) (err error) {
	if t.done {
		return docstore.ErrTxnClosed
	}
	t.done = true
	defer func() {
		if err != nil {
			t.tx.Rollback()
		}
	}()

	if t.HasWrites() {
		if err := t.validateReads(ctx); err != nil {
			return err
		}
		if err := t.applyWrites(ctx); err != nil {
			return err
		}
	}
	if err := t.tx.Commit().Error; err != nil {
		return translateError(err, "")
	}
	return nil
}

// Rollback implements docstore.Txn
func (t *sqlTxn) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return translateError(err, "")
	}
	return nil
}

func (t *sqlTxn) validateReads(ctx context.Context) error {
	for _, path := range sortedPaths(t.reads) {
		current, err := t.documentVersion(ctx, path)
		if err != nil {
			return err
		}
		if current != t.reads[path] {
			t.store.logger.Debug("read set changed",
				zap.String("path", path.String()),
				zap.Int64("read_version", t.reads[path]),
				zap.Int64("current_version", current),
			)
			return docstore.Conflict(path)
		}
	}
	for _, coll := range sortedPaths(t.collections) {
		current, err := t.collectionVersion(ctx, coll, true)
		if err != nil {
			return err
		}
		if current != t.collections[coll] {
			return docstore.Conflict(coll)
		}
	}
	return nil
}

// documentVersion returns the locked current version of a document, 0 when absent
func (t *sqlTxn) documentVersion(ctx context.Context, path docstore.Path) (int64, error) {
	var row models.DocumentModel
	err := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("path", "version").
		Where("path = ?", path.String()).
		Take(&row).Error
	if err != nil {
		translated := translateError(err, path)
		if shared.IsNotFound(translated) {
			return 0, nil
		}
		return 0, translated
	}
	return row.Version, nil
}

func (t *sqlTxn) collectionVersion(ctx context.Context, coll docstore.Path, lock bool) (int64, error) {
	var row models.CollectionVersionModel
	db := t.tx.WithContext(ctx)
	if lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := db.Where("path = ?", coll.String()).Take(&row).Error
	if err != nil {
		translated := translateError(err, coll)
		if shared.IsNotFound(translated) {
			return 0, nil
		}
		return 0, translated
	}
	return row.Version, nil
}

func (t *sqlTxn) applyWrites(ctx context.Context) error {
	now := t.store.now()
	db := t.tx.WithContext(ctx)

	// current state of touched rows, as written so far by this commit
	state := make(map[docstore.Path]*models.DocumentModel)
	load := func(path docstore.Path) (*models.DocumentModel, error) {
		if row, ok := state[path]; ok {
			return row, nil
		}
		var row models.DocumentModel
		err := db.Where("path = ?", path.String()).Take(&row).Error
		if err != nil {
			translated := translateError(err, path)
			if shared.IsNotFound(translated) {
				state[path] = nil
				return nil, nil
			}
			return nil, translated
		}
		state[path] = &row
		return &row, nil
	}

	touched := make(map[docstore.Path]int64)
	for _, w := range t.Writes() {
		current, err := load(w.Path)
		if err != nil {
			return err
		}

		switch w.Kind {
		case docstore.WriteDelete:
			if current == nil {
				continue
			}
			res := db.Where("path = ? AND version = ?", current.Path, current.Version).Delete(&models.DocumentModel{})
			if res.Error != nil {
				return translateError(res.Error, w.Path)
			}
			if res.RowsAffected == 0 {
				return docstore.Conflict(w.Path)
			}
			state[w.Path] = nil

		case docstore.WriteSet, docstore.WriteUpdate:
			data := w.Data
			if w.Kind == docstore.WriteUpdate {
				if current == nil {
					return docstore.NotFound(w.Path)
				}
				existing, err := docstore.DecodeJSON([]byte(current.Data))
				if err != nil {
					return err
				}
				if data, err = docstore.ApplyUpdates(existing, w.Updates); err != nil {
					return err
				}
			}
			raw, err := json.Marshal(data)
			if err != nil {
				return fmt.Errorf("encode document %s: %w", w.Path, err)
			}

			if current == nil {
				row := &models.DocumentModel{
					Path:       w.Path.String(),
					Collection: w.Path.Collection().String(),
					DocID:      w.Path.ID(),
					Data:       string(raw),
					Version:    1,
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := db.Create(row).Error; err != nil {
					return translateError(err, w.Path)
				}
				state[w.Path] = row
				break
			}

			res := db.Model(&models.DocumentModel{}).
				Where("path = ? AND version = ?", current.Path, current.Version).
				Updates(map[string]any{
					"data":       string(raw),
					"version":    current.Version + 1,
					"updated_at": now,
				})
			if res.Error != nil {
				return translateError(res.Error, w.Path)
			}
			if res.RowsAffected == 0 {
				return docstore.Conflict(w.Path)
			}
			next := *current
			next.Data = string(raw)
			next.Version++
			next.UpdatedAt = now
			state[w.Path] = &next
		}
		touched[w.Path.Collection()]++
	}

	for _, coll := range sortedPaths(touched) {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.Assignments(map[string]any{"version": gorm.Expr("document_collections.version + 1")}),
		}).Create(&models.CollectionVersionModel{Path: coll.String(), Version: 1}).Error
		if err != nil {
			return translateError(err, coll)
		}
	}
	return nil
}

var _ docstore.Store = (*DocumentStore)(nil)
