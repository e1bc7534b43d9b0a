package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
)

type memoryDoc struct {
	data    map[string]any
	version int64 // commit sequence of the last write
	deleted bool
	created time.Time
	updated time.Time
}

// MemoryStore is an in-process optimistic document store.
//
// Every commit takes the next sequence number. A transaction remembers the sequence it
// started at; reading a document or collection written after that point is a conflict.
// Deleted documents are kept as tombstones so later readers still see the newer version.
type MemoryStore struct {
	mu          sync.Mutex
	seq         int64
	docs        map[docstore.Path]*memoryDoc
	collections map[docstore.Path]int64
	now         func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:        make(map[docstore.Path]*memoryDoc),
		collections: make(map[docstore.Path]int64),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Begin implements docstore.Store
func (s *MemoryStore) Begin(ctx context.Context) (docstore.Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memoryTxn{
		store:       s,
		start:       s.seq,
		reads:       make(map[docstore.Path]int64),
		collections: make(map[docstore.Path]int64),
	}, nil
}

// Sequence returns the number of commits so far
func (s *MemoryStore) Sequence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

type memoryTxn struct {
	docstore.WriteBuffer

	store       *MemoryStore
	start       int64
	reads       map[docstore.Path]int64
	collections map[docstore.Path]int64
	done        bool
}

func (t *memoryTxn) checkRead() error {
	if t.done {
		return docstore.ErrTxnClosed
	}
	if t.HasWrites() {
		return docstore.ErrReadAfterWrite
	}
	return nil
}

// Get implements docstore.Txn
func (t *memoryTxn) Get(ctx context.Context, path docstore.Path) (*docstore.Document, error) {
	if err := t.checkRead(); err != nil {
		return nil, err
	}
	if !path.IsDocument() {
		return nil, docstore.ErrNotDocument(path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[path]
	if !ok {
		t.reads[path] = 0
		return nil, docstore.NotFound(path)
	}
	if d.version > t.start {
		return nil, docstore.Conflict(path)
	}
	t.reads[path] = d.version
	if d.deleted {
		return nil, docstore.NotFound(path)
	}
	return d.snapshot(path), nil
}

// Query implements docstore.Txn
func (t *memoryTxn) Query(ctx context.Context, q docstore.Query) ([]*docstore.Document, error) {
	if err := t.checkRead(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	cv := s.collections[q.Collection]
	if cv > t.start {
		return nil, docstore.Conflict(q.Collection)
	}
	t.collections[q.Collection] = cv

	candidates := make([]*docstore.Document, 0)
	for path, d := range s.docs {
		if d.deleted || path.Collection() != q.Collection || !path.IsDocument() {
			continue
		}
		candidates = append(candidates, d.snapshot(path))
	}
	out, err := q.Apply(candidates)
	if err != nil {
		return nil, err
	}
	for _, doc := range out {
		t.reads[doc.Path] = doc.Version
	}
	return out, nil
}

// Set implements docstore.Txn
func (t *memoryTxn) Set(path docstore.Path, data any) error {
	if t.done {
		return docstore.ErrTxnClosed
	}
	return t.StageSet(path, data)
}

// Update implements docstore.Txn
func (t *memoryTxn) Update(path docstore.Path, updates ...docstore.FieldUpdate) error {
	if t.done {
		return docstore.ErrTxnClosed
	}
	return t.StageUpdate(path, updates)
}

// Delete implements docstore.Txn
func (t *memoryTxn) Delete(path docstore.Path) error {
	if t.done {
		return docstore.ErrTxnClosed
	}
	return t.StageDelete(path)
}

// Commit implements docstore.Txn
func (t *memoryTxn) Commit(ctx context.Context) error {
	if t.done {
		return docstore.ErrTxnClosed
	}
	t.done = true
	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.HasWrites() {
		return nil
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range sortedPaths(t.reads) {
		if current := s.versionOf(path); current != t.reads[path] {
			return docstore.Conflict(path)
		}
	}
	for _, coll := range sortedPaths(t.collections) {
		if s.collections[coll] != t.collections[coll] {
			return docstore.Conflict(coll)
		}
	}

	// Build the new state of every touched document before publishing any of it
	seq := s.seq + 1
	now := s.now()
	staged := make(map[docstore.Path]*memoryDoc)
	order := make([]docstore.Path, 0)
	lookup := func(p docstore.Path) *memoryDoc {
		if d, ok := staged[p]; ok {
			return d
		}
		if d, ok := s.docs[p]; ok && !d.deleted {
			return d
		}
		return nil
	}

	for _, w := range t.Writes() {
		current := lookup(w.Path)
		next := &memoryDoc{version: seq, created: now, updated: now}
		if current != nil {
			next.created = current.created
		}
		switch w.Kind {
		case docstore.WriteSet:
			next.data = w.Data
		case docstore.WriteUpdate:
			if current == nil {
				return docstore.NotFound(w.Path)
			}
			data, err := docstore.ApplyUpdates(current.data, w.Updates)
			if err != nil {
				return err
			}
			next.data = data
		case docstore.WriteDelete:
			next.deleted = true
		}
		if _, seen := staged[w.Path]; !seen {
			order = append(order, w.Path)
		}
		staged[w.Path] = next
	}

	for _, p := range order {
		d := staged[p]
		if d.deleted {
			if _, exists := s.docs[p]; !exists {
				continue
			}
		}
		s.docs[p] = d
		s.collections[p.Collection()] = seq
	}
	s.seq = seq
	return nil
}

// Rollback implements docstore.Txn
func (t *memoryTxn) Rollback(context.Context) error {
	t.done = true
	return nil
}

func (s *MemoryStore) versionOf(path docstore.Path) int64 {
	if d, ok := s.docs[path]; ok {
		return d.version
	}
	return 0
}

func (d *memoryDoc) snapshot(path docstore.Path) *docstore.Document {
	doc := &docstore.Document{
		Path:       path,
		Data:       d.data,
		Version:    d.version,
		CreateTime: d.created,
		UpdateTime: d.updated,
	}
	return doc.Clone()
}

func sortedPaths(m map[docstore.Path]int64) []docstore.Path {
	out := make([]docstore.Path, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var _ docstore.Store = (*MemoryStore)(nil)
