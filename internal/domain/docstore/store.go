// Package docstore defines the optimistic, multi-document transactional store
// the inventory engine runs against.
//
// A transaction reads first and writes last: every Get and Query must happen before
// the first staged Set, Update or Delete. Staged writes are invisible until Commit.
// Commit fails with a conflict (shared.KindConflict) if any document read, or any
// collection queried, was changed by another transaction after it was read.
package docstore

import (
	"context"
)

// Store opens transactions
type Store interface {
	Begin(ctx context.Context) (Txn, error)
}

// Txn is one optimistic transaction attempt
type Txn interface {
	// Get reads a document. Returns a shared.KindNotFound error if absent.
	Get(ctx context.Context, path Path) (*Document, error)

	// Query reads the documents of one collection matching the query
	Query(ctx context.Context, q Query) ([]*Document, error)

	// Set stages a create-or-replace of a whole document
	Set(path Path, data any) error

	// Update stages field updates on an existing document.
	// Commit fails with shared.KindNotFound if the document does not exist then.
	Update(path Path, updates ...FieldUpdate) error

	// Delete stages removal of a document. Deleting a missing document is a no-op.
	Delete(path Path) error

	// Commit atomically applies every staged write
	Commit(ctx context.Context) error

	// Rollback discards the transaction. Safe to call after Commit.
	Rollback(ctx context.Context) error
}

// WriteKind enumerates staged write operations
type WriteKind int

const (
	WriteSet WriteKind = iota
	WriteUpdate
	WriteDelete
)

// Write is a staged mutation, kept in staging order
type Write struct {
	Kind    WriteKind
	Path    Path
	Data    map[string]any
	Updates []FieldUpdate
}

// WriteBuffer collects staged writes and enforces the reads-before-writes rule.
// Store implementations embed it.
type WriteBuffer struct {
	writes []Write
}

// Writes returns the staged writes in order
func (b *WriteBuffer) Writes() []Write { return b.writes }

// HasWrites reports whether anything has been staged
func (b *WriteBuffer) HasWrites() bool { return len(b.writes) > 0 }

// StageSet stages a Set
func (b *WriteBuffer) StageSet(path Path, data any) error {
	if !path.IsDocument() {
		return ErrNotDocument(path)
	}
	encoded, err := Encode(data)
	if err != nil {
		return err
	}
	b.writes = append(b.writes, Write{Kind: WriteSet, Path: path, Data: encoded})
	return nil
}

// StageUpdate stages an Update
func (b *WriteBuffer) StageUpdate(path Path, updates []FieldUpdate) error {
	if !path.IsDocument() {
		return ErrNotDocument(path)
	}
	if len(updates) == 0 {
		return nil
	}
	cp := make([]FieldUpdate, len(updates))
	copy(cp, updates)
	b.writes = append(b.writes, Write{Kind: WriteUpdate, Path: path, Updates: cp})
	return nil
}

// StageDelete stages a Delete
func (b *WriteBuffer) StageDelete(path Path) error {
	if !path.IsDocument() {
		return ErrNotDocument(path)
	}
	b.writes = append(b.writes, Write{Kind: WriteDelete, Path: path})
	return nil
}
