// Package docstoretest provides helpers for tests that stage writes on a docstore.Txn.
package docstoretest

import (
	"context"

	"github.com/pharmacy/backend/internal/domain/docstore"
)

// Recorder is a write-only docstore.Txn that keeps staged writes for inspection.
// Reads fail with docstore.ErrReadAfterWrite.
type Recorder struct {
	docstore.WriteBuffer
}

// Get implements docstore.Txn
func (r *Recorder) Get(context.Context, docstore.Path) (*docstore.Document, error) {
	return nil, docstore.ErrReadAfterWrite
}

// Query implements docstore.Txn
func (r *Recorder) Query(context.Context, docstore.Query) ([]*docstore.Document, error) {
	return nil, docstore.ErrReadAfterWrite
}

// Set implements docstore.Txn
func (r *Recorder) Set(p docstore.Path, data any) error { return r.StageSet(p, data) }

// Update implements docstore.Txn
func (r *Recorder) Update(p docstore.Path, updates ...docstore.FieldUpdate) error {
	return r.StageUpdate(p, updates)
}

// Delete implements docstore.Txn
func (r *Recorder) Delete(p docstore.Path) error { return r.StageDelete(p) }

// Commit implements docstore.Txn
func (r *Recorder) Commit(context.Context) error { return nil }

// Rollback implements docstore.Txn
func (r *Recorder) Rollback(context.Context) error { return nil }

var _ docstore.Txn = (*Recorder)(nil)
