package shared

import (
	"context"
	"fmt"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// EnsureAbsent fails when a document with a caller-supplied id already exists
func EnsureAbsent(ctx context.Context, txn docstore.Txn, path docstore.Path, entity string) error {
	_, err := txn.Get(ctx, path)
	switch {
	case err == nil:
		return shared.NewValidationError("ALREADY_EXISTS", fmt.Sprintf("%s %s already exists", entity, path.ID())).
			WithDetail("id", path.ID())
	case shared.IsNotFound(err):
		return nil
	default:
		return err
	}
}

// Load reads and decodes one document, reporting a missing one as entity not found
func Load[T any](ctx context.Context, txn docstore.Txn, path docstore.Path, entity string) (*T, error) {
	doc, err := txn.Get(ctx, path)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError(entity, path.ID())
		}
		return nil, err
	}
	var out T
	if err := doc.DataTo(&out); err != nil {
		return nil, shared.NewInternalError(fmt.Sprintf("corrupt %s document %s", entity, path.ID()), err)
	}
	return &out, nil
}

// Decode converts queried documents into entities
func Decode[T any](docs []*docstore.Document, entity string) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, shared.NewInternalError(fmt.Sprintf("corrupt %s document %s", entity, doc.ID()), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Begin validates the branch context and a request before any store access
func Begin(bc shared.BranchContext, req any) error {
	if err := bc.Validate(); err != nil {
		return err
	}
	if req == nil {
		return nil
	}
	return ValidateRequest(req)
}
