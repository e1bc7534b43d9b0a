package docstore

import (
	"fmt"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// ErrReadAfterWrite is returned when a transaction reads after staging a write
var ErrReadAfterWrite = shared.NewDomainError(shared.KindInternal, "READ_AFTER_WRITE",
	"transactions must perform all reads before any writes")

// ErrTxnClosed is returned when a committed or rolled back transaction is used
var ErrTxnClosed = shared.NewDomainError(shared.KindInternal, "TXN_CLOSED", "transaction already finished")

// ErrNotDocument reports a path that does not address a document
func ErrNotDocument(p Path) error {
	return shared.NewValidationError("INVALID_PATH", fmt.Sprintf("%q is not a document path", p))
}

// NotFound builds the error returned for a missing document
func NotFound(p Path) error {
	return shared.NewNotFoundError("document", p.String())
}

// Conflict builds the error returned when a read document or collection changed concurrently
func Conflict(p Path) error {
	return shared.NewConflictError(fmt.Sprintf("%s was modified by another transaction", p), nil).
		WithDetail("path", p.String())
}
