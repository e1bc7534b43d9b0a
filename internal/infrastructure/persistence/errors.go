package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// PostgreSQL error codes treated as a lost optimistic race
var retryablePgCodes = map[string]string{
	"40001": "serialization failure",
	"40P01": "deadlock detected",
	"55P03": "lock not available",
	"23505": "unique violation",
}

// translateError maps driver and gorm errors onto domain error kinds.
// path is the document or collection the failing statement addressed.
func translateError(err error, path docstore.Path) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return docstore.NotFound(path)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflictFrom(path, "duplicate key", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if reason, ok := retryablePgCodes[pgErr.Code]; ok {
			return conflictFrom(path, reason, err)
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch {
		case liteErr.Code == sqlite3.ErrBusy, liteErr.Code == sqlite3.ErrLocked:
			return conflictFrom(path, "database locked", err)
		case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return conflictFrom(path, "duplicate key", err)
		}
	}

	return fmt.Errorf("document store %s: %w", path, err)
}

// IsRetryable reports whether a driver error is a lost optimistic race
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := retryablePgCodes[pgErr.Code]
		return ok
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func conflictFrom(path docstore.Path, reason string, cause error) error {
	return shared.NewConflictError(fmt.Sprintf("%s: %s", path, reason), cause).
		WithDetail("path", path.String())
}
