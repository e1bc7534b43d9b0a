package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/docstore/docstoretest"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedTxn commits with a preset error
type scriptedTxn struct {
	docstoretest.Recorder
	commitErr  error
	rolledBack bool
}

func (t *scriptedTxn) Commit(context.Context) error   { return t.commitErr }
func (t *scriptedTxn) Rollback(context.Context) error { t.rolledBack = true; return nil }

// scriptedStore hands out transactions whose commits fail with the queued errors
type scriptedStore struct {
	commitErrs []error
	txns       []*scriptedTxn
}

func (s *scriptedStore) Begin(context.Context) (docstore.Txn, error) {
	txn := &scriptedTxn{}
	if n := len(s.txns); n < len(s.commitErrs) {
		txn.commitErr = s.commitErrs[n]
	}
	s.txns = append(s.txns, txn)
	return txn, nil
}

func newTestScope(store docstore.Store, attempts int) (*RetryingTransactionScope, *[]time.Duration) {
	scope := NewRetryingTransactionScope(store, RetryConfig{
		MaxAttempts: attempts,
		BaseBackoff: 10 * time.Millisecond,
		MaxBackoff:  25 * time.Millisecond,
	}, zap.NewNop())
	slept := &[]time.Duration{}
	scope.sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return scope, slept
}

func conflict() error { return docstore.Conflict(docstore.Join("medicines", "m1")) }

func TestRetryingTransactionScope_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on first attempt", func(t *testing.T) {
		store := &scriptedStore{}
		scope, slept := newTestScope(store, 3)
		runs := 0

		err := scope.Execute(ctx, "op", func(ctx context.Context, txn docstore.Txn) error {
			runs++
			return txn.Set(docstore.Join("medicines", "m1"), map[string]any{"name": "x"})
		})
		require.NoError(t, err)
		assert.Equal(t, 1, runs)
		assert.Empty(t, *slept)
		assert.False(t, store.txns[0].rolledBack)
	})

	t.Run("retries the whole unit on conflict", func(t *testing.T) {
		store := &scriptedStore{commitErrs: []error{conflict(), conflict(), nil}}
		scope, slept := newTestScope(store, 5)
		runs := 0

		err := scope.Execute(ctx, "op", func(context.Context, docstore.Txn) error {
			runs++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, runs)
		require.Len(t, store.txns, 3)
		assert.True(t, store.txns[0].rolledBack)
		assert.True(t, store.txns[1].rolledBack)
		require.Len(t, *slept, 2)
		for _, d := range *slept {
			assert.LessOrEqual(t, d, 25*time.Millisecond)
			assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		}
	})

	t.Run("conflict raised by a read is retried too", func(t *testing.T) {
		store := &scriptedStore{}
		scope, _ := newTestScope(store, 5)
		runs := 0

		err := scope.Execute(ctx, "op", func(context.Context, docstore.Txn) error {
			runs++
			if runs == 1 {
				return conflict()
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, runs)
	})

	t.Run("exhausted retries return the conflict", func(t *testing.T) {
		store := &scriptedStore{commitErrs: []error{conflict(), conflict(), conflict()}}
		scope, slept := newTestScope(store, 3)

		err := scope.Execute(ctx, "op", func(context.Context, docstore.Txn) error { return nil })
		require.Error(t, err)
		assert.True(t, shared.IsConflict(err))
		assert.Len(t, store.txns, 3)
		assert.Len(t, *slept, 2)

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 3, de.Details["attempts"])
	})

	t.Run("business errors are not retried", func(t *testing.T) {
		tests := []error{
			shared.NewValidationError("BAD", "bad"),
			shared.NewInsufficientStockError("m1", 5, 2),
			shared.NewNotFoundError("medicine", "m1"),
		}
		for _, want := range tests {
			store := &scriptedStore{}
			scope, _ := newTestScope(store, 5)

			err := scope.Execute(ctx, "op", func(context.Context, docstore.Txn) error { return want })
			assert.ErrorIs(t, err, want)
			assert.Len(t, store.txns, 1)
			assert.True(t, store.txns[0].rolledBack)
		}
	})

	t.Run("cancelled context stops between attempts", func(t *testing.T) {
		store := &scriptedStore{commitErrs: []error{conflict(), conflict()}}
		scope, _ := newTestScope(store, 5)
		cctx, cancel := context.WithCancel(ctx)
		scope.sleep = func(context.Context, time.Duration) error {
			cancel()
			return nil
		}

		err := scope.Execute(cctx, "op", func(context.Context, docstore.Txn) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, store.txns, 1)
	})
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestRetryingTransactionScope_Backoff(t *testing.T) {
	scope, _ := newTestScope(&scriptedStore{}, 5)
	base := 10 * time.Millisecond

	for attempt := 1; attempt <= 4; attempt++ {
		for range 50 {
			d := scope.backoff(attempt)
			low := min(base*time.Duration(attempt), 25*time.Millisecond)
			high := min(base*time.Duration(attempt+1), 25*time.Millisecond)
			assert.GreaterOrEqual(t, d, low, "attempt %d", attempt)
			assert.LessOrEqual(t, d, high, "attempt %d", attempt)
		}
	}

	t.Run("no base interval means no wait", func(t *testing.T) {
		scope := NewRetryingTransactionScope(&scriptedStore{}, RetryConfig{MaxAttempts: 3}, zap.NewNop())
		assert.Zero(t, scope.backoff(2))
	})
}
