package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testBatches = docstore.Join("organizations", "o1", "branches", "b1", "medicines", "m1", "batches")
	testMed     = docstore.Join("organizations", "o1", "branches", "b1", "medicines", "m1")
)

// seed commits the given documents in one transaction
func seed(t *testing.T, store docstore.Store, docs map[docstore.Path]map[string]any) {
	t.Helper()
	ctx := context.Background()
	txn, err := store.Begin(ctx)
	require.NoError(t, err)
	for p, data := range docs {
		require.NoError(t, txn.Set(p, data))
	}
	require.NoError(t, txn.Commit(ctx))
}

// read fetches one document in its own transaction
func read(t *testing.T, store docstore.Store, p docstore.Path) (*docstore.Document, error) {
	t.Helper()
	ctx := context.Background()
	txn, err := store.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback(ctx)
	return txn.Get(ctx, p)
}

// runStoreContract exercises the behaviour every docstore.Store must share
func runStoreContract(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	ctx := context.Background()

	t.Run("set then get round trips exact numbers", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, map[docstore.Path]map[string]any{
			testMed: {"name": "Paracetamol", "quantityInStock": 30, "unitPrice": decimal.RequireFromString("12.345")},
		})

		doc, err := read(t, store, testMed)
		require.NoError(t, err)
		assert.Equal(t, "Paracetamol", doc.Data["name"])
		assert.Equal(t, json.Number("30"), doc.Data["quantityInStock"])
		assert.Equal(t, "12.345", doc.Data["unitPrice"])
		assert.Positive(t, doc.Version)

		_, err = read(t, store, testBatches.Doc("missing"))
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("reads after writes are rejected", func(t *testing.T) {
		store := newStore(t)
		txn, err := store.Begin(ctx)
		require.NoError(t, err)
		defer txn.Rollback(ctx)

		require.NoError(t, txn.Set(testMed, map[string]any{"name": "x"}))
		_, err = txn.Get(ctx, testMed)
		assert.True(t, errors.Is(err, docstore.ErrReadAfterWrite))
		_, err = txn.Query(ctx, docstore.Query{Collection: testBatches})
		assert.True(t, errors.Is(err, docstore.ErrReadAfterWrite))
	})

	t.Run("increments are applied in order", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, map[docstore.Path]map[string]any{testMed: {"quantityInStock": 10}})

		txn, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, txn.Update(testMed, docstore.IncrementInt("quantityInStock", -4)))
		require.NoError(t, txn.Update(testMed, docstore.IncrementInt("quantityInStock", 1), docstore.Value("status", "ACTIVE")))
		require.NoError(t, txn.Commit(ctx))

		doc, err := read(t, store, testMed)
		require.NoError(t, err)
		assert.Equal(t, json.Number("7"), doc.Data["quantityInStock"])
		assert.Equal(t, "ACTIVE", doc.Data["status"])
	})

	t.Run("update of a missing document fails the whole commit", func(t *testing.T) {
		store := newStore(t)
		txn, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, txn.Set(testBatches.Doc("b1"), map[string]any{"quantityAvailable": 5}))
		require.NoError(t, txn.Update(testMed, docstore.IncrementInt("quantityInStock", 5)))

		err = txn.Commit(ctx)
		require.Error(t, err)
		assert.True(t, shared.IsNotFound(err))

		_, err = read(t, store, testBatches.Doc("b1"))
		assert.True(t, shared.IsNotFound(err), "partial write must not be visible")
	})

	t.Run("concurrent write to a read document conflicts", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, map[docstore.Path]map[string]any{testMed: {"quantityInStock": 5}})

		first, err := store.Begin(ctx)
		require.NoError(t, err)
		_, err = first.Get(ctx, testMed)
		require.NoError(t, err)

		second, err := store.Begin(ctx)
		require.NoError(t, err)
		_, err = second.Get(ctx, testMed)
		require.NoError(t, err)
		require.NoError(t, second.Update(testMed, docstore.IncrementInt("quantityInStock", -5)))
		require.NoError(t, second.Commit(ctx))

		require.NoError(t, first.Update(testMed, docstore.IncrementInt("quantityInStock", -5)))
		err = first.Commit(ctx)
		require.Error(t, err)
		assert.True(t, shared.IsConflict(err), "got %v", err)

		doc, err := read(t, store, testMed)
		require.NoError(t, err)
		assert.Equal(t, json.Number("0"), doc.Data["quantityInStock"])
	})

	t.Run("insert into a queried collection conflicts", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, map[docstore.Path]map[string]any{
			testMed:              {"quantityInStock": 5},
			testBatches.Doc("b1"): {"quantityAvailable": 5, "expiryDate": "2025-01-01T00:00:00Z"},
		})

		first, err := store.Begin(ctx)
		require.NoError(t, err)
		docs, err := first.Query(ctx, docstore.Query{Collection: testBatches})
		require.NoError(t, err)
		require.Len(t, docs, 1)

		second, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, second.Set(testBatches.Doc("b2"), map[string]any{"quantityAvailable": 3}))
		require.NoError(t, second.Commit(ctx))

		require.NoError(t, first.Update(testMed, docstore.IncrementInt("quantityInStock", -1)))
		err = first.Commit(ctx)
		require.Error(t, err)
		assert.True(t, shared.IsConflict(err), "got %v", err)
	})

	t.Run("query filters and orders", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, map[docstore.Path]map[string]any{
			testBatches.Doc("b1"): {"quantityAvailable": 10, "expiryDate": "2025-06-01T00:00:00Z"},
			testBatches.Doc("b2"): {"quantityAvailable": 0, "expiryDate": "2024-06-01T00:00:00Z"},
			testBatches.Doc("b3"): {"quantityAvailable": 4, "expiryDate": "2025-01-01T00:00:00Z"},
			testMed:               {"quantityInStock": 14},
		})

		txn, err := store.Begin(ctx)
		require.NoError(t, err)
		defer txn.Rollback(ctx)
		docs, err := txn.Query(ctx, docstore.Query{
			Collection: testBatches,
			Filters:    []docstore.Filter{docstore.Where("quantityAvailable", docstore.OpGreater, 0)},
			OrderBy:    []docstore.Order{{Field: "expiryDate", Direction: docstore.Asc}},
		})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "b3", docs[0].ID())
		assert.Equal(t, "b1", docs[1].ID())
	})

	t.Run("delete removes the document", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, map[docstore.Path]map[string]any{testBatches.Doc("b1"): {"quantityAvailable": 1}})

		txn, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, txn.Delete(testBatches.Doc("b1")))
		require.NoError(t, txn.Delete(testBatches.Doc("never-existed")))
		require.NoError(t, txn.Commit(ctx))

		_, err = read(t, store, testBatches.Doc("b1"))
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("finished transactions cannot be reused", func(t *testing.T) {
		store := newStore(t)
		txn, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, txn.Commit(ctx))

		assert.ErrorIs(t, txn.Set(testMed, map[string]any{}), docstore.ErrTxnClosed)
		assert.ErrorIs(t, txn.Commit(ctx), docstore.ErrTxnClosed)
		assert.NoError(t, txn.Rollback(ctx))
	})
}
