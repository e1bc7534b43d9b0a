package persistence

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) docstore.Store { return NewMemoryStore() })
}

func TestMemoryStore_ReadOfNewerCommitConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed(t, store, map[docstore.Path]map[string]any{testMed: {"quantityInStock": 1}})

	stale, err := store.Begin(ctx)
	require.NoError(t, err)

	fresh, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, fresh.Update(testMed, docstore.IncrementInt("quantityInStock", 1)))
	require.NoError(t, fresh.Commit(ctx))

	_, err = stale.Get(ctx, testMed)
	assert.True(t, shared.IsConflict(err))

	_, err = stale.Query(ctx, docstore.Query{Collection: testMed.Collection()})
	assert.True(t, shared.IsConflict(err))
}

func TestMemoryStore_ReadOnlyCommitNeverConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed(t, store, map[docstore.Path]map[string]any{testMed: {"quantityInStock": 1}})

	reader, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = reader.Get(ctx, testMed)
	require.NoError(t, err)

	seed(t, store, map[docstore.Path]map[string]any{testMed: {"quantityInStock": 2}})
	assert.NoError(t, reader.Commit(ctx))
}

func TestMemoryStore_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed(t, store, map[docstore.Path]map[string]any{testMed: {"quantityInStock": 0}})

	const workers = 20
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				txn, err := store.Begin(ctx)
				if err != nil {
					return err
				}
				if _, err := txn.Get(ctx, testMed); err != nil {
					if shared.IsConflict(err) {
						continue
					}
					return err
				}
				if err := txn.Update(testMed, docstore.IncrementInt("quantityInStock", 1)); err != nil {
					return err
				}
				err = txn.Commit(ctx)
				if shared.IsConflict(err) {
					continue
				}
				return err
			}
		})
	}
	require.NoError(t, g.Wait())

	doc, err := read(t, store, testMed)
	require.NoError(t, err)
	assert.Equal(t, json.Number("20"), doc.Data["quantityInStock"])
	assert.Equal(t, int64(workers+1), store.Sequence())
}

func TestMemoryStore_SnapshotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed(t, store, map[docstore.Path]map[string]any{testMed: {"tags": []any{"a"}}})

	doc, err := read(t, store, testMed)
	require.NoError(t, err)
	doc.Data["tags"].([]any)[0] = "mutated"

	again, err := read(t, store, testMed)
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, again.Data["tags"])

	txn, err := store.Begin(ctx)
	require.NoError(t, err)
	assert.True(t, shared.IsValidation(txn.Set(testBatches, map[string]any{})))
}
