package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore returns a store whose clock is advanced by hand
func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *time.Time) {
	t.Helper()
	s := NewInMemoryIdempotencyStore(time.Hour)
	t.Cleanup(func() { _ = s.Close() })
	now := time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestInMemoryIdempotencyStore_Claim(t *testing.T) {
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		s, _ := newTestStore(t)
		ok, err := s.Claim(ctx, "sale-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Claim(ctx, "sale-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)

		claimed, err := s.IsClaimed(ctx, "sale-1")
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("expired claim can be retaken", func(t *testing.T) {
		s, now := newTestStore(t)
		ok, _ := s.Claim(ctx, "pur-1", time.Minute)
		require.True(t, ok)

		*now = now.Add(time.Minute)
		claimed, _ := s.IsClaimed(ctx, "pur-1")
		assert.False(t, claimed)
		ok, _ = s.Claim(ctx, "pur-1", time.Minute)
		assert.True(t, ok)
	})

	t.Run("release frees the key", func(t *testing.T) {
		s, _ := newTestStore(t)
		ok, _ := s.Claim(ctx, "pay-1", time.Hour)
		require.True(t, ok)
		require.NoError(t, s.Release(ctx, "pay-1"))

		ok, _ = s.Claim(ctx, "pay-1", time.Hour)
		assert.True(t, ok)
	})
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore(t)
	_, _ = s.Claim(ctx, "short", time.Minute)
	_, _ = s.Claim(ctx, "long", time.Hour)
	require.Equal(t, 2, s.Size())

	*now = now.Add(2 * time.Minute)
	s.cleanup()
	assert.Equal(t, 1, s.Size())
	claimed, _ := s.IsClaimed(ctx, "long")
	assert.True(t, claimed)
}

func TestInMemoryIdempotencyStore_ConcurrentClaims(t *testing.T) {
	s := NewInMemoryIdempotencyStore(time.Hour)
	defer s.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Claim(context.Background(), "sale-42", time.Hour); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	s := NewInMemoryIdempotencyStore(time.Millisecond)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
