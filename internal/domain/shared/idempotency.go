package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys that have already been claimed.
// The HTTP layer claims a key before invoking a stock-affecting operation so that
// a client retry of the same request does not post the document twice.
type IdempotencyStore interface {
	// Claim marks the key as taken for ttl.
	// Returns true if the key was newly claimed, false if someone already holds it.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsClaimed checks if a key is currently held
	IsClaimed(ctx context.Context, key string) (bool, error)

	// Release frees a key so the request can be retried after a failure
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a claimed key blocks duplicates. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled. Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
