package cache

import (
	"context"
	"fmt"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory creates idempotency stores based on configuration
type IdempotencyStoreFactory struct {
	redisConfig config.RedisConfig
	logger      *zap.Logger

	// connect is swapped in tests
	connect func(ctx context.Context, opts *redis.Options) (shared.IdempotencyStore, error)
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(cfg config.RedisConfig, logger *zap.Logger) *IdempotencyStoreFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotencyStoreFactory{
		redisConfig: cfg,
		logger:      logger,
		connect: func(ctx context.Context, opts *redis.Options) (shared.IdempotencyStore, error) {
			return NewRedisIdempotencyStore(ctx, opts)
		},
	}
}

// CreateStore returns a Redis store, or an in-memory one when Redis is unreachable
// and requireRedis is false. An in-memory store does not share claims across instances.
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context, requireRedis bool) (shared.IdempotencyStore, error) {
	store, err := f.connect(ctx, &redis.Options{
		Addr:     f.redisConfig.RedisAddr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis idempotency store", zap.String("addr", f.redisConfig.RedisAddr()))
		return store, nil
	}
	if requireRedis {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
	return NewInMemoryIdempotencyStore(0), nil
}
