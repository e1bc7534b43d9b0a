package shared

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/pharmacy/backend/internal/application"

// TransactionScope runs a unit of work inside a store transaction.
// fn reads first, then stages writes; the scope commits when fn returns nil.
// fn may run more than once and must not keep state between runs.
type TransactionScope interface {
	Execute(ctx context.Context, name string, fn func(ctx context.Context, txn docstore.Txn) error) error
}

// RetryConfig bounds how conflicting transactions are retried
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryConfig returns the default retry bounds
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		BaseBackoff: 10 * time.Millisecond,
		MaxBackoff:  500 * time.Millisecond,
	}
}

// RetryingTransactionScope re-runs the whole unit of work from Begin when the store
// reports a conflict. Any other error is returned unchanged on the first occurrence.
type RetryingTransactionScope struct {
	store  docstore.Store
	config RetryConfig
	logger *zap.Logger
	tracer trace.Tracer
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryingTransactionScope creates a scope over the given store
func NewRetryingTransactionScope(store docstore.Store, config RetryConfig, logger *zap.Logger) *RetryingTransactionScope {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultRetryConfig().MaxAttempts
	}
	if config.BaseBackoff < 0 {
		config.BaseBackoff = 0
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultRetryConfig().MaxBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingTransactionScope{
		store:  store,
		config: config,
		logger: logger,
		tracer: otel.Tracer(tracerName),
		sleep:  sleepContext,
	}
}

// Execute implements TransactionScope
func (s *RetryingTransactionScope) Execute(ctx context.Context, name string, fn func(ctx context.Context, txn docstore.Txn) error) error {
	ctx, span := s.tracer.Start(ctx, "txn."+name)
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.logger.Debug("transaction attempt", zap.String("operation", name), zap.Int("attempt", attempt))
		err := s.attempt(ctx, fn)
		if err == nil {
			span.SetAttributes(attribute.Int("txn.attempts", attempt))
			return nil
		}
		if !shared.IsConflict(err) {
			span.SetAttributes(attribute.Int("txn.attempts", attempt))
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		lastErr = err
		span.AddEvent("conflict", trace.WithAttributes(attribute.Int("attempt", attempt)))
		if attempt == s.config.MaxAttempts {
			break
		}
		delay := s.backoff(attempt)
		s.logger.Warn("transaction conflict, retrying",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}

	s.logger.Warn("transaction retries exhausted",
		zap.String("operation", name),
		zap.Int("attempts", s.config.MaxAttempts),
		zap.Error(lastErr),
	)
	span.SetAttributes(attribute.Int("txn.attempts", s.config.MaxAttempts))
	span.SetStatus(codes.Error, "retries exhausted")

	var de *shared.DomainError
	if errors.As(lastErr, &de) {
		return de.WithDetail("attempts", s.config.MaxAttempts)
	}
	return lastErr
}

func (s *RetryingTransactionScope) attempt(ctx context.Context, fn func(ctx context.Context, txn docstore.Txn) error) (err error) {
	txn, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = txn.Rollback(ctx)
		}
	}()

	if err = fn(ctx, txn); err != nil {
		return err
	}
	return txn.Commit(ctx)
}

// backoff grows linearly with the attempt number plus up to one base interval of jitter
func (s *RetryingTransactionScope) backoff(attempt int) time.Duration {
	base := s.config.BaseBackoff
	if base <= 0 {
		return 0
	}
	d := base*time.Duration(attempt) + time.Duration(rand.Int64N(int64(base)))
	return min(d, s.config.MaxBackoff)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ TransactionScope = (*RetryingTransactionScope)(nil)
