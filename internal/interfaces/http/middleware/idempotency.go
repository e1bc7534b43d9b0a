package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader lets a client name a write so that a retry is not posted twice
const IdempotencyKeyHeader = "Idempotency-Key"

// Idempotency claims a request key in the idempotency store before a write runs
type Idempotency struct {
	store  shared.IdempotencyStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewIdempotency creates the middleware factory. A zero ttl uses the default of 24 hours.
func NewIdempotency(store shared.IdempotencyStore, ttl time.Duration, zapLogger *zap.Logger) *Idempotency {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &Idempotency{store: store, ttl: ttl, logger: zapLogger.Named("idempotency")}
}

// Guard claims the request key before the handler runs and releases it when the
// handler fails, so a corrected retry can go through. The key is the
// Idempotency-Key header or, failing that, the idField string of the JSON body.
// Requests carrying neither are not guarded.
func (m *Idempotency) Guard(idField string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" && idField != "" {
			key = peekBodyField(c, idField)
		}
		if key == "" {
			c.Next()
			return
		}

		bc := Branch(c)
		scoped := strings.Join([]string{bc.OrganizationID, bc.BranchID, c.FullPath(), key}, ":")
		ctx := c.Request.Context()
		log := logger.L(ctx).With(zap.String("idempotency_key", key))

		claimed, err := m.store.Claim(ctx, scoped, m.ttl)
		if err != nil {
			// Store outage: caller-supplied document ids are still rejected as duplicates by the service
			log.Warn("idempotency claim failed, continuing unguarded", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			log.Info("duplicate request rejected")
			abortWithError(c, shared.NewValidationError(dto.ErrCodeDuplicateRequest,
				"A request with this key is already being processed or has completed").
				WithDetail("key", key))
			return
		}

		completed := false
		defer func() {
			if completed && c.Writer.Status() < http.StatusBadRequest {
				return
			}
			// The request context may already be cancelled
			if err := m.store.Release(context.WithoutCancel(ctx), scoped); err != nil {
				log.Warn("idempotency release failed", zap.Error(err))
			}
		}()
		c.Next()
		completed = true
	}
}

// peekBodyField reads a top-level string field from a JSON body and rewinds the body
func peekBodyField(c *gin.Context, field string) string {
	if c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		// Replay what was read followed by the read error, so the handler reports it
		c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), errReader{err}))
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if len(body) == 0 {
		return ""
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	var value string
	if raw, ok := fields[field]; !ok || json.Unmarshal(raw, &value) != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
