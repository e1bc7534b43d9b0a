package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/interfaces/http/middleware"
)

// guarded returns the idempotency guard for a write route, or a pass-through
// when idempotency is disabled
func guarded(idem *middleware.Idempotency, idField string) gin.HandlerFunc {
	if idem == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return idem.Guard(idField)
}
