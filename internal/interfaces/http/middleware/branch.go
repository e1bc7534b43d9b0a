package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
)

// UserIDHeader names the acting user. Authentication happens in front of this service.
const UserIDHeader = "X-User-ID"

const branchContextKey = "branch_context"

// BranchScope reads the organization and branch from the route and the user from
// UserIDHeader. The resulting BranchContext is stored for handlers and its ids are
// added to the request logger.
func BranchScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		bc := shared.BranchContext{
			OrganizationID: strings.TrimSpace(c.Param("orgId")),
			BranchID:       strings.TrimSpace(c.Param("branchId")),
			UserID:         strings.TrimSpace(c.GetHeader(UserIDHeader)),
		}
		if err := bc.Validate(); err != nil {
			abortWithError(c, err)
			return
		}

		ctx := c.Request.Context()
		ctx, _ = logger.WithBranch(ctx, logger.FromContext(ctx), bc.OrganizationID, bc.BranchID, bc.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(branchContextKey, bc)
		c.Next()
	}
}

// Branch returns the BranchContext stored by BranchScope
func Branch(c *gin.Context) shared.BranchContext {
	if v, ok := c.Get(branchContextKey); ok {
		if bc, ok := v.(shared.BranchContext); ok {
			return bc
		}
	}
	return shared.BranchContext{}
}
