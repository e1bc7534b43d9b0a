package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
)

// requestID returns the id logger.GinMiddleware assigned to the request
func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// abortWithError stops the chain with the standard error envelope
func abortWithError(c *gin.Context, err error) {
	status, info := dto.ErrorFrom(err)
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(info, requestID(c)))
}
