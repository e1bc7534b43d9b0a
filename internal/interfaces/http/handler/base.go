package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
	"github.com/pharmacy/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID returns the id assigned by the logging middleware
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(logger.RequestIDHeader)
}

// branch returns the organization, branch and user the request runs for
func branch(c *gin.Context) shared.BranchContext {
	return middleware.Branch(c)
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with an explicit status
func (h *BaseHandler) Error(c *gin.Context, status int, info dto.ErrorInfo) {
	c.JSON(status, dto.NewErrorResponse(info, getRequestID(c)))
}

// HandleError maps err to its status and envelope. Internal errors are logged
// with their cause, since the client only sees a generic message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, info := dto.ErrorFrom(err)
	if status >= http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("request failed", zap.Error(err))
	}
	_ = c.Error(err)
	h.Error(c, status, info)
}

// BindJSON decodes the request body into req. Field rule failures arrive as an
// INVALID_REQUEST domain error from the shared validator; undecodable bodies are
// reported as INVALID_JSON. Returns false when a response was already written.
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.bindFailed(c, err)
		return false
	}
	return true
}

// DecodeJSON decodes the request body without running field rules, for handlers
// that complete the request from the path before the service validates it
func (h *BaseHandler) DecodeJSON(c *gin.Context, req any) bool {
	if c.Request.Body == nil {
		h.bindFailed(c, io.EOF)
		return false
	}
	if err := json.NewDecoder(c.Request.Body).Decode(req); err != nil {
		h.bindFailed(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) bindFailed(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case shared.IsValidation(err):
		h.HandleError(c, err)
	case errors.As(err, &tooLarge):
		h.HandleError(c, shared.NewValidationError(dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size").
			WithDetail("max_bytes", tooLarge.Limit))
	default:
		h.Error(c, http.StatusBadRequest, dto.ErrorInfo{
			Kind:    string(shared.KindValidation),
			Code:    dto.ErrCodeInvalidJSON,
			Message: err.Error(),
		})
	}
}

// BindQuery decodes query parameters into req
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		if shared.IsValidation(err) {
			h.HandleError(c, err)
		} else {
			h.HandleError(c, shared.NewValidationError("INVALID_QUERY", err.Error()))
		}
		return false
	}
	return true
}
