package dto

import (
	"errors"
	"net/http"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// Error codes raised by the HTTP layer itself
const (
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeRequestTooLarge  = "REQUEST_TOO_LARGE"
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// kindStatus maps each error kind to its HTTP status
var kindStatus = map[shared.ErrorKind]int{
	shared.KindValidation:        http.StatusBadRequest,
	shared.KindNotFound:          http.StatusNotFound,
	shared.KindConflict:          http.StatusConflict,
	shared.KindInsufficientStock: http.StatusUnprocessableEntity,
	shared.KindInternal:          http.StatusInternalServerError,
}

// codeStatus overrides the kind mapping for codes that need a more precise status
var codeStatus = map[string]int{
	shared.ErrAlreadyExists.Code: http.StatusConflict,
	ErrCodeDuplicateRequest:      http.StatusConflict,
	ErrCodeRequestTooLarge:       http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status for an error kind and code.
// Unknown kinds map to 500.
func GetHTTPStatus(kind shared.ErrorKind, code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorFrom converts an error into its response body and status.
// Internal errors never leak their message.
func ErrorFrom(err error) (int, ErrorInfo) {
	var de *shared.DomainError
	if !errors.As(err, &de) || de.Kind == shared.KindInternal {
		return http.StatusInternalServerError, ErrorInfo{
			Kind:    string(shared.KindInternal),
			Code:    ErrCodeInternal,
			Message: "An unexpected error occurred",
		}
	}
	return GetHTTPStatus(de.Kind, de.Code), ErrorInfo{
		Kind:    string(de.Kind),
		Code:    de.Code,
		Message: de.Message,
		Details: de.Details,
	}
}
