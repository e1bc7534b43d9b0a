package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error so callers can decide how to react
// without inspecting concrete types.
type ErrorKind string

const (
	// KindValidation marks a malformed request. Never retried.
	KindValidation ErrorKind = "VALIDATION"
	// KindConflict marks a write conflict detected by the store. Retryable.
	KindConflict ErrorKind = "CONFLICT"
	// KindNotFound marks a referenced entity that does not exist.
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindInsufficientStock marks a business outcome: not enough units to satisfy a request.
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	// KindInternal marks everything else.
	KindInternal ErrorKind = "INTERNAL"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind      `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// This lets errors.Is(err, ErrNotFound) match any not-found error.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail field
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error with the given code
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewNotFoundError creates a not-found error for the given entity
func NewNotFoundError(entity, id string) *DomainError {
	return NewDomainError(KindNotFound, ErrNotFound.Code, fmt.Sprintf("%s %s not found", entity, id)).
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewConflictError creates a retryable conflict error
func NewConflictError(message string, cause error) *DomainError {
	return &DomainError{
		Kind:    KindConflict,
		Code:    ErrConcurrencyConflict.Code,
		Message: message,
		cause:   cause,
	}
}

// NewInternalError wraps an unexpected failure
func NewInternalError(message string, cause error) *DomainError {
	return &DomainError{
		Kind:    KindInternal,
		Code:    "INTERNAL",
		Message: message,
		cause:   cause,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError(KindValidation, "ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError(KindValidation, "INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(KindConflict, "CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(KindValidation, "INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError(KindInsufficientStock, "INSUFFICIENT_STOCK", "Insufficient stock available")
)

// InsufficientStockError reports that a medicine cannot cover a requested quantity
type InsufficientStockError struct {
	MedicineID string `json:"medicine_id"`
	Requested  int    `json:"requested"`
	Available  int    `json:"available"`
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for medicine %s: requested %d, available %d",
		e.MedicineID, e.Requested, e.Available)
}

// Unwrap exposes the equivalent DomainError so KindOf and errors.Is work uniformly
func (e *InsufficientStockError) Unwrap() error {
	return &DomainError{
		Kind:    KindInsufficientStock,
		Code:    ErrInsufficientStock.Code,
		Message: e.Error(),
		Details: map[string]any{
			"medicine_id": e.MedicineID,
			"requested":   e.Requested,
			"available":   e.Available,
		},
	}
}

// NewInsufficientStockError creates an InsufficientStockError
func NewInsufficientStockError(medicineID string, requested, available int) *InsufficientStockError {
	return &InsufficientStockError{MedicineID: medicineID, Requested: requested, Available: available}
}

// KindOf returns the kind of the first DomainError in err's chain, or KindInternal
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsConflict reports whether err is a retryable write conflict
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsNotFound reports whether err signals a missing entity
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsValidation reports whether err signals a malformed request
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsInsufficientStock reports whether err signals a stock shortfall
func IsInsufficientStock(err error) bool { return KindOf(err) == KindInsufficientStock }
