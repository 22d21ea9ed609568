package model

import (
	"fmt"
	"net/http"
)

// ErrorCode classifies a guard-layer failure.
type ErrorCode string

const (
	ErrValidation   ErrorCode = "VALIDATION_ERROR"
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrForbidden    ErrorCode = "FORBIDDEN"
	ErrCSRF         ErrorCode = "CSRF_INVALID"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrConflict     ErrorCode = "CONFLICT"
	ErrUnavailable  ErrorCode = "UNAVAILABLE"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured error surfaced by the API. Message is the
// client-facing text; it never carries query text, driver detail, or
// stack traces.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"` // set for validation errors
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus maps the error code to its HTTP response status.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden, ErrCSRF:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a field-scoped validation APIError.
func NewValidationError(field, msg string) *APIError {
	return &APIError{Code: ErrValidation, Message: msg, Field: field}
}

// NewAuthenticationError creates an UNAUTHORIZED APIError.
func NewAuthenticationError(msg string) *APIError {
	return &APIError{Code: ErrUnauthorized, Message: msg}
}

// NewAuthorizationError creates a FORBIDDEN APIError.
func NewAuthorizationError(msg string) *APIError {
	return &APIError{Code: ErrForbidden, Message: msg}
}

// NewCSRFError creates a CSRF_INVALID APIError.
func NewCSRFError() *APIError {
	return &APIError{Code: ErrCSRF, Message: "Invalid CSRF token"}
}

// NewConflictError creates a CONFLICT APIError for a duplicate unique field.
func NewConflictError(msg string) *APIError {
	return &APIError{Code: ErrConflict, Message: msg}
}
