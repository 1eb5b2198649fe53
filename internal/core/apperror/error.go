// Package apperror provides structured error handling for the service.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes, one per failure class crossing a component boundary.
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Lifecycle violations (422): operation attempted from the wrong state
	CodeStateConflict     = "STATE_CONFLICT"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"

	// Integrity violations (409): uniqueness or cross-entity consistency
	CodeIntegrityConflict      = "INTEGRITY_CONFLICT"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Collaborator failures (502)
	CodeExternalDependency = "EXTERNAL_DEPENDENCY"
)

// AppError is the standard error type for the service.
// It implements the error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewStateConflict creates a lifecycle violation error (422).
// Used when an operation is attempted from the wrong state: tallying an
// uncompleted checkout, processing stock twice, mutating a resolved discrepancy.
func NewStateConflict(message string) *AppError {
	return &AppError{
		Code:       CodeStateConflict,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewIntegrityConflict creates an integrity violation error (409).
// Used when a mutation would break cross-entity consistency, e.g. linking an
// invoice number already claimed by another active checkout.
func NewIntegrityConflict(message string) *AppError {
	return &AppError{
		Code:       CodeIntegrityConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewInsufficientStock creates a stock shortage error
func NewInsufficientStock(sku string, requested, available float64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"sku":       sku,
			"requested": requested,
			"available": available,
		},
	}
}

// NewExternalDependency creates a collaborator failure error (502)
func NewExternalDependency(collaborator string, err error) *AppError {
	return &AppError{
		Code:       CodeExternalDependency,
		Message:    fmt.Sprintf("%s collaborator failed", collaborator),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"collaborator": collaborator},
		Err:        err,
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another caller. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsStateConflict checks if error is CodeStateConflict
func IsStateConflict(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeStateConflict
	}
	return false
}

// IsIntegrityConflict checks if error is CodeIntegrityConflict
func IsIntegrityConflict(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeIntegrityConflict
	}
	return false
}
