// Package apperror provides the error type handlers return to the Echo
// error handler. Each AppError carries an HTTP status and a message safe to
// show the client.
//
// NEVER return raw database or infrastructure errors to the client. Wrap
// them with NewInternal.
package apperror

import (
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors.
type AppError struct {
	// Code is the HTTP status code.
	Code int `json:"-"`

	// Type is a machine-readable classifier (e.g., "not_found").
	Type string `json:"type"`

	// Message is safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

func newError(code int, typ, message string, internal error) *AppError {
	return &AppError{Code: code, Type: typ, Message: message, Internal: internal}
}

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return newError(http.StatusNotFound, "not_found", message, nil)
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return newError(http.StatusBadRequest, "bad_request", message, nil)
}

// NewUnauthorized creates a 401. Every authentication and authorization
// failure uses the same message so responses never reveal which check failed.
func NewUnauthorized() *AppError {
	return newError(http.StatusUnauthorized, "unauthorized", http.StatusText(http.StatusUnauthorized), nil)
}

// NewUnauthorizedCause is NewUnauthorized with a server-side cause attached
// for logging.
func NewUnauthorizedCause(cause error) *AppError {
	return newError(http.StatusUnauthorized, "unauthorized", http.StatusText(http.StatusUnauthorized), cause)
}

// NewValidation creates a 422 for input that fails validation.
func NewValidation(message string) *AppError {
	return newError(http.StatusUnprocessableEntity, "validation_error", message, nil)
}

// NewInternal creates a 500. The client only sees a generic message.
func NewInternal(err error) *AppError {
	return newError(http.StatusInternalServerError, "internal_error",
		"An unexpected error occurred. Please try again.", err)
}

// NewUnavailable creates a 503 for a dependency that is down.
func NewUnavailable(err error) *AppError {
	return newError(http.StatusServiceUnavailable, "unavailable",
		"The service is temporarily unavailable.", err)
}
