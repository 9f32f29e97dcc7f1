// Package apperror defines the error taxonomy shared by the service and
// handler layers.
//
// Services return *AppError values wrapping one of the sentinels below.
// The HTTP layer maps sentinels to status codes with errors.Is, so a
// service never needs to know about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// FieldErrors maps a request field name to its ordered violation messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Empty reports whether no field has a violation.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

type AppError struct {
	Err     error       // sentinel
	Message string      // Human-readable error message
	Fields  FieldErrors // Optional: every failing field (validation only)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// Invalid wraps a complete set of field violations. Callers check
// fields.Empty() first; Invalid does not.
func Invalid(fields FieldErrors) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: "Validation failed",
		Fields:  fields,
	}
}

// Conflict reports a uniqueness violation. message is safe to show clients.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthorized reports missing or rejected credentials. message is sent to
// the client verbatim, so it must not reveal which credential was wrong.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
