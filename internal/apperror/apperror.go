// Package apperror defines the domain errors shared by the service and
// repository layers. Handlers translate them into HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrNotPresent   = errors.New("not present")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type AppError struct {
	Err     error             // sentinel, matched with errors.Is
	Message string            // Human-readable error message
	Field   string            // Optional: field causing the error
	Fields  map[string]string // Optional: per-field messages for multi-field validation
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

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  map[string]string{field: message},
	}
}

// ValidationErrors reports several invalid fields at once. Message is the
// first field's message in key order so the summary is stable.
func ValidationErrors(fields map[string]string) *AppError {
	first := ""
	for k := range fields {
		if first == "" || k < first {
			first = k
		}
	}
	return &AppError{
		Err:     ErrValidation,
		Message: fields[first],
		Field:   first,
		Fields:  fields,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// AlreadyExists is a Conflict with a caller-supplied message, used by the
// add-style toggles ("recipe is already in favorites").
func AlreadyExists(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NotPresent reports removal of a relation that does not exist.
func NotPresent(message string) *AppError {
	return &AppError{
		Err:     ErrNotPresent,
		Message: message,
	}
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
