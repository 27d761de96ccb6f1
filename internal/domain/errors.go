package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidCollectionType is returned when a collection type is not
	// one of the known values.
	ErrInvalidCollectionType = errors.New("invalid collection type")

	// ErrInvalidSharing is returned when a sharing setting is not one of
	// the known values.
	ErrInvalidSharing = errors.New("invalid sharing setting")

	// ErrInvalidAssocKind is returned when a metadata association kind is
	// not one of the known values.
	ErrInvalidAssocKind = errors.New("invalid association kind")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationError provides field-level context for a validation failure.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// FieldErrors accumulates validation failures for several fields of one
// request. It is returned to the caller as a structured result rather than
// aborting the operation; an empty set means the request was valid.
type FieldErrors []*ValidationError

// Add appends a field-level failure to the set.
func (fe *FieldErrors) Add(field, message string) {
	*fe = append(*fe, NewValidationError(field, message, ErrValidation))
}

// HasErrors reports whether any failures were accumulated.
func (fe FieldErrors) HasErrors() bool {
	return len(fe) > 0
}

// Error implements the error interface by joining the individual messages.
func (fe FieldErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, e := range fe {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap allows errors.Is(fe, ErrValidation) to succeed for a populated set.
func (fe FieldErrors) Unwrap() error {
	if len(fe) == 0 {
		return nil
	}
	return ErrValidation
}
