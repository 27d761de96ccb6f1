// Package service provides application-level services for managing the
// collection hierarchy, course lifecycle, content metadata, and sibling
// ordering.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrForbidden indicates the acting user does not hold unrestricted
	// access to the target resource. Every mutation it would have gated is
	// aborted before any write occurs.
	// API layer should map this to HTTP 403 Forbidden.
	ErrForbidden = errors.New("operation not permitted for this user")

	// ErrDeleteConflict indicates the pre-delete validation rejected the
	// target, typically because other entities still reference it.
	// API layer should map this to HTTP 409 Conflict.
	ErrDeleteConflict = errors.New("resource cannot be deleted in its current state")

	// ErrNotSequenceMember indicates a sequence operation was invoked for a
	// child that is not part of the parent's ordered list. This is a
	// data-integrity fault, not a user-recoverable condition.
	ErrNotSequenceMember = errors.New("child is not a member of the parent sequence")
)
