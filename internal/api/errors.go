package api

import (
	"errors"
	"net/http"

	"github.com/ednovo/shelf-api/internal/api/shared"
	"github.com/ednovo/shelf-api/internal/domain"
	"github.com/ednovo/shelf-api/internal/service"
	"github.com/ednovo/shelf-api/internal/service/auth"
	"github.com/ednovo/shelf-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrCourseNotFound),
		errors.Is(err, store.ErrShelfNotFound),
		errors.Is(err, store.ErrCollectionNotFound),
		errors.Is(err, store.ErrContentMetaNotFound),
		errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrDeleteConflict),
		errors.Is(err, store.ErrEmailExists),
		errors.Is(err, store.ErrShelfExists):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, domain.ErrUnauthorized):
		return "You do not have access to this course"

	case errors.Is(err, service.ErrDeleteConflict):
		return "Course cannot be deleted while it still has content"

	case errors.Is(err, store.ErrCourseNotFound):
		return "Course not found"

	case errors.Is(err, store.ErrShelfNotFound):
		return "Shelf not found"

	case errors.Is(err, store.ErrCollectionNotFound):
		return "Collection not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, domain.ErrValidation):
		return "Invalid request data"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid identifier"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps err to a status code and writes a sanitized error
// response, logging the full (redacted) error. An empty userMessage falls
// back to the safe message for the error type.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := MapErrorToStatusCode(err)
	if userMessage == "" {
		userMessage = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, userMessage, err)
}

// ValidationErrorDetail is one field-level failure in a 400 response.
type ValidationErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrorResponse is the body returned when request validation
// accumulates field errors instead of aborting with a single message.
type ValidationErrorResponse struct {
	Error   string                  `json:"error"`
	Details []ValidationErrorDetail `json:"details"`
	TraceID string                  `json:"trace_id,omitempty"`
}

// RespondWithFieldErrors writes the accumulated validation failures as a
// structured 400 response.
func RespondWithFieldErrors(w http.ResponseWriter, r *http.Request, fieldErrs domain.FieldErrors) {
	details := make([]ValidationErrorDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, ValidationErrorDetail{
			Field:   fe.Field,
			Message: fe.Message,
		})
	}
	shared.RespondWithJSON(w, r, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "Validation failed",
		Details: details,
		TraceID: shared.GetTraceID(r.Context()),
	})
}
