package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/tasker-api/internal/domain"
	"github.com/phrazzld/tasker-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes based on
// the error's sentinel, never its concrete type or message.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnknownTaskKind),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	case store.IsNotFoundError(err):
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for an error.
// Validation and unknown-kind errors carry our own wording and are returned
// verbatim so the caller can fix the submission; everything else collapses
// to a generic message.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnknownTaskKind):
		return err.Error()

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid task ID"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	default:
		return "An unexpected error occurred"
	}
}
