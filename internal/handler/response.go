package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// Without helpers, every handler repeats the same boilerplate:
//   w.Header().Set("Content-Type", "application/json")
//   w.WriteHeader(statusCode)
//   json.NewEncoder(w).Encode(data)
//
// With helpers, handlers are cleaner and more consistent:
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from the JSON API has the same shape:
//   {"error": "not_found", "message": "blog not found with id abc123"}
//
// The HTML pages use the same mapping (statusFor) so a missing blog is a
// 404 in both the browser and the API.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/blog/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status code must be set BEFORE writing the body. Once
// w.Write() runs (Encode does it internally), later header changes are
// silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error to an HTTP status and a machine-readable
// kind.
//
// errors.Is walks the whole chain, so this works on wrapped errors:
//
//	service returns: fmt.Errorf("getting blog x: %w", apperror.NotFound(...))
//	errors.Is walks: outer error → AppError → ErrNotFound ✓
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		// ErrUpload lands here too: a failed image write is a server error.
		return http.StatusInternalServerError, "internal_error"
	}
}

// publicMessage returns the AppError message for client errors. Server
// errors get a generic message: the raw error might contain SQL, file paths
// or connection strings.
func publicMessage(err error, status int) string {
	var appErr *apperror.AppError
	if status < http.StatusInternalServerError && errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An internal error occurred"
}

// writeError maps a domain error to the appropriate HTTP status and sends
// it as JSON.
func writeError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	writeJSON(w, status, ErrorResponse{
		Error:   kind,
		Message: publicMessage(err, status),
	})
}
