package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so the API has
// one response shape:
//
//   success: the resource itself, e.g. {"id": 7, "name": "Groceries", ...}
//   failure: {"error": "not_found", "message": "project not found with id 7"}
//
// The frontend switches on "error" and shows "message" to the user.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Gur1a/CheckList/internal/apperror"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending input field, validation errors only
}

// writeJSON sends data with the given status.
//
// Headers and status must be written before the body; once Encode writes
// the first byte, later header changes are silently dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a service error to an HTTP status.
//
// Services wrap errors as they pass them up:
//
//	fmt.Errorf("service/task: updating task 3: %w", apperror.Forbidden(...))
//
// errors.Is finds the sentinel kind anywhere in that chain, and errors.As
// pulls out the *AppError so the client gets its Message rather than the
// whole wrapped string with package prefixes.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, kind := statusFor(err)
		if status == http.StatusInternalServerError {
			slog.Error("unclassified application error", slog.String("error", err.Error()))
			writeJSON(w, status, ErrorResponse{Error: kind, Message: "an internal error occurred"})
			return
		}
		writeJSON(w, status, ErrorResponse{
			Error:   kind,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	// Anything else is a bug or an infrastructure failure. The raw text may
	// contain SQL or file paths, so it goes to the log, not the client.
	slog.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal_error"
}
