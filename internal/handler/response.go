package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError so the wire
// format lives in one file.
//
// ERROR FORMAT:
// Most failures carry a single message:
//
//	{"error": "Not found"}
//
// Validation failures carry every failing field instead:
//
//	{"error": {"message": "Validation failed", "fieldErrors": {"email": ["Please enter a valid email"]}}}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/halfbake/internal/apperror"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 100 << 10

// Client-facing messages that do not come from an *AppError.
const (
	MsgNotFound         = "Not found"
	MsgMethodNotAllowed = "Method not allowed"
	MsgInvalidJSON      = "Invalid JSON body"
	MsgInternal         = "Internal Server Error"
)

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationResponse is the body of a 400 caused by field violations.
type ValidationResponse struct {
	Error ValidationDetail `json:"error"`
}

// ValidationDetail lists every failing field with its messages.
type ValidationDetail struct {
	Message     string               `json:"message"`
	FieldErrors apperror.FieldErrors `json:"fieldErrors"`
}

// OKResponse is the body of endpoints that only acknowledge.
type OKResponse struct {
	OK bool `json:"ok"`
}

// writeJSON sends data with the given status code.
//
// Headers and status must be set before the body: once Encode writes,
// later header changes are ignored.
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

// WriteMessage sends {"error": message}. The server uses it for its own
// 404 and 405 responses.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeError maps a service error to a status code and body.
//
// errors.Is walks the wrap chain, so a service may return
// fmt.Errorf("creating idea: %w", apperror.NotFound(...)) and still get
// a 404. Anything that is not an *AppError is a 500 whose cause is
// logged and never sent.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("internal error", slog.String("error", err.Error()))
		WriteMessage(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		fields := appErr.Fields
		if fields == nil {
			fields = apperror.FieldErrors{}
		}
		writeJSON(w, http.StatusBadRequest, ValidationResponse{
			Error: ValidationDetail{Message: appErr.Message, FieldErrors: fields},
		})
	case errors.Is(err, apperror.ErrNotFound):
		// The AppError message names the resource and id; clients get
		// the generic text.
		WriteMessage(w, http.StatusNotFound, MsgNotFound)
	case errors.Is(err, apperror.ErrUnauthorized):
		WriteMessage(w, http.StatusUnauthorized, appErr.Message)
	case errors.Is(err, apperror.ErrConflict):
		WriteMessage(w, http.StatusConflict, appErr.Message)
	default:
		logger.Error("unmapped application error", slog.String("error", err.Error()))
		WriteMessage(w, http.StatusInternalServerError, MsgInternal)
	}
}

// decodeJSON reads a single JSON value from the body into dst. Unknown
// fields are ignored. Bodies over MaxBodyBytes and malformed JSON both
// answer 400 Invalid JSON body; decodeJSON reports false after writing.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Debug("rejected request body",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		WriteMessage(w, http.StatusBadRequest, MsgInvalidJSON)
		return false
	}
	return true
}
