package web

// errors.go provides unified error response handling for the web layer.
// Technical errors are logged server-side with the request ID; clients get
// a stable code plus a user-friendly message, and for form errors the
// per-field detail needed to correct the submission.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/athioak7/carly/internal/logging"
	"github.com/athioak7/carly/internal/store"
	"github.com/athioak7/carly/internal/vehicle"
	"github.com/athioak7/carly/internal/workflow"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error  string               `json:"error"`
	Code   string               `json:"code"`
	Fields []vehicle.FieldError `json:"fields,omitempty"`
}

// respondError maps a domain error to an HTTP status and stable code.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	resp := ErrorResponse{Error: "an unexpected error occurred", Code: "ERR000"}

	var formErr *vehicle.FormError
	var storageErr *store.StorageError
	switch {
	case errors.As(err, &formErr):
		status = http.StatusUnprocessableEntity
		resp = ErrorResponse{
			Error:  "all the fields are required, fill out the ones listed",
			Code:   "FORM_INVALID",
			Fields: formErr.Fields,
		}
	case errors.Is(err, workflow.ErrConflictInProgress):
		status = http.StatusConflict
		resp = ErrorResponse{
			Error: "resolve or cancel the pending duplicate conflict before submitting again",
			Code:  "CONFLICT_IN_PROGRESS",
		}
	case errors.Is(err, workflow.ErrNoPendingConflict):
		status = http.StatusNotFound
		resp = ErrorResponse{
			Error: "no duplicate conflict is awaiting selection",
			Code:  "NO_PENDING_CONFLICT",
		}
	case errors.Is(err, workflow.ErrBadSelection):
		status = http.StatusBadRequest
		resp = ErrorResponse{
			Error: "selection indices must refer to listed candidates",
			Code:  "BAD_SELECTION",
		}
	case errors.As(err, &storageErr):
		status = http.StatusServiceUnavailable
		resp = ErrorResponse{
			Error: "storage is unavailable, try again in a moment",
			Code:  "STORAGE_FAILURE",
		}
	}

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", resp.Code,
		"error", err.Error(),
	)

	writeJSONStatus(w, status, resp)
}

// respondErrorStatus writes a fixed-status error without a wrapped cause.
func respondErrorStatus(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	logging.FromContext(r.Context()).Warn("request rejected",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
	)
	writeJSONStatus(w, status, ErrorResponse{Error: message, Code: code})
}

// writeJSON encodes v as JSON with a 200 status.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON with the given status. Encoding errors
// are logged since headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are gone; nothing left to do but record it.
		slog.Error("json encode error", "error", err)
	}
}
