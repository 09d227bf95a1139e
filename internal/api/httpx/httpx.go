package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/custodial-ledger/internal/models"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 64 << 10

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// ReadJSON decodes a size-capped request body into v. On failure it has already answered
// with 413 or 400 and returns false.
func ReadJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", nil)
		return false
	}
	WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
	return false
}

// WriteServiceError maps a service error onto a status code. Unknown errors are logged and
// answered with a generic 500.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr models.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteError(w, http.StatusBadRequest, "validation_failed", "validation failed", verr)
	case errors.Is(err, models.ErrInvalidArgument):
		WriteError(w, http.StatusBadRequest, "invalid_argument", err.Error(), nil)
	case errors.Is(err, models.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "forbidden", nil)
	case errors.Is(err, models.ErrInactiveAccount):
		WriteError(w, http.StatusForbidden, "inactive_account", "account is not active", nil)
	case errors.Is(err, models.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, models.ErrAlreadyDecided):
		WriteError(w, http.StatusConflict, "already_decided", "transaction already decided", nil)
	case errors.Is(err, models.ErrDuplicate):
		WriteError(w, http.StatusConflict, "duplicate", "already exists", nil)
	case errors.Is(err, models.ErrInsufficientFunds):
		WriteError(w, http.StatusUnprocessableEntity, "insufficient_funds", "insufficient funds", nil)
	case errors.Is(err, models.ErrStorage):
		slog.Warn("storage unavailable", "path", r.URL.Path, "err", err)
		WriteError(w, http.StatusServiceUnavailable, "storage_unavailable", "try again later", nil)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
