package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/logbook-api/internal/domain"
)

// maxBodyBytes caps request bodies; every endpoint takes a handful of short fields.
const maxBodyBytes = 64 << 10

// Envelope is the response wrapper for every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Note    string `json:"note,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, Envelope{Error: msg, Code: code})
}

// httpError maps a domain error to its status and machine-readable code.
func httpError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrDuplicateAccount):
		return http.StatusBadRequest, "duplicate_account"
	case errors.Is(err, domain.ErrInvalidCode):
		return http.StatusBadRequest, "invalid_code"
	case errors.Is(err, domain.ErrExpiredCode):
		return http.StatusBadRequest, "expired_code"
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError, "configuration_error"
	case errors.Is(err, domain.ErrStorage):
		return http.StatusInternalServerError, "storage_error"
	default:
		return http.StatusInternalServerError, "upstream_error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", domain.ErrValidation)
	}
	return nil
}
