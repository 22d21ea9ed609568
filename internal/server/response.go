package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/me/blogd/internal/store"
	"github.com/me/blogd/pkg/model"
)

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// respondJSON writes v with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes the generic error shape. msg is client-facing and
// must never carry query text, driver detail, or secrets.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondAPIError writes a taxonomy error with its mapped status.
func respondAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	respondError(w, apiErr.HTTPStatus(), apiErr.Message)
}

// respondStoreError maps store failures to client responses: pool
// exhaustion is retriable (503), anything else degrades to a generic 500
// carrying only fallbackMsg.
func respondStoreError(w http.ResponseWriter, err error, fallbackMsg string) {
	if isUnavailable(err) {
		respondError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	}
	respondError(w, http.StatusInternalServerError, fallbackMsg)
}

func isUnavailable(err error) bool {
	return errors.Is(err, store.ErrUnavailable)
}
