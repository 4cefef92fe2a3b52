// Package api implements the thin HTTP contract surface from spec.md §6:
// plain JSON endpoints over the retrieval/memory core, routed with chi, and
// exposing a Prometheus /metrics endpoint.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"ragmemory/internal/errtypes"
	"ragmemory/internal/logging"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("api: encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errtypes.ErrMemoryNotFound), errors.Is(err, errtypes.ErrNotFound), errors.Is(err, errtypes.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errtypes.ErrInvalidQuery), errors.Is(err, errtypes.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errtypes.ErrQualityGatesFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errtypes.ErrAlreadyIndexing):
		status = http.StatusConflict
	case errors.Is(err, errtypes.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, errtypes.ErrProviderUnavailable):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errtypes.Validation("decode request body", err)
	}
	return nil
}
