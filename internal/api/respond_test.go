package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"ragmemory/internal/errtypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONEncodesBody(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"abc"}`, rec.Body.String())
}

func TestWriteJSONNilBodyWritesNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWriteErrorMapsSentinelsToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", errtypes.ErrMemoryNotFound, http.StatusNotFound},
		{"session not found", errtypes.ErrSessionNotFound, http.StatusNotFound},
		{"invalid query", errtypes.ErrInvalidQuery, http.StatusBadRequest},
		{"validation", errtypes.ErrValidation, http.StatusBadRequest},
		{"gates failed", errtypes.ErrQualityGatesFailed, http.StatusUnprocessableEntity},
		{"already indexing", errtypes.ErrAlreadyIndexing, http.StatusConflict},
		{"rate limited", errtypes.ErrRateLimited, http.StatusTooManyRequests},
		{"provider unavailable", errtypes.ErrProviderUnavailable, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestWriteErrorDefaultsToInternalServerError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, newPlainError("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"unknown":"field"}`))
	var dst struct {
		Known string `json:"known"`
	}
	err := decodeJSON(req, &dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, errtypes.ErrValidation)
}

func TestDecodeJSONAcceptsKnownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"known":"value"}`))
	var dst struct {
		Known string `json:"known"`
	}
	require.NoError(t, decodeJSON(req, &dst))
	assert.Equal(t, "value", dst.Known)
}

type plainError struct{ msg string }

func (e *plainError) Error() string { return e.msg }

func newPlainError(msg string) error { return &plainError{msg: msg} }
