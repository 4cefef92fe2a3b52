package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ragmemory/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestClientIPSplitsHostPort(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.5:54321"
	assert.Equal(t, "203.0.113.5", clientIP(req))
}

func TestClientIPFallsBackToRawRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "not-a-host-port"
	assert.Equal(t, "not-a-host-port", clientIP(req))
}

func TestRateLimitMiddlewareDegradesOnInvalidConfig(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Addr: ""}}
	mw := rateLimitMiddleware(cfg)

	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called, "request should pass through when the limiter can't be built")
	assert.Equal(t, http.StatusOK, rec.Code)
}
