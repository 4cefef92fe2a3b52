package api

import (
	"net"
	"net/http"

	"ragmemory/internal/config"
	"ragmemory/internal/logging"
	"ragmemory/internal/ratelimit"
)

// rateLimitMiddleware throttles the API surface per client IP, reusing the
// teacher's Redis sliding-window limiter (internal/ratelimit) against the
// same Redis instance the multi-level cache uses.
func rateLimitMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	rc := ratelimit.DefaultConfig()
	rc.RedisAddr = cfg.Redis.Addr
	rc.RedisPassword = cfg.Redis.Password
	rc.RedisDB = cfg.Redis.DB
	rc.KeyPrefix = "ragmemory:api:ratelimit"

	limiter, err := ratelimit.NewRedisLimiter(rc)
	if err != nil {
		// A misconfigured Redis address shouldn't block the server from
		// starting; fall through to an always-allow middleware instead.
		logging.Warn("api: rate limiter disabled", "error", err)
		return func(next http.Handler) http.Handler { return next }
	}

	endpointLimit := &ratelimit.EndpointLimit{
		Limit:     rc.DefaultLimit,
		Window:    rc.DefaultWindow,
		Burst:     rc.DefaultBurst,
		Algorithm: ratelimit.AlgorithmSlidingWindow,
		Scope:     ratelimit.ScopeGlobal,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			result, err := limiter.Check(r.Context(), key, endpointLimit)
			if err != nil {
				logging.Warn("api: rate limit check failed, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !result.Allowed {
				w.Header().Set("Retry-After", result.RetryAfter.String())
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
