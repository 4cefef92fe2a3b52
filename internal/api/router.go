package api

import (
	"net/http"
	"time"

	"ragmemory/internal/di"
	"ragmemory/internal/logging"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the HTTP contract surface (spec.md §6) over c's wired
// components, routed with chi.
func NewRouter(c *di.Container) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(c.Logger))
	r.Use(rateLimitMiddleware(c.Config))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	h := &handlers{c: c}

	r.Route("/api", func(r chi.Router) {
		r.Post("/index", h.indexStart)
		r.Get("/index/status/{collection}", h.indexStatus)
		r.Post("/reindex", h.reindex)
		r.Get("/aliases", h.listAliases)

		r.Post("/search", h.search)
		r.Post("/hybrid-search", h.hybridSearch)
		r.Post("/duplicates", h.duplicates)
		r.Post("/clusters", h.clusters)
		r.Post("/recommend", h.recommend)

		r.Post("/memory", h.memoryIngest)
		r.Post("/memory/recall-durable", h.recallDurable)
		r.Post("/memory/promote", h.promote)
		r.Delete("/memory/quarantine/{id}", h.rejectQuarantine)
		r.Get("/memory/quarantine", h.listQuarantine)

		r.Post("/session/start", h.sessionStart)
		r.Post("/session/{id}/end", h.sessionEnd)
		r.Post("/session/{id}/activity", h.sessionActivity)

		r.Post("/cache/warm", h.cacheWarm)
		r.Post("/cache/prune", h.cachePrune)
		r.Get("/cache/session/{id}", h.sessionCacheStats)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
