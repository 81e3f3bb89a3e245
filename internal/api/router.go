package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portpulse/internal/metrics"
)

// Routes builds the HTTP handler. Health, readiness, metrics and docs are
// public; everything else needs an API key and is rate limited.
func (s *Server) Routes() http.Handler {
	metrics.RegisterDefault()

	origins := s.Config.HTTP.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "If-None-Match", "X-API-Key", headerRequestID},
		ExposedHeaders: []string{"ETag", "Retry-After", "X-CSV-Source", headerRequestID, headerResponseTime},
		MaxAge:         300,
	}))
	r.Use(chimiddleware.GetHead)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, codeNotFound, "Route not found", "See /docs for the list of endpoints")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", "This API is read-only; use GET or HEAD")
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/v1/health", http.StatusTemporaryRedirect)
	})
	r.Get("/v1/health", s.HealthHandler)
	r.Get("/v1/ready", s.ReadyHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/openapi.yaml", s.OpenAPIHandler)
	r.Get("/openapi.json", s.OpenAPIJSONHandler)
	r.Get("/docs", s.DocsHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.requireAPIKey)

		r.Get("/v1/sources", s.SourcesHandler)
		r.Get("/v1/meta/sources", s.MetaSourcesHandler)

		r.Get("/v1/ports/{unlocode}/snapshot", s.SnapshotHandler)
		r.Get("/v1/ports/{unlocode}/overview", s.OverviewHandler)
		r.Get("/v1/ports/{unlocode}/dwell", s.DwellHandler)
		r.Get("/v1/ports/{unlocode}/trend", s.TrendHandler)
		r.Get("/v1/ports/{unlocode}/alerts", s.AlertsHandler)

		r.Get("/v1/hs/{code}/imports", s.HSImportsHandler)

		r.With(s.requireAdmin).Get("/v1/admin/debug", s.DebugJSON)
	})
	return r
}
