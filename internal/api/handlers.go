package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"portpulse/internal/buildinfo"
	"portpulse/internal/store"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
	dateLayout = "2006-01-02"
)

// HealthHandler reports liveness without touching the store.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"ts":      s.now().UTC().Format(time.RFC3339),
		"version": buildinfo.Version,
	})
}

// ReadyHandler pings the store.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		s.Log.Warn("readiness check failed", "err", err, "store", s.storeName())
		writeError(w, r, http.StatusServiceUnavailable, codeNotReady, "Database not reachable", "Check DATABASE_URL and database health")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "store": s.storeName(), "cache": s.Cache.Name()})
}

// portParam returns the upper-cased {unlocode} path segment.
func portParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "unlocode")))
}

func formatParam(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
}

// writeStoreError maps store sentinels to the error envelope.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, notFound, "")
	case errors.Is(err, store.ErrSchema):
		s.Log.Error("schema missing", "err", err, "path", r.URL.Path, "request_id", requestIDFrom(r.Context()))
		writeError(w, r, http.StatusFailedDependency, codeDependencyMissing, "Required table or column is missing",
			"Run the ETL jobs or start with DB_MIGRATE=true")
	default:
		s.Log.Error("store query failed", "err", err, "path", r.URL.Path, "request_id", requestIDFrom(r.Context()))
		writeError(w, r, http.StatusInternalServerError, codeInternal, "Internal server error", "")
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
