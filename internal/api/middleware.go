package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"portpulse/internal/auth"
	"portpulse/internal/metrics"
)

const (
	headerRequestID    = "X-Request-ID"
	headerResponseTime = "X-Response-Time-Ms"
)

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxPrincipal
)

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

func principalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(auth.Principal)
	return p, ok
}

// requestID propagates a client X-Request-ID or assigns a new UUID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxRequestID, id)))
	})
}

// timingWriter stamps the elapsed time on the response before headers go out.
type timingWriter struct {
	http.ResponseWriter
	start  time.Time
	status int
	bytes  int
}

func (tw *timingWriter) WriteHeader(code int) {
	if tw.status != 0 {
		return
	}
	tw.status = code
	ms := float64(time.Since(tw.start).Microseconds()) / 1000
	tw.Header().Set(headerResponseTime, strconv.FormatFloat(ms, 'f', 2, 64))
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timingWriter) Write(b []byte) (int, error) {
	if tw.status == 0 {
		tw.WriteHeader(http.StatusOK)
	}
	n, err := tw.ResponseWriter.Write(b)
	tw.bytes += n
	return n, err
}

func (tw *timingWriter) Unwrap() http.ResponseWriter { return tw.ResponseWriter }

// accessLog writes one structured line per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &timingWriter{ResponseWriter: w, start: time.Now()}
		next.ServeHTTP(tw, r)
		status := tw.status
		if status == 0 {
			status = http.StatusOK
		}
		s.Log.LogAttrs(r.Context(), levelFor(status), "http_request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("query", r.URL.RawQuery),
			slog.Int("status", status),
			slog.Int("bytes", tw.bytes),
			slog.Float64("dur_ms", float64(time.Since(tw.start).Microseconds())/1000),
			slog.String("ip", clientIP(r)),
			slog.String("ua", r.UserAgent()),
			slog.String("request_id", requestIDFrom(r.Context())),
		)
	})
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// metricsMiddleware records request counts and latency by chi route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, code).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, code).Observe(time.Since(start).Seconds())
	})
}

// recoverer turns a panic into a 500 envelope.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.Log.Error("panic", "err", rec, "path", r.URL.Path, "request_id", requestIDFrom(r.Context()), "stack", string(debug.Stack()))
				writeError(w, r, http.StatusInternalServerError, codeInternal, "Internal server error", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireAPIKey authenticates the request and stores the principal.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		key := auth.KeyFromRequest(r)
		p, err := s.Auth.Verify(key, r.Method)
		switch {
		case err == nil:
		case !s.Auth.Required:
			p = auth.Principal{}
		case errors.Is(err, auth.ErrReadOnly):
			// routes mounted today are GET-only and answer 405 first; this
			// covers any non-read route added to the keyed group.
			writeError(w, r, http.StatusForbidden, codeForbidden, "Demo key allows read-only requests", "Use a live API key for write operations")
			return
		default:
			writeError(w, r, http.StatusUnauthorized, codeUnauthorized, "API key missing/invalid",
				"Provide API key via header 'X-API-Key' or 'Authorization: Bearer <key>'")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxPrincipal, p)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := principalFrom(r.Context()); !ok || !p.IsAdmin() {
			writeError(w, r, http.StatusForbidden, codeForbidden, "Admin API key required", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter keeps one token bucket per (verified key, client IP).
type rateLimiter struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	visitors  map[string]*visitor
	lastSweep time.Time
	idle      time.Duration
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	return &rateLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		visitors:  map[string]*visitor{},
		lastSweep: time.Now(),
		idle:      10 * time.Minute,
	}
}

func (rl *rateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if now.Sub(rl.lastSweep) > time.Minute {
		for k, v := range rl.visitors {
			if now.Sub(v.seen) > rl.idle {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.seen = now
	return v.lim.AllowN(now, 1)
}

func (rl *rateLimiter) retryAfter() int {
	if rl.rps <= 0 {
		return 60
	}
	return max(1, int(math.Ceil(1/float64(rl.rps))))
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		// unverified keys fall back to the IP-only bucket
		key := auth.KeyFromRequest(r)
		if _, err := s.Auth.Verify(key, r.Method); err != nil {
			key = ""
		}
		if !s.limiter.allow(key+"|"+clientIP(r), s.now()) {
			metrics.RateLimited.Inc()
			retry := s.limiter.retryAfter()
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeError(w, r, http.StatusTooManyRequests, codeRateLimited, "Too many requests",
				"Try again in "+strconv.Itoa(retry)+"s")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
