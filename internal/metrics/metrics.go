package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, route pattern, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "portpulse_http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "portpulse_http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// CacheLookups counts CSV micro-cache lookups by backend and result (hit, miss)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "portpulse_csv_cache_lookups_total", Help: "CSV cache lookups by backend and result."},
		[]string{"backend", "result"},
	)
	// AlertsRaised counts alerts returned by severity
	AlertsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "portpulse_alerts_raised_total", Help: "Alerts returned by metric and severity."},
		[]string{"metric", "severity"},
	)
	// RateLimited counts requests rejected by the limiter
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "portpulse_rate_limited_total", Help: "Requests rejected with 429."},
	)
)

// RegisterDefault registers collectors to the package registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(AlertsRaised)
		Registry.MustRegister(RateLimited)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
