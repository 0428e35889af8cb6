// Package metrics exposes Prometheus instrumentation for the gateway:
// request counters, agent run lifecycle, and sandbox occupancy.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feather_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration tracks request latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feather_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// RunsStarted counts agent runs accepted for streaming
	RunsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feather_runs_started_total",
			Help: "Total number of agent runs started",
		},
		[]string{"agent"},
	)

	// RunsFinished counts agent runs by terminal status
	RunsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feather_runs_finished_total",
			Help: "Total number of agent runs finished",
		},
		[]string{"agent", "status"},
	)

	// RunDuration tracks how long agent runs take end to end
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feather_run_duration_seconds",
			Help:    "Agent run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"agent", "status"},
	)

	// SandboxesActive tracks currently leased sandboxes
	SandboxesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feather_sandboxes_active",
			Help: "Number of currently leased sandboxes",
		},
	)

	// RelayedBytes counts event stream bytes forwarded to clients
	RelayedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feather_relayed_bytes_total",
			Help: "Total event stream bytes relayed to clients",
		},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware creates an HTTP middleware that records metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		RequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// normalizePath collapses per-agent routes to avoid high cardinality
func normalizePath(path string) string {
	switch path {
	case "/healthz", "/metrics", "/agents":
		return path
	default:
		if strings.HasPrefix(path, "/agents/") {
			if strings.HasSuffix(path, "/messages") {
				return "/agents/:id/messages"
			}
			return "/agents/:id"
		}
		return "other"
	}
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRunStart increments the run and sandbox gauges
func RecordRunStart(agent string) {
	RunsStarted.WithLabelValues(agent).Inc()
	SandboxesActive.Inc()
}

// RecordRunEnd decrements the sandbox gauge and records the outcome
func RecordRunEnd(agent, status string, durationSeconds float64) {
	SandboxesActive.Dec()
	RunsFinished.WithLabelValues(agent, status).Inc()
	RunDuration.WithLabelValues(agent, status).Observe(durationSeconds)
}

// RecordRelayedBytes adds to the relayed byte counter
func RecordRelayedBytes(n int) {
	RelayedBytes.Add(float64(n))
}
