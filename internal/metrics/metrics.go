// Package metrics provides Prometheus instrumentation for bundle builds, runtime
// fetches and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RuntimeFetchTotal counts runtime source fetches by source id and outcome
	// (row, no_match, error, cached).
	RuntimeFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cervejazero_runtime_fetch_total",
		Help: "Runtime source fetches by outcome",
	}, []string{"source", "outcome"})

	// RuntimeFetchDuration tracks per-source fetch latency.
	RuntimeFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cervejazero_runtime_fetch_duration_seconds",
		Help:    "Runtime source fetch duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
	}, []string{"source"})

	// BundleBuildsTotal counts bundle builds by result (ok, error).
	BundleBuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cervejazero_bundle_builds_total",
		Help: "Bundle builds by result",
	}, []string{"result"})

	// BundleBuildDuration tracks end-to-end build latency.
	BundleBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cervejazero_bundle_build_seconds",
		Help:    "Bundle build duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// BundleFactRows reports the fact count of the last build by data status.
	BundleFactRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cervejazero_bundle_fact_rows",
		Help: "Fact rows in the last built bundle",
	}, []string{"data_status"})

	// BundleCacheLookups counts memo lookups by backend and result (hit, miss).
	BundleCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cervejazero_bundle_cache_lookups_total",
		Help: "Bundle cache lookups",
	}, []string{"backend", "result"})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cervejazero_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cervejazero_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSince records the seconds elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern keeps label cardinality bounded.
		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
