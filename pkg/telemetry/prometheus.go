package telemetry

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the RDAP server.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Policy metrics
	policyReloads    *prometheus.CounterVec
	policyGeneration prometheus.Gauge

	rateLimited   prometheus.Counter
	cacheRequests *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance on its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rdap_http_requests_total",
				Help: "Total number of RDAP HTTP requests",
			},
			[]string{"route", "method", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rdap_http_request_duration_seconds",
				Help:    "RDAP HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),

		policyReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rdap_policy_reloads_total",
				Help: "Total number of policy reload attempts by outcome",
			},
			[]string{"outcome"},
		),

		policyGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rdap_policy_generation",
				Help: "Generation of the policy tables in effect",
			},
		),

		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rdap_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),

		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rdap_cache_requests_total",
				Help: "Total number of record cache lookups by result",
			},
			[]string{"result"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.policyReloads,
		m.policyGeneration,
		m.rateLimited,
		m.cacheRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(route, method, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordPolicyReload records a policy reload attempt
func (m *Metrics) RecordPolicyReload(outcome string) {
	m.policyReloads.WithLabelValues(outcome).Inc()
}

// SetPolicyGeneration records the generation of the published tables
func (m *Metrics) SetPolicyGeneration(generation int64) {
	m.policyGeneration.Set(float64(generation))
}

// RecordRateLimited records a rejected request
func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

// RecordCacheLookup records a cache hit, miss or error
func (m *Metrics) RecordCacheLookup(result string) {
	m.cacheRequests.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request metrics. Routes are labelled with their chi
// pattern so identifiers never become label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.RecordHTTPRequest(routePattern(r), r.Method, strconv.Itoa(wrapped.statusCode), time.Since(start))
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not support http.Hijacker")
}
