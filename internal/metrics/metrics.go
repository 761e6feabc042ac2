// Package metrics exposes Prometheus metrics for the dashboard server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for perfbudget
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Run metrics
	runsIngestedTotal *prometheus.CounterVec
	runScore          *prometheus.GaugeVec
	runTotalSize      *prometheus.GaugeVec
	runsPrunedTotal   prometheus.Counter

	// Live stream
	liveConnections prometheus.Gauge

	// Rate limiting
	rateLimitHitsTotal prometheus.Counter
}

// New creates the metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perfbudget_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "perfbudget_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "perfbudget_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		runsIngestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perfbudget_runs_ingested_total",
				Help: "Total number of uploaded check runs",
			},
			[]string{"branch", "status"},
		),
		runScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perfbudget_run_score",
				Help: "Score of the latest ingested run per branch",
			},
			[]string{"branch"},
		),
		runTotalSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perfbudget_run_total_size_bytes",
				Help: "Total bundle size of the latest ingested run per branch",
			},
			[]string{"branch"},
		),
		runsPrunedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "perfbudget_runs_pruned_total",
				Help: "Total number of runs removed by retention",
			},
		),

		liveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "perfbudget_live_connections",
				Help: "Current number of live stream WebSocket connections",
			},
		),

		rateLimitHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "perfbudget_rate_limit_hits_total",
				Help: "Total number of rate-limited requests",
			},
		),
	}
}

// RecordRequest records one completed HTTP request
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	p := normalizePath(path)
	m.httpRequestsTotal.WithLabelValues(method, p, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, p).Observe(duration.Seconds())
}

// InFlight tracks a request in progress; call the returned func when done
func (m *Metrics) InFlight() func() {
	m.httpRequestsInFlight.Inc()
	return m.httpRequestsInFlight.Dec
}

// RecordRun records an ingested run
func (m *Metrics) RecordRun(branch, status string, score int, totalSize int64) {
	m.runsIngestedTotal.WithLabelValues(branch, status).Inc()
	m.runScore.WithLabelValues(branch).Set(float64(score))
	m.runTotalSize.WithLabelValues(branch).Set(float64(totalSize))
}

// RecordPrune records runs removed by retention
func (m *Metrics) RecordPrune(n int64) {
	m.runsPrunedTotal.Add(float64(n))
}

// LiveConnected adjusts the live connection gauge by delta
func (m *Metrics) LiveConnected(delta int) {
	m.liveConnections.Add(float64(delta))
}

// RecordRateLimitHit counts a rejected request
func (m *Metrics) RecordRateLimitHit() {
	m.rateLimitHitsTotal.Inc()
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// normalizePath replaces run IDs so label cardinality stays bounded
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if i >= 2 && parts[i-1] == "runs" && part != "" {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
