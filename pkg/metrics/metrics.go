// Package metrics exposes Prometheus instrumentation for batch runs and the
// HTTP server. Each Metrics owns its registry; a nil *Metrics records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fumiya-kume/secpatch/internal/types"
)

// Fragment result labels
const (
	ResultModified  = "modified"
	ResultUnchanged = "unchanged"
	ResultFailed    = "failed"
)

// Cache lookup labels
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	// Latency buckets in milliseconds; fragments are small text transforms
	latencyBuckets = []float64{
		0.1, 0.5, 1, // trivial fragments
		5, 10, 25, // typical rows
		50, 100, 250, // very long fragments
		1000,
	}
)

// Metrics holds every collector secpatch records
type Metrics struct {
	registry *prometheus.Registry

	FragmentsTotal   *prometheus.CounterVec
	OutcomesTotal    *prometheus.CounterVec
	DiagnosticsTotal prometheus.Counter
	FragmentLatency  prometheus.Histogram
	BatchRunsTotal   prometheus.Counter
	RequestsTotal    *prometheus.CounterVec
	RequestLatency   *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
}

// New creates a registry with the secpatch collectors plus the Go and process
// collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		FragmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secpatch_fragments_total",
				Help: "Fragments processed, by result",
			},
			[]string{"result"},
		),
		OutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secpatch_outcomes_total",
				Help: "Per-site outcomes, by family and status",
			},
			[]string{"family", "status"},
		),
		DiagnosticsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "secpatch_diagnostics_total",
				Help: "Suppressed detector failures and fragment-boundary errors",
			},
		),
		FragmentLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "secpatch_fragment_latency_ms",
				Help:    "Time spent patching one fragment in milliseconds",
				Buckets: latencyBuckets,
			},
		),
		BatchRunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "secpatch_batch_runs_total",
				Help: "Completed batch runs",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secpatch_http_requests_total",
				Help: "HTTP requests served",
			},
			[]string{"route", "status"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secpatch_http_latency_ms",
				Help:    "HTTP request latency in milliseconds",
				Buckets: latencyBuckets,
			},
			[]string{"route"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secpatch_cache_lookups_total",
				Help: "Patch cache lookups, by result",
			},
			[]string{"result"},
		),
	}
}

// Registry is the gatherer to expose on /metrics
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveResult records one fragment's result
func (m *Metrics) ObserveResult(res types.PatchResult, elapsed time.Duration) {
	if m == nil {
		return
	}

	switch {
	case res.Failed():
		m.FragmentsTotal.WithLabelValues(ResultFailed).Inc()
	case res.Modified:
		m.FragmentsTotal.WithLabelValues(ResultModified).Inc()
	default:
		m.FragmentsTotal.WithLabelValues(ResultUnchanged).Inc()
	}

	for _, o := range res.Outcomes {
		m.OutcomesTotal.WithLabelValues(string(o.Family), string(o.Status)).Inc()
	}
	m.DiagnosticsTotal.Add(float64(len(res.Diagnostics)))
	m.FragmentLatency.Observe(float64(elapsed) / float64(time.Millisecond))
}

// ObserveBatch counts a completed batch run
func (m *Metrics) ObserveBatch() {
	if m == nil {
		return
	}
	m.BatchRunsTotal.Inc()
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestLatency.WithLabelValues(route).Observe(float64(elapsed) / float64(time.Millisecond))
}

// ObserveCache records a cache lookup result
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}
