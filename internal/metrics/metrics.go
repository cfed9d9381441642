// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors of the research tool.
// Every method is safe on a nil *Metrics so components can run without
// instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "research_tool"

// Metrics groups the collectors on a dedicated registry.
type Metrics struct {
	Registry *prometheus.Registry

	sourceRequests    *prometheus.CounterVec
	sourceLatency     *prometheus.HistogramVec
	sourceResults     *prometheus.CounterVec
	duplicatesRemoved prometheus.Counter
	cacheLookups      *prometheus.CounterVec
	intents           *prometheus.CounterVec
	ingestions        *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		sourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "source_requests_total",
			Help:      "Source searches by outcome.",
		}, []string{"source", "outcome"}),
		sourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "source_duration_seconds",
			Help:      "Wall time of one source search, rate-limit waits included.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"source"}),
		sourceResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "source_results_total",
			Help:      "Records returned by each source.",
		}, []string{"source"}),
		duplicatesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duplicates_removed_total",
			Help:      "Records dropped by DOI deduplication.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "intents_total",
			Help:      "Chat messages by detected intent.",
		}, []string{"intent"}),
		ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "papers_total",
			Help:      "Finished paper ingestions by final status.",
		}, []string{"status"}),
	}

	m.Registry.MustRegister(
		m.sourceRequests,
		m.sourceLatency,
		m.sourceResults,
		m.duplicatesRemoved,
		m.cacheLookups,
		m.intents,
		m.ingestions,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSource records one source search.
func (m *Metrics) ObserveSource(source string, elapsed time.Duration, results int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.sourceRequests.WithLabelValues(source, outcome).Inc()
	m.sourceLatency.WithLabelValues(source).Observe(elapsed.Seconds())
	m.sourceResults.WithLabelValues(source).Add(float64(results))
}

// ObserveDuplicates records records removed by deduplication.
func (m *Metrics) ObserveDuplicates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duplicatesRemoved.Add(float64(n))
}

// ObserveCache records a cache lookup result: "hit", "miss" or "error".
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveIntent records a parsed chat intent.
func (m *Metrics) ObserveIntent(intent string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(intent).Inc()
}

// ObserveIngestion records a finished ingestion.
func (m *Metrics) ObserveIngestion(status string) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
