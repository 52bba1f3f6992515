// Package metrics exposes pipeline counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/huangsam/codetime/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "codetime"

// Metrics holds every collector of one process. Each instance owns its own
// registry, so tests and embedded servers never collide.
type Metrics struct {
	registry *prometheus.Registry

	JobsSubmitted   prometheus.Counter
	JobsCached      prometheus.Counter
	JobsFinished    *prometheus.CounterVec // label: status
	FailedBatches   prometheus.Counter
	PipelineSeconds prometheus.Histogram
	Queries         *prometheus.CounterVec // label: outcome
	CleanupRemoved  prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Analysis jobs that started a pipeline.",
		}),
		JobsCached: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_cached_total",
			Help:      "Analyze requests answered from a completed analysis.",
		}),
		JobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Pipelines that reached a terminal status.",
		}, []string{"status"}),
		FailedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_failed_batches_total",
			Help:      "Pattern batches dropped after a model failure.",
		}),
		PipelineSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall-clock time of analysis pipelines.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Questions answered, by outcome.",
		}, []string{"outcome"}),
		CleanupRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_removed_total",
			Help:      "Stale cache entries removed by scheduled cleanup.",
		}),
	}
	m.registry.MustRegister(
		m.JobsSubmitted, m.JobsCached, m.JobsFinished, m.FailedBatches,
		m.PipelineSeconds, m.Queries, m.CleanupRemoved,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFinished records a terminal pipeline outcome.
func (m *Metrics) ObserveFinished(status schema.JobStatus, seconds float64) {
	if m == nil {
		return
	}
	m.JobsFinished.WithLabelValues(string(status)).Inc()
	m.PipelineSeconds.Observe(seconds)
}

// Query outcomes.
const (
	AnsweredOutcome = "answered"
	ApologyOutcome  = "apology"
)

// ObserveQuery counts one answered question.
func (m *Metrics) ObserveQuery(outcome string) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(outcome).Inc()
}

// ObserveSubmitted counts a pipeline start.
func (m *Metrics) ObserveSubmitted() {
	if m == nil {
		return
	}
	m.JobsSubmitted.Inc()
}

// ObserveCached counts an analyze request served from the cache.
func (m *Metrics) ObserveCached() {
	if m == nil {
		return
	}
	m.JobsCached.Inc()
}

// ObserveFailedBatches adds dropped synthesis batches.
func (m *Metrics) ObserveFailedBatches(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FailedBatches.Add(float64(n))
}

// ObserveCleanup adds entries removed by a cleanup run.
func (m *Metrics) ObserveCleanup(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CleanupRemoved.Add(float64(n))
}
