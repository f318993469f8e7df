// Package prometheus records core service metrics with the Prometheus client
// and serves them over HTTP.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
)

const namespace = "mailmind"

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

// Recorder holds all MailMind metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	// Ingestion metrics
	IngestRuns        prometheus.Counter
	EmailsIndexed     prometheus.Counter
	EmailsSkipped     prometheus.Counter
	IngestionDuration prometheus.Histogram
	ProfileBuilds     prometheus.Counter

	// Retrieval metrics
	RetrievalRequests   prometheus.Counter
	RetrievalFailures   prometheus.Counter
	RetrievalResults    prometheus.Histogram
	RetrievalSimilarity prometheus.Histogram
	RetrievalDuration   prometheus.Histogram
}

// NewRecorder creates and registers all metrics on a fresh registry.
// Go runtime and process collectors are included.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		IngestRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Total number of ingestion events",
		}),
		EmailsIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_indexed_total",
			Help:      "Total number of emails written to the vector store",
		}),
		EmailsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_skipped_total",
			Help:      "Total number of emails dropped by the history cap or an empty body",
		}),
		IngestionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingestion_duration_seconds",
			Help:      "Duration of ingestion events in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
		ProfileBuilds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "style_profile_builds_total",
			Help:      "Total number of persisted style profile rebuilds",
		}),

		RetrievalRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_requests_total",
			Help:      "Total number of retrieval requests",
		}),
		RetrievalFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_failures_total",
			Help:      "Total number of retrievals that degraded to an empty result",
		}),
		RetrievalResults: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results",
			Help:      "Number of contexts returned per retrieval",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		RetrievalSimilarity: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_similarity",
			Help:      "Similarity of each returned context",
			Buckets:   prometheus.LinearBuckets(0.2, 0.1, 9),
		}),
		RetrievalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Duration of retrieval requests in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
	}
}

// IngestCompleted records one ingestion event.
func (r *Recorder) IngestCompleted(indexed, skipped int, elapsed time.Duration) {
	r.IngestRuns.Inc()
	r.EmailsIndexed.Add(float64(indexed))
	r.EmailsSkipped.Add(float64(skipped))
	r.IngestionDuration.Observe(elapsed.Seconds())
}

// ProfileBuilt records a style profile rebuild.
func (r *Recorder) ProfileBuilt() {
	r.ProfileBuilds.Inc()
}

// RetrievalCompleted records a successful retrieval.
func (r *Recorder) RetrievalCompleted(similarities []float64, elapsed time.Duration) {
	r.RetrievalRequests.Inc()
	r.RetrievalResults.Observe(float64(len(similarities)))
	for _, s := range similarities {
		r.RetrievalSimilarity.Observe(s)
	}
	r.RetrievalDuration.Observe(elapsed.Seconds())
}

// RetrievalFailed records a retrieval that returned nothing because of a backend fault.
func (r *Recorder) RetrievalFailed() {
	r.RetrievalRequests.Inc()
	r.RetrievalFailures.Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
