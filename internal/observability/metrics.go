// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "paper_ranker"

// Run outcomes recorded by RunFinished.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus collectors for ranking runs. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// Runs counts ranking runs by outcome.
	Runs *prometheus.CounterVec

	// PapersScored counts papers that went through the scorers.
	PapersScored prometheus.Counter

	// PapersReturned observes how many papers each run returned.
	PapersReturned prometheus.Histogram

	// StageDuration observes pipeline stage durations in seconds.
	StageDuration *prometheus.HistogramVec

	// EmbeddingCacheHits and EmbeddingCacheMisses track the embedding cache
	// over the life of the process.
	EmbeddingCacheHits   prometheus.Gauge
	EmbeddingCacheMisses prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered in a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of ranking runs by outcome",
		}, []string{"outcome"}),
		PapersScored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_scored_total",
			Help:      "Total number of papers scored",
		}),
		PapersReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_returned",
			Help:      "Number of papers returned per run",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of ranking pipeline stages in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		EmbeddingCacheHits: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "embedding_cache_hits",
			Help:      "Embedding cache hits in this process",
		}),
		EmbeddingCacheMisses: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "embedding_cache_misses",
			Help:      "Embedding cache misses in this process",
		}),
	}
}

// ObserveStage records the duration of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RunFinished records the outcome of a run and its paper counts.
func (m *Metrics) RunFinished(outcome string, scored, returned int) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.PapersScored.Add(float64(scored))
		m.PapersReturned.Observe(float64(returned))
	}
}

// SetCacheStats publishes embedding cache counters.
func (m *Metrics) SetCacheStats(hits, misses int64) {
	if m == nil {
		return
	}
	m.EmbeddingCacheHits.Set(float64(hits))
	m.EmbeddingCacheMisses.Set(float64(misses))
}

// WriteTextfile writes all collected metrics to path in the Prometheus text
// exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
