// Package metrics exposes the prometheus instrumentation for the ledger:
// ingest counters, recompute timing, and queue depth.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventsIngestedTotal *prometheus.CounterVec
	eventsRejectedTotal *prometheus.CounterVec
	recomputeDuration   prometheus.Histogram
	recomputeQueueDepth prometheus.Gauge

	registerOnce sync.Once
)

// MustRegister creates and registers all collectors with the default
// registry. Safe to call more than once.
func MustRegister() {
	registerOnce.Do(func() {
		eventsIngestedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kaldera",
				Name:      "events_ingested_total",
				Help:      "Total number of calorie events accepted into the ledger.",
			},
			[]string{"event_type", "source"},
		)
		eventsRejectedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kaldera",
				Name:      "events_rejected_total",
				Help:      "Total number of events rejected at validation.",
			},
			[]string{"reason"},
		)
		recomputeDuration = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "kaldera",
				Name:      "recompute_duration_seconds",
				Help:      "Duration of daily balance recompute operations.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		)
		recomputeQueueDepth = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "kaldera",
				Name:      "recompute_queue_depth",
				Help:      "Number of (user, day) keys pending recompute.",
			},
		)
		prometheus.MustRegister(
			eventsIngestedTotal,
			eventsRejectedTotal,
			recomputeDuration,
			recomputeQueueDepth,
		)
	})
}

// EventIngested counts an accepted event.
func EventIngested(eventType, source string) {
	if eventsIngestedTotal != nil {
		eventsIngestedTotal.WithLabelValues(eventType, source).Inc()
	}
}

// EventRejected counts a validation rejection.
func EventRejected(reason string) {
	if eventsRejectedTotal != nil {
		eventsRejectedTotal.WithLabelValues(reason).Inc()
	}
}

// ObserveRecompute records the duration of one day recompute.
func ObserveRecompute(d time.Duration) {
	if recomputeDuration != nil {
		recomputeDuration.Observe(d.Seconds())
	}
}

// SetQueueDepth reports the current pending recompute backlog.
func SetQueueDepth(n int) {
	if recomputeQueueDepth != nil {
		recomputeQueueDepth.Set(float64(n))
	}
}
