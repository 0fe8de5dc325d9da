// Package metrics exports Prometheus metrics for the run orchestrator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all orchestrator metrics.
type Metrics struct {
	RunsSubmitted prometheus.Counter
	RunsInFlight  prometheus.Gauge
	RunsFinished  *prometheus.CounterVec // labeled by terminal status
	RunDuration   prometheus.Histogram
	BatchItems    prometheus.Counter
}

// New registers the orchestrator metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RunsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "swe_agent_api",
			Name:      "runs_submitted_total",
			Help:      "Total runs accepted for execution",
		}),
		RunsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "swe_agent_api",
			Name:      "runs_in_flight",
			Help:      "Runs currently queued or running",
		}),
		RunsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swe_agent_api",
			Name:      "runs_finished_total",
			Help:      "Runs that reached a terminal state",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "swe_agent_api",
			Name:      "run_duration_seconds",
			Help:      "Wall time from submission to terminal state",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}),
		BatchItems: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "swe_agent_api",
			Name:      "batch_items_total",
			Help:      "Total items received on the batch endpoint",
		}),
	}
}
