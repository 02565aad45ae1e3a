package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the search job counters exported on /metrics.
type Metrics struct {
	Jobs        *prometheus.CounterVec
	Evaluations prometheus.Counter
	Running     prometheus.Gauge
	Duration    prometheus.Histogram
}

// NewMetrics registers the job metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridsearch",
			Name:      "jobs_total",
			Help:      "Search jobs by terminal status.",
		}, []string{"status"}),
		Evaluations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gridsearch",
			Name:      "evaluations_total",
			Help:      "Objective evaluations across all jobs.",
		}),
		Running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridsearch",
			Name:      "jobs_running",
			Help:      "Jobs currently holding a worker slot.",
		}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridsearch",
			Name:      "solve_duration_seconds",
			Help:      "Wall time of finished jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}
