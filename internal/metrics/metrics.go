// Package metrics provides Prometheus metrics for the runlet serving
// surfaces. Metrics are only exposed in HTTP mode; stdio sessions and
// one-shot CLI runs do not register anything.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records run outcomes.
type Collector struct {
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
}

// NewCollector creates and registers the runlet collectors on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runlet_runs_total",
				Help: "Completed runs by outcome class",
			},
			[]string{"outcome"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "runlet_run_duration_seconds",
				Help:    "Wall-clock duration of runs, spawn to wait",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
	}
	reg.MustRegister(c.runsTotal, c.runDuration)
	return c
}

// ObserveRun records one completed run.
func (c *Collector) ObserveRun(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(outcome).Inc()
	c.runDuration.Observe(elapsed.Seconds())
}
