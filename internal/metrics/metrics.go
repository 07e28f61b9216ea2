// Package metrics exports scheduler pacing as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/avhost/internal/scheduler"
)

const (
	namespace = "avhost"
	subsystem = "scheduler"
)

// Collector turns iteration reports into Prometheus metrics. It implements
// scheduler.Observer.
type Collector struct {
	Iterations     prometheus.Counter
	Updates        prometheus.Counter
	Bails          prometheus.Counter
	DroppedTicks   prometheus.Counter
	Idles          prometheus.Counter
	Sleeps         prometheus.Counter
	UpdatedTicks   prometheus.Gauge
	UpdatesPerDraw prometheus.Histogram
	IterationTime  prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "iterations_total",
			Help:      "Total scheduler iterations, one render each.",
		}),
		Updates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "updates_total",
			Help:      "Total update hook calls.",
		}),
		Bails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bails_total",
			Help:      "Iterations whose catch-up was cut short by the bail threshold.",
		}),
		DroppedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dropped_ticks_total",
			Help:      "Logical ticks skipped when resynchronising after a bail.",
		}),
		Idles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "idles_total",
			Help:      "Total idle hook calls.",
		}),
		Sleeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sleeps_total",
			Help:      "Total sleeps while waiting for the next tick.",
		}),
		UpdatedTicks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "updated_ticks",
			Help:      "Current value of the logical tick counter.",
		}),
		UpdatesPerDraw: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "updates_per_iteration",
			Help:      "Histogram of update calls per rendered frame.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16, 24, 32, 41},
		}),
		IterationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "iteration_seconds",
			Help:      "Histogram of wall time per iteration, including waiting.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.0083, 0.0167, 0.033, 0.05, 0.1, 0.25, 1},
		}),
	}

	if reg != nil {
		reg.MustRegister(c.Collectors()...)
	}
	return c
}

// Collectors returns every metric for registration.
func (c *Collector) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.Iterations,
		c.Updates,
		c.Bails,
		c.DroppedTicks,
		c.Idles,
		c.Sleeps,
		c.UpdatedTicks,
		c.UpdatesPerDraw,
		c.IterationTime,
	}
}

// ObserveIteration records one report.
func (c *Collector) ObserveIteration(r scheduler.IterationReport) {
	c.Iterations.Inc()
	c.Updates.Add(float64(r.Updates))
	c.Idles.Add(float64(r.Idles))
	c.Sleeps.Add(float64(r.Sleeps))
	if r.Bailed {
		c.Bails.Inc()
	}
	if r.Dropped > 0 {
		c.DroppedTicks.Add(float64(r.Dropped))
	}
	c.UpdatedTicks.Set(float64(r.Updated))
	c.UpdatesPerDraw.Observe(float64(r.Updates))
	c.IterationTime.Observe(r.Elapsed)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
