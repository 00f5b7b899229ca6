// Package metrics exposes Prometheus instrumentation for export attempts.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus instruments for export attempts
type Collector struct {
	started   prometheus.Counter
	completed prometheus.Counter
	timedOut  prometheus.Counter
	failed    prometheus.Counter
	fallbacks prometheus.Counter
	duration  prometheus.Histogram
}

// NewCollector creates a Collector and registers its instruments with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exportprobe_exports_started_total",
			Help: "Export attempts started.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exportprobe_exports_completed_total",
			Help: "Export attempts that completed successfully.",
		}),
		timedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exportprobe_exports_timed_out_total",
			Help: "Export attempts that hit the gate timeout.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exportprobe_exports_failed_total",
			Help: "Export attempts that terminated with a pipeline error.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exportprobe_fallbacks_applied_total",
			Help: "Export attempts where the encoder applied a configuration fallback.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "exportprobe_export_duration_seconds",
			Help:    "Wall-clock duration of completed export attempts.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	reg.MustRegister(c.started, c.completed, c.timedOut, c.failed, c.fallbacks, c.duration)
	return c
}

// ExportStarted counts a new attempt
func (c *Collector) ExportStarted() {
	if c == nil {
		return
	}
	c.started.Inc()
}

// ExportCompleted counts a successful attempt and observes its duration
func (c *Collector) ExportCompleted(elapsed time.Duration) {
	if c == nil {
		return
	}
	c.completed.Inc()
	c.duration.Observe(elapsed.Seconds())
}

// ExportTimedOut counts an attempt that hit the gate timeout
func (c *Collector) ExportTimedOut() {
	if c == nil {
		return
	}
	c.timedOut.Inc()
}

// ExportFailed counts an attempt that terminated with a pipeline error
func (c *Collector) ExportFailed() {
	if c == nil {
		return
	}
	c.failed.Inc()
}

// FallbackApplied counts an attempt where a configuration fallback occurred
func (c *Collector) FallbackApplied() {
	if c == nil {
		return
	}
	c.fallbacks.Inc()
}
