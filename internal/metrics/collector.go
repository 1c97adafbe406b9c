// ============================================================================
// rfm Metrics - Prometheus Monitoring
// ============================================================================
//
// Package: internal/metrics
// File: collector.go
// Purpose: Collect and expose Prometheus metrics for the task engine.
//          Counters/histograms/gauges registered via MustRegister, served
//          over a promhttp.Handler HTTP endpoint. Wired in as an
//          events.Listener rather than being called explicitly from the
//          engine.
//
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/regtest/rfmrun/internal/events"
	"github.com/regtest/rfmrun/pkg/rfm"
)

// Collector collects Prometheus metrics for task submission, completion,
// and poll activity. It implements events.Listener so the engine never
// calls it directly; registering it on the bus is enough.
type Collector struct {
	events.BaseListener

	tasksSubmitted prometheus.Counter
	tasksRetired   prometheus.Counter
	tasksSkipped   prometheus.Counter
	tasksFailed    prometheus.Counter

	stageDuration *prometheus.HistogramVec

	pollsTotal prometheus.Counter

	queueDepth *prometheus.GaugeVec

	start map[rfm.CaseKey]time.Time
}

// NewCollector builds and registers a Collector's metrics with the default
// Prometheus registry.
func NewCollector() *Collector {
	c := &Collector{
		tasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfm_tasks_submitted_total",
			Help: "Total number of tasks submitted to the engine",
		}),
		tasksRetired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfm_tasks_retired_total",
			Help: "Total number of tasks that completed successfully and were retired",
		}),
		tasksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfm_tasks_skipped_total",
			Help: "Total number of tasks skipped (self-requested or dependency-driven)",
		}),
		tasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfm_tasks_failed_total",
			Help: "Total number of tasks that failed",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rfm_stage_duration_seconds",
			Help:    "Per-phase pipeline stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		pollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfm_scheduler_polls_total",
			Help: "Total number of scheduler poll rounds observed via task transitions",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rfm_partition_queue_depth",
			Help: "Current number of tasks admitted into a partition's queue",
		}, []string{"partition"}),
		start: make(map[rfm.CaseKey]time.Time),
	}

	prometheus.MustRegister(c.tasksSubmitted)
	prometheus.MustRegister(c.tasksRetired)
	prometheus.MustRegister(c.tasksSkipped)
	prometheus.MustRegister(c.tasksFailed)
	prometheus.MustRegister(c.stageDuration)
	prometheus.MustRegister(c.pollsTotal)
	prometheus.MustRegister(c.queueDepth)

	return c
}

// OnTaskSetup marks a task as submitted and starts its total-duration clock.
func (c *Collector) OnTaskSetup(t events.TaskSnapshot) error {
	c.tasksSubmitted.Inc()
	c.start[t.Case.Key()] = time.Now()
	c.queueDepth.WithLabelValues(t.Case.Partition).Inc()
	return nil
}

// OnTaskSuccess records the task's per-phase timings. The queue-depth gauge
// is decremented in OnTaskExit, not here.
func (c *Collector) OnTaskSuccess(t events.TaskSnapshot) error {
	c.tasksRetired.Inc()
	c.observeTimings(t)
	return nil
}

// OnTaskFailure records the failure and the timings accumulated so far.
func (c *Collector) OnTaskFailure(t events.TaskSnapshot) error {
	c.tasksFailed.Inc()
	c.observeTimings(t)
	return nil
}

// OnTaskSkip records the skip; a skipped task never reaches most phases, so
// its timings map is typically empty or near-empty.
func (c *Collector) OnTaskSkip(t events.TaskSnapshot) error {
	c.tasksSkipped.Inc()
	c.observeTimings(t)
	return nil
}

// OnTaskCompileExit and OnTaskExit each correspond to one scheduler poll
// round having resolved a task out of the compiling/running stage.
func (c *Collector) OnTaskCompileExit(t events.TaskSnapshot) error {
	c.pollsTotal.Inc()
	return nil
}

func (c *Collector) OnTaskExit(t events.TaskSnapshot) error {
	c.pollsTotal.Inc()
	c.queueDepth.WithLabelValues(t.Case.Partition).Dec()
	return nil
}

func (c *Collector) observeTimings(t events.TaskSnapshot) {
	for phase, d := range t.Timings {
		c.stageDuration.WithLabelValues(string(phase)).Observe(d.Seconds())
	}
	delete(c.start, t.Case.Key())
}

// StartServer starts the Prometheus /metrics HTTP endpoint on port.
func StartServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
