// Package metrics provides Prometheus metrics for the pipeline, the task
// queue, the cadence scheduler and endpoint submissions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "autoblog"

var (
	// Pipeline stage runs by stage and result
	StageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_runs_total",
			Help:      "Total number of pipeline stage runs by stage and result",
		},
		[]string{"stage", "result"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	// HTTP API metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Task queue metrics
	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_enqueued_total",
			Help:      "Total number of enqueued jobs by task name",
		},
		[]string{"task"},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Total number of processed jobs by task name and result",
		},
		[]string{"task", "result"},
	)

	JobsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_pending",
			Help:      "Jobs waiting to run, sampled by the worker service",
		},
	)

	// Cadence scheduler metrics
	SchedulerProjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "projects_total",
			Help:      "Projects seen by the cadence scheduler by outcome",
		},
		[]string{"outcome"},
	)

	SchedulerTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total number of cadence scheduler runs",
		},
	)

	// Endpoint submissions by result
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submission",
			Name:      "total",
			Help:      "Total number of endpoint submissions by result",
		},
		[]string{"result"},
	)
)

// ObserveStage records one stage run
func ObserveStage(stage string, ok bool, elapsed time.Duration) {
	StageRunsTotal.WithLabelValues(stage, result(ok)).Inc()
	StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveJob records one processed queue job
func ObserveJob(task string, ok bool) {
	JobsProcessedTotal.WithLabelValues(task, result(ok)).Inc()
}

// ObserveSubmission records one endpoint submission attempt
func ObserveSubmission(result string) {
	SubmissionsTotal.WithLabelValues(result).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
