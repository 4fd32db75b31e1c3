// Package metrics exposes process-wide Prometheus collectors for the job
// queue and worker loop. Counters and histograms are package-level globals
// registered against the default registry, mirroring how the rest of this
// ecosystem's operators (job queues, control planes) wire client_golang: a
// small fixed set of named instruments recorded from call sites, scraped via
// a single /metrics handler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsEnqueuedTotal counts Enqueue calls, split by whether they created a
	// new job or returned an existing one under the dedup rule.
	JobsEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modelibr_jobs_enqueued_total",
		Help: "Total job enqueue calls by kind and whether a new job row was created.",
	}, []string{"kind", "deduplicated"})

	// JobsLeasedTotal counts successful leases by kind.
	JobsLeasedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modelibr_jobs_leased_total",
		Help: "Total jobs leased by kind.",
	}, []string{"kind"})

	// JobsCompletedTotal counts terminal completions by kind.
	JobsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modelibr_jobs_completed_total",
		Help: "Total jobs that reached DONE, by kind.",
	}, []string{"kind"})

	// JobsFailedTotal counts terminal and retried failures by kind and
	// whether the failure was terminal (cap reached) or returned to PENDING.
	JobsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modelibr_jobs_failed_total",
		Help: "Total Fail() calls by kind and resulting status (PENDING retry or terminal FAILED).",
	}, []string{"kind", "terminal"})

	// JobsReclaimedTotal counts expired-lease reclamations performed by the
	// sweeper, by the resulting status.
	JobsReclaimedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modelibr_jobs_reclaimed_total",
		Help: "Total expired leases reclaimed by the sweeper, by resulting status.",
	}, []string{"status"})

	// JobProcessingDuration records wall-clock time spent inside
	// Processor.Process, by kind and outcome.
	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modelibr_job_processing_duration_seconds",
		Help:    "Time spent executing a job's Processor.Process, by kind and outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "outcome"})

	// PushHubConnections tracks the number of currently connected push-hub
	// clients.
	PushHubConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modelibr_push_hub_connections",
		Help: "Current number of connected push notification hub clients.",
	})
)

// ObserveProcessingDuration records the duration a processor spent on a job
// of the given kind with the given outcome ("completed" or "failed").
func ObserveProcessingDuration(kind, outcome string, d time.Duration) {
	JobProcessingDuration.WithLabelValues(kind, outcome).Observe(d.Seconds())
}
