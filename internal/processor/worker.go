package processor

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"modelibr/internal/assetmodel"
	"modelibr/internal/jobqueue"
	"modelibr/internal/metrics"
)

// QueueClient is the subset of jobqueue.WorkerClient a Worker drives.
// Declared here, satisfied implicitly by *jobqueue.WorkerClient, so this
// package's tests can substitute a fake without a live Postgres.
type QueueClient interface {
	Lease(ctx context.Context, opts jobqueue.LeaseOptions) (*assetmodel.Job, error)
	Renew(ctx context.Context, jobID int64, workerID string, extraSeconds int) error
	Complete(ctx context.Context, jobID int64, workerID string, resultPayload []byte) error
	Fail(ctx context.Context, jobID int64, workerID, message string) error
}

// Worker is a single worker-loop actor: lease, process, complete/fail,
// repeated forever, with a renewal ticker running alongside processing so a
// slow job doesn't lose its lease mid-flight.
type Worker struct {
	ID            string
	queue         QueueClient
	registry      *Registry
	leaseDuration time.Duration
	idleBackoff   time.Duration
	notifier      Notifier
}

// NewWorker constructs a Worker. notifier may be nil — a worker process with
// no local push fabric (e.g. a horizontally-scaled out-of-process worker
// that does not host client WebSocket connections) simply skips the
// queue-scoped JobCompleted/JobFailed broadcasts; clients fall back to
// polling.
func NewWorker(id string, queue QueueClient, registry *Registry, leaseDuration, idleBackoff time.Duration, notifier Notifier) *Worker {
	return &Worker{ID: id, queue: queue, registry: registry, leaseDuration: leaseDuration, idleBackoff: idleBackoff, notifier: notifier}
}

// Run blocks, leasing and processing jobs until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.queue.Lease(ctx, jobqueue.LeaseOptions{
			WorkerID:      w.ID,
			AcceptedKinds: w.registry.AcceptedKinds(),
			LeaseDuration: w.leaseDuration,
		})
		if err != nil {
			slog.Error("lease attempt failed", "worker", w.ID, "error", err)
			sleepOrDone(ctx, w.idleBackoff)
			continue
		}
		if job == nil {
			sleepOrDone(ctx, w.idleBackoff)
			continue
		}

		w.runJob(ctx, job)
	}
}

func (w *Worker) runJob(ctx context.Context, job *assetmodel.Job) {
	proc, ok := w.registry.Lookup(job.Kind)
	if !ok {
		_ = w.queue.Fail(ctx, job.ID, w.ID, "no processor registered for kind "+string(job.Kind))
		return
	}

	renewCtx, stopRenewal := context.WithCancel(ctx)
	renewalDone := make(chan struct{})
	go w.renewalTicker(renewCtx, renewalDone, job.ID)

	jobLogger := slog.Default().With("job_id", job.ID, "kind", job.Kind, "worker", w.ID)

	started := time.Now()
	result, procErr := proc.Process(ctx, job, jobLogger)

	// The renewal ticker MUST stop before the terminal queue call: a stale
	// renewal firing after completion could otherwise overwrite a job that
	// another worker has since leased again.
	stopRenewal()
	<-renewalDone

	if procErr != nil {
		metrics.ObserveProcessingDuration(string(job.Kind), "failed", time.Since(started))
		jobLogger.Error("job processing failed", "error", procErr)
		if err := w.queue.Fail(ctx, job.ID, w.ID, procErr.Error()); err != nil {
			jobLogger.Error("failing job in queue failed", "error", err)
			return
		}
		// Only the terminal FAILED transition (attempts exhausted) is a
		// queue-scoped JobFailed broadcast; a retry re-entering PENDING is
		// not a terminal outcome clients need pushed.
		if w.notifier != nil && job.Attempts+1 >= job.MaxAttempts {
			w.notifier.BroadcastJobFailed(job.ID, procErr.Error())
		}
		// The side-effect hook runs only after the canonical transition has
		// committed, so a hook failure never leaves the job's own status
		// inconsistent with what Thumbnail/notifier observers are told.
		if failer, ok := proc.(OnFailer); ok {
			if err := failer.OnFail(ctx, job, procErr.Error()); err != nil {
				jobLogger.Error("OnFail hook failed", "error", err)
			}
		}
		return
	}

	metrics.ObserveProcessingDuration(string(job.Kind), "completed", time.Since(started))
	if err := w.queue.Complete(ctx, job.ID, w.ID, nil); err != nil {
		jobLogger.Error("completing job in queue failed", "error", err)
		return
	}
	if w.notifier != nil {
		w.notifier.BroadcastJobCompleted(job.ID)
	}
	if completer, ok := proc.(OnCompleter); ok {
		if err := completer.OnComplete(ctx, job, result); err != nil {
			jobLogger.Error("OnComplete hook failed", "error", err)
		}
	}
}

func (w *Worker) renewalTicker(ctx context.Context, done chan<- struct{}, jobID int64) {
	defer close(done)
	interval := w.leaseDuration / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			extra := int(w.leaseDuration.Seconds())
			if err := w.queue.Renew(ctx, jobID, w.ID, extra); err != nil {
				slog.Warn("lease renewal failed", "job_id", jobID, "worker", w.ID, "error", err)
			}
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Pool runs a fixed-size set of Workers sharing one registry and queue
// client, each leasing and processing jobs concurrently.
type Pool struct {
	workers []*Worker
}

// NewPool constructs n Workers sharing one Registry and QueueClient.
// notifier may be nil; see NewWorker.
func NewPool(n int, queue QueueClient, registry *Registry, leaseDuration, idleBackoff time.Duration, idPrefix string, notifier Notifier) *Pool {
	workers := make([]*Worker, n)
	for i := 0; i < n; i++ {
		workers[i] = NewWorker(idPrefix+"-"+strconv.Itoa(i), queue, registry, leaseDuration, idleBackoff, notifier)
	}
	return &Pool{workers: workers}
}

// Run starts every worker and blocks until ctx is canceled and all workers
// have returned.
func (p *Pool) Run(ctx context.Context) {
	done := make(chan struct{}, len(p.workers))
	for _, w := range p.workers {
		w := w
		go func() {
			w.Run(ctx)
			done <- struct{}{}
		}()
	}
	for range p.workers {
		<-done
	}
}
