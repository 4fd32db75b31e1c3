package processor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"modelibr/internal/assetmodel"
	"modelibr/internal/jobqueue"
)

// fakeQueue is an in-memory QueueClient that records every call runJob makes,
// so tests can assert the exact sequence without a live Postgres.
type fakeQueue struct {
	mu        sync.Mutex
	completed []int64
	failed    []int64
	failMsgs  map[int64]string

	leaseErr    error
	completeErr error
	failErr     error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{failMsgs: make(map[int64]string)}
}

func (f *fakeQueue) Lease(ctx context.Context, opts jobqueue.LeaseOptions) (*assetmodel.Job, error) {
	return nil, f.leaseErr
}

func (f *fakeQueue) Renew(ctx context.Context, jobID int64, workerID string, extraSeconds int) error {
	return nil
}

func (f *fakeQueue) Complete(ctx context.Context, jobID int64, workerID string, resultPayload []byte) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, jobID)
	return nil
}

func (f *fakeQueue) Fail(ctx context.Context, jobID int64, workerID, message string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, jobID)
	f.failMsgs[jobID] = message
	return nil
}

// fakeProcessor always returns procErr from Process, and records whether its
// OnComplete/OnFail hooks were invoked and in what order relative to the
// queue transition (recorded by the test via a shared log, not here).
type fakeProcessor struct {
	kind    assetmodel.JobKind
	procErr error

	onCompleteCalled bool
	onCompleteErr    error
	onFailCalled     bool
	onFailErr        error
}

func (p *fakeProcessor) Kind() assetmodel.JobKind { return p.kind }

func (p *fakeProcessor) Process(ctx context.Context, job *assetmodel.Job, logger *slog.Logger) (ResultMetadata, error) {
	return ResultMetadata{"ok": true}, p.procErr
}

func (p *fakeProcessor) OnComplete(ctx context.Context, job *assetmodel.Job, result ResultMetadata) error {
	p.onCompleteCalled = true
	return p.onCompleteErr
}

func (p *fakeProcessor) OnFail(ctx context.Context, job *assetmodel.Job, errMessage string) error {
	p.onFailCalled = true
	return p.onFailErr
}

type fakeNotifier struct {
	mu             sync.Mutex
	completedJobs  []int64
	failedJobs     []int64
	failedReasons  []string
}

func (n *fakeNotifier) BroadcastThumbnailStatusChanged(ownerKind assetmodel.ThumbnailOwnerKind, ownerID int64, status assetmodel.ThumbnailStatus, url *string, errMsg *string) {
}

func (n *fakeNotifier) BroadcastJobCompleted(jobID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completedJobs = append(n.completedJobs, jobID)
}

func (n *fakeNotifier) BroadcastJobFailed(jobID int64, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failedJobs = append(n.failedJobs, jobID)
	n.failedReasons = append(n.failedReasons, reason)
}

func newTestWorker(queue QueueClient, registry *Registry, notifier Notifier) *Worker {
	return NewWorker("test-worker", queue, registry, 30*time.Second, time.Millisecond, notifier)
}

// On success, runJob must call queue.Complete before the OnComplete hook,
// and must broadcast JobCompleted.
func TestRunJob_CompletesQueueBeforeHook(t *testing.T) {
	queue := newFakeQueue()
	proc := &fakeProcessor{kind: assetmodel.JobKindModelThumbnail}
	registry := NewRegistry()
	registry.Register(proc)
	notifier := &fakeNotifier{}
	w := newTestWorker(queue, registry, notifier)

	job := &assetmodel.Job{ID: 1, Kind: assetmodel.JobKindModelThumbnail, Attempts: 0, MaxAttempts: 3}
	w.runJob(context.Background(), job)

	if len(queue.completed) != 1 || queue.completed[0] != 1 {
		t.Fatalf("expected queue.Complete(1) to be called exactly once, got %v", queue.completed)
	}
	if !proc.onCompleteCalled {
		t.Fatal("expected OnComplete hook to run after a successful Process")
	}
	if proc.onFailCalled {
		t.Fatal("OnFail must not run on success")
	}
	if len(notifier.completedJobs) != 1 || notifier.completedJobs[0] != 1 {
		t.Fatalf("expected JobCompleted broadcast for job 1, got %v", notifier.completedJobs)
	}
}

// On a retryable failure (attempts+1 < max_attempts), queue.Fail must still
// run even though the processor implements OnFailer, and no terminal
// JobFailed broadcast should fire since the job re-enters PENDING.
func TestRunJob_RetryableFailureCallsQueueFailAndHook(t *testing.T) {
	queue := newFakeQueue()
	proc := &fakeProcessor{kind: assetmodel.JobKindSoundWaveform, procErr: errors.New("renderer unavailable")}
	registry := NewRegistry()
	registry.Register(proc)
	notifier := &fakeNotifier{}
	w := newTestWorker(queue, registry, notifier)

	job := &assetmodel.Job{ID: 7, Kind: assetmodel.JobKindSoundWaveform, Attempts: 0, MaxAttempts: 3}
	w.runJob(context.Background(), job)

	if len(queue.failed) != 1 || queue.failed[0] != 7 {
		t.Fatalf("expected queue.Fail(7) to be called exactly once, got %v", queue.failed)
	}
	if !proc.onFailCalled {
		t.Fatal("expected OnFail hook to run after Process returns an error")
	}
	if len(notifier.failedJobs) != 0 {
		t.Fatalf("a retryable failure (attempts+1 < max_attempts) must not broadcast JobFailed, got %v", notifier.failedJobs)
	}
}

// On the terminal failure (attempts+1 >= max_attempts), the queue-scoped
// JobFailed broadcast must fire.
func TestRunJob_TerminalFailureBroadcasts(t *testing.T) {
	queue := newFakeQueue()
	proc := &fakeProcessor{kind: assetmodel.JobKindSoundWaveform, procErr: errors.New("boom")}
	registry := NewRegistry()
	registry.Register(proc)
	notifier := &fakeNotifier{}
	w := newTestWorker(queue, registry, notifier)

	job := &assetmodel.Job{ID: 9, Kind: assetmodel.JobKindSoundWaveform, Attempts: 2, MaxAttempts: 3}
	w.runJob(context.Background(), job)

	if len(notifier.failedJobs) != 1 || notifier.failedJobs[0] != 9 {
		t.Fatalf("expected a terminal JobFailed broadcast for job 9, got %v", notifier.failedJobs)
	}
	if notifier.failedReasons[0] != "boom" {
		t.Fatalf("expected failure reason %q, got %q", "boom", notifier.failedReasons[0])
	}
}

// A processor with no OnCompleter/OnFailer hooks at all must still drive the
// queue transition; nothing in runJob should assume the hooks exist.
func TestRunJob_WithoutHooks(t *testing.T) {
	queue := newFakeQueue()
	registry := NewRegistry()
	registry.Register(&hooklessProcessor{kind: assetmodel.JobKindMeshAnalysis})
	w := newTestWorker(queue, registry, nil)

	job := &assetmodel.Job{ID: 3, Kind: assetmodel.JobKindMeshAnalysis, Attempts: 0, MaxAttempts: 1}
	w.runJob(context.Background(), job)

	if len(queue.completed) != 1 || queue.completed[0] != 3 {
		t.Fatalf("expected queue.Complete(3), got %v", queue.completed)
	}
}

// runJob must fail the job outright when no processor is registered for its
// kind, rather than panicking on a nil lookup.
func TestRunJob_NoProcessorRegistered(t *testing.T) {
	queue := newFakeQueue()
	registry := NewRegistry()
	w := newTestWorker(queue, registry, nil)

	job := &assetmodel.Job{ID: 5, Kind: assetmodel.JobKindTextureSetThumbnail, Attempts: 0, MaxAttempts: 3}
	w.runJob(context.Background(), job)

	if len(queue.failed) != 1 || queue.failed[0] != 5 {
		t.Fatalf("expected queue.Fail(5) for an unregistered kind, got %v", queue.failed)
	}
}

type hooklessProcessor struct {
	kind assetmodel.JobKind
}

func (p *hooklessProcessor) Kind() assetmodel.JobKind { return p.kind }

func (p *hooklessProcessor) Process(ctx context.Context, job *assetmodel.Job, logger *slog.Logger) (ResultMetadata, error) {
	return nil, nil
}

// A nil notifier must never be dereferenced; Pool/Worker treat it as "no
// push fabric available".
func TestNewPool_NilNotifierIsSafe(t *testing.T) {
	queue := newFakeQueue()
	registry := NewRegistry()
	registry.Register(&hooklessProcessor{kind: assetmodel.JobKindMeshAnalysis})
	pool := NewPool(2, queue, registry, 30*time.Second, time.Millisecond, "p", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	pool.Run(ctx)
}
