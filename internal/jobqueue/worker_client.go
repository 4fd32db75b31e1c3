package jobqueue

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"modelibr/internal/apperr"
	"modelibr/internal/assetmodel"
)

// WorkerClient wraps Repository's Lease/Renew/Complete/Fail calls in a
// circuit breaker, so a flaky Postgres instance degrades workers to
// TRANSIENT_DEPENDENCY instead of every worker blocking on dial timeouts
// during an outage. The HTTP-tier Enqueue path does not go through this
// client — only the many-workers-against-one-database side benefits from
// tripping open.
type WorkerClient struct {
	repo    *Repository
	breaker *gobreaker.CircuitBreaker
}

// NewWorkerClient constructs a WorkerClient around repo.
func NewWorkerClient(repo *Repository) *WorkerClient {
	settings := gobreaker.Settings{
		Name:        "jobqueue-worker-db",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// LEASE_LOST is routine worker/database contention, not a sign the
			// database itself is unhealthy; only count genuine backend
			// failures toward the trip threshold.
			return err == nil || apperr.CodeOf(err) != apperr.CodeFatalInternal
		},
	}
	return &WorkerClient{repo: repo, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (c *WorkerClient) Lease(ctx context.Context, opts LeaseOptions) (*assetmodel.Job, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.repo.Lease(ctx, opts)
	})
	if err != nil {
		return nil, translateBreakerError(err)
	}
	job, _ := result.(*assetmodel.Job)
	return job, nil
}

func (c *WorkerClient) Renew(ctx context.Context, jobID int64, workerID string, extraSeconds int) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.repo.Renew(ctx, jobID, workerID, extraSeconds)
	})
	return translateBreakerError(err)
}

func (c *WorkerClient) Complete(ctx context.Context, jobID int64, workerID string, resultPayload []byte) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.repo.Complete(ctx, jobID, workerID, resultPayload)
	})
	return translateBreakerError(err)
}

func (c *WorkerClient) Fail(ctx context.Context, jobID int64, workerID, message string) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.repo.Fail(ctx, jobID, workerID, message)
	})
	return translateBreakerError(err)
}

func translateBreakerError(err error) error {
	if err == nil {
		return nil
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return apperr.Wrap(apperr.CodeTransientDependency, "job queue database circuit open", err)
	}
	return err
}
