package jobqueue

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically reclaims expired leases and trims old job events,
// modeled on the teacher's IPRateLimiter.cleanupLoop ticker-driven
// maintenance goroutine.
type Sweeper struct {
	repo              *Repository
	reclaimInterval   time.Duration
	jobEventRetention time.Duration
}

// NewSweeper constructs a Sweeper.
func NewSweeper(repo *Repository, reclaimInterval, jobEventRetention time.Duration) *Sweeper {
	return &Sweeper{repo: repo, reclaimInterval: reclaimInterval, jobEventRetention: jobEventRetention}
}

// Run blocks, sweeping on reclaimInterval until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.reclaimInterval)
	defer ticker.Stop()

	retentionCounter := 0
	const retentionEvery = 10 // run the cheaper reclaim pass far more often than the retention sweep

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reclaimed, err := s.repo.ReclaimExpired(ctx)
			if err != nil {
				slog.Error("reclaim sweep failed", "error", err)
			} else if reclaimed > 0 {
				slog.Info("reclaimed expired leases", "count", reclaimed)
			}

			retentionCounter++
			if retentionCounter >= retentionEvery {
				retentionCounter = 0
				deleted, err := s.repo.DeleteJobEventsOlderThan(ctx, int(s.jobEventRetention.Seconds()))
				if err != nil {
					slog.Error("job event retention sweep failed", "error", err)
				} else if deleted > 0 {
					slog.Info("pruned old job events", "count", deleted)
				}
			}
		}
	}
}
