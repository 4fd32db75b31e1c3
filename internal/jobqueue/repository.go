package jobqueue

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"modelibr/internal/apperr"
	"modelibr/internal/assetmodel"
	"modelibr/internal/database"
	"modelibr/internal/metrics"
)

// Repository is the sqlx-backed store for the durable job queue.
type Repository struct {
	db *database.DB
}

// NewRepository constructs a Repository over db.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Enqueue appends a new job, or returns the id of an existing PENDING/LEASED
// job with the same (kind, target_entity_id, target_blob_hash) — this is the
// queue's dedup rule, preventing duplicate work when an upload or derivation
// request is replayed before the first attempt finishes.
func (r *Repository) Enqueue(ctx context.Context, p EnqueueParams) (jobID int64, wasNew bool, err error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = assetmodel.DefaultMaxAttempts
	}

	txErr := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var existingID int64
		err := tx.GetContext(ctx, &existingID, `
			SELECT id FROM jobs
			WHERE kind = $1 AND target_entity_id = $2 AND target_blob_hash = $3
			  AND status IN ('PENDING', 'LEASED')
			LIMIT 1`, p.Kind, p.TargetEntityID, p.TargetBlobHash)
		if err == nil {
			jobID = existingID
			wasNew = false
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.CodeFatalInternal, "checking for duplicate job", err)
		}

		var created assetmodel.Job
		err = tx.GetContext(ctx, &created, `
			INSERT INTO jobs (kind, target_entity_id, target_blob_hash, status, attempts, max_attempts, payload, priority, created_at, updated_at)
			VALUES ($1, $2, $3, 'PENDING', 0, $4, $5, $6, now(), now())
			RETURNING *`, p.Kind, p.TargetEntityID, p.TargetBlobHash, maxAttempts, p.Payload, p.Priority)
		if err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "creating job", err)
		}

		if err := appendEvent(ctx, tx, created.ID, assetmodel.JobEventEnqueued, "", nil); err != nil {
			return err
		}

		jobID = created.ID
		wasNew = true
		return nil
	})
	if txErr != nil {
		return 0, false, txErr
	}
	metrics.JobsEnqueuedTotal.WithLabelValues(string(p.Kind), boolLabel(!wasNew)).Inc()
	return jobID, wasNew, nil
}

// Lease atomically selects one eligible job and marks it LEASED to
// opts.WorkerID. Eligibility: PENDING, or LEASED with an expired lease, kind
// in opts.AcceptedKinds, and attempts < max_attempts. Selection order: oldest
// updated_at first, id as tiebreak. The candidate subquery takes its row
// lock with FOR UPDATE SKIP LOCKED, so concurrent lease attempts each grab a
// different eligible row instead of queueing on (and then losing) the same
// one — at most one winner per job, no spurious empty leases under
// contention.
func (r *Repository) Lease(ctx context.Context, opts LeaseOptions) (*assetmodel.Job, error) {
	if len(opts.AcceptedKinds) == 0 {
		return nil, nil
	}

	var job assetmodel.Job
	leaseSeconds := int(opts.LeaseDuration.Seconds())

	err := r.db.GetContext(ctx, &job, `
		UPDATE jobs SET
			status = 'LEASED',
			lease_owner = $1,
			lease_expiry = now() + make_interval(secs => $2),
			updated_at = now()
		WHERE id = (
			SELECT id FROM jobs
			WHERE kind = ANY($3)
			  AND attempts < max_attempts
			  AND (status = 'PENDING' OR (status = 'LEASED' AND lease_expiry < now()))
			ORDER BY updated_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`, opts.WorkerID, leaseSeconds, pq.Array(pqKindArray(opts.AcceptedKinds)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "leasing job", err)
	}

	if err := r.appendEventTopLevel(ctx, job.ID, assetmodel.JobEventLeased, "leased by "+opts.WorkerID, nil); err != nil {
		return nil, err
	}

	metrics.JobsLeasedTotal.WithLabelValues(string(job.Kind)).Inc()
	return &job, nil
}

// Renew extends a held lease's expiry iff worker_id still matches the
// current owner; returns LEASE_LOST otherwise.
func (r *Repository) Renew(ctx context.Context, jobID int64, workerID string, extra int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET
			lease_expiry = now() + make_interval(secs => $1),
			updated_at = now()
		WHERE id = $2 AND status = 'LEASED' AND lease_owner = $3`, extra, jobID, workerID)
	if err != nil {
		return apperr.Wrap(apperr.CodeFatalInternal, "renewing lease", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.CodeLeaseLost, "lease is no longer held by this worker")
	}
	return nil
}

// Complete transitions a LEASED job to DONE iff the owner matches, clears
// lease fields, and appends a COMPLETED event.
func (r *Repository) Complete(ctx context.Context, jobID int64, workerID string, resultPayload []byte) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var kind assetmodel.JobKind
		err := tx.GetContext(ctx, &kind, `
			UPDATE jobs SET
				status = 'DONE',
				lease_owner = NULL,
				lease_expiry = NULL,
				updated_at = now()
			WHERE id = $1 AND status = 'LEASED' AND lease_owner = $2
			RETURNING kind`, jobID, workerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.CodeLeaseLost, "lease is no longer held by this worker")
			}
			return apperr.Wrap(apperr.CodeFatalInternal, "completing job", err)
		}
		if err := appendEvent(ctx, tx, jobID, assetmodel.JobEventCompleted, "", resultPayload); err != nil {
			return err
		}
		metrics.JobsCompletedTotal.WithLabelValues(string(kind)).Inc()
		return nil
	})
}

// Fail transitions a LEASED job back to PENDING if attempts+1 is still under
// the cap, or to FAILED otherwise. The job's updated_at refresh pushes it to
// the back of the FIFO on reentry.
func (r *Repository) Fail(ctx context.Context, jobID int64, workerID, errorMessage string) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var job assetmodel.Job
		if err := tx.GetContext(ctx, &job, `
			SELECT * FROM jobs WHERE id = $1 AND status = 'LEASED' AND lease_owner = $2 FOR UPDATE`,
			jobID, workerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.CodeLeaseLost, "lease is no longer held by this worker")
			}
			return apperr.Wrap(apperr.CodeFatalInternal, "reading job for failure", err)
		}

		newAttempts := job.Attempts + 1
		newStatus := assetmodel.JobStatusPending
		if newAttempts >= job.MaxAttempts {
			newStatus = assetmodel.JobStatusFailed
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE jobs SET
				status = $1,
				attempts = $2,
				lease_owner = NULL,
				lease_expiry = NULL,
				last_error = $3,
				updated_at = now()
			WHERE id = $4`, newStatus, newAttempts, errorMessage, jobID)
		if err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "failing job", err)
		}

		if err := appendEvent(ctx, tx, jobID, assetmodel.JobEventFailed, errorMessage, nil); err != nil {
			return err
		}
		metrics.JobsFailedTotal.WithLabelValues(string(job.Kind), boolLabel(newStatus == assetmodel.JobStatusFailed)).Inc()
		return nil
	})
}

// ReclaimExpired scans for LEASED jobs whose lease has expired and either
// returns them to PENDING (under the attempt cap) or marks them FAILED.
// Invoked periodically by the sweeper; never touches DONE/FAILED jobs.
func (r *Repository) ReclaimExpired(ctx context.Context) (reclaimed int, err error) {
	txErr := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var expired []assetmodel.Job
		if err := tx.SelectContext(ctx, &expired, `
			SELECT * FROM jobs WHERE status = 'LEASED' AND lease_expiry < now() FOR UPDATE`); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "scanning expired leases", err)
		}

		for _, job := range expired {
			newAttempts := job.Attempts + 1
			newStatus := assetmodel.JobStatusPending
			if newAttempts >= job.MaxAttempts {
				newStatus = assetmodel.JobStatusFailed
			}

			_, err := tx.ExecContext(ctx, `
				UPDATE jobs SET
					status = $1,
					attempts = $2,
					lease_owner = NULL,
					lease_expiry = NULL,
					last_error = 'lease expired',
					updated_at = now()
				WHERE id = $3`, newStatus, newAttempts, job.ID)
			if err != nil {
				return apperr.Wrap(apperr.CodeFatalInternal, "reclaiming expired lease", err)
			}
			if err := appendEvent(ctx, tx, job.ID, assetmodel.JobEventExpiredReclaimed, "", nil); err != nil {
				return err
			}
			metrics.JobsReclaimedTotal.WithLabelValues(string(newStatus)).Inc()
			reclaimed++
		}
		return nil
	})
	if txErr != nil {
		return 0, txErr
	}
	return reclaimed, nil
}

// DeleteJobEventsOlderThan removes terminal-job audit entries past the
// configured retention window, bounding what would otherwise be unbounded
// audit-log growth.
func (r *Repository) DeleteJobEventsOlderThan(ctx context.Context, retentionSeconds int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM job_events WHERE job_id IN (
			SELECT id FROM jobs WHERE status IN ('DONE', 'FAILED')
		) AND created_at < now() - make_interval(secs => $1)`, retentionSeconds)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeFatalInternal, "deleting old job events", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetJob fetches a job by id.
func (r *Repository) GetJob(ctx context.Context, id int64) (*assetmodel.Job, error) {
	var job assetmodel.Job
	if err := r.db.GetContext(ctx, &job, `SELECT * FROM jobs WHERE id = $1`, id); err != nil {
		return nil, apperr.Wrap(apperr.CodeNotFound, "job not found", err)
	}
	return &job, nil
}

func appendEvent(ctx context.Context, tx *sqlx.Tx, jobID int64, kind assetmodel.JobEventKind, message string, payload []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO job_events (job_id, kind, message, payload, created_at)
		VALUES ($1, $2, $3, $4, now())`, jobID, kind, message, payload)
	if err != nil {
		return apperr.Wrap(apperr.CodeFatalInternal, "appending job event", err)
	}
	return nil
}

func (r *Repository) appendEventTopLevel(ctx context.Context, jobID int64, kind assetmodel.JobEventKind, message string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO job_events (job_id, kind, message, payload, created_at)
		VALUES ($1, $2, $3, $4, now())`, jobID, kind, message, payload)
	if err != nil {
		return apperr.Wrap(apperr.CodeFatalInternal, "appending job event", err)
	}
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func pqKindArray(kinds []assetmodel.JobKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
