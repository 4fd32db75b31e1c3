package jobqueue

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"modelibr/internal/apperr"
	"modelibr/internal/assetmodel"
	"modelibr/internal/database"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	sdb := sqlx.NewDb(db, "postgres")
	return NewRepository(&database.DB{DB: sdb}), mock
}

var jobColumns = []string{
	"id", "kind", "target_entity_id", "target_blob_hash", "status", "attempts",
	"max_attempts", "lease_owner", "lease_expiry", "last_error", "payload",
	"created_at", "updated_at", "priority",
}

// jobRow builds a row matching jobColumns using plain driver-compatible
// types (string/int64/time.Time), the way sqlmock expects raw column
// values to arrive before sqlx's StructScan converts them into the typed
// Job fields.
func jobRow(id int64, status assetmodel.JobStatus, attempts, maxAttempts int) []driver.Value {
	return []driver.Value{id, string(assetmodel.JobKindModelThumbnail), int64(42), "deadbeef", string(status), int64(attempts), int64(maxAttempts), nil, nil, nil, []byte("null"), time.Now(), time.Now(), int64(0)}
}

// Enqueue's dedup rule: a PENDING/LEASED job with the same (kind, entity,
// blob hash) must be returned instead of creating a second row.
func TestEnqueue_ReturnsExistingDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM jobs`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	id, wasNew, err := repo.Enqueue(context.Background(), EnqueueParams{
		Kind: assetmodel.JobKindModelThumbnail, TargetEntityID: 42, TargetBlobHash: "deadbeef",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if wasNew {
		t.Fatal("expected wasNew=false for a duplicate in-flight job")
	}
	if id != 7 {
		t.Fatalf("expected existing job id 7, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnqueue_CreatesNewJobWhenNoDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM jobs`).WillReturnError(sqlErrNoRows())
	mock.ExpectQuery(`INSERT INTO jobs`).
		WillReturnRows(sqlmock.NewRows(jobColumns).AddRow(jobRow(11, assetmodel.JobStatusPending, 0, 3)...))
	mock.ExpectExec(`INSERT INTO job_events`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	id, wasNew, err := repo.Enqueue(context.Background(), EnqueueParams{
		Kind: assetmodel.JobKindModelThumbnail, TargetEntityID: 42, TargetBlobHash: "deadbeef",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !wasNew {
		t.Fatal("expected wasNew=true when no duplicate exists")
	}
	if id != 11 {
		t.Fatalf("expected new job id 11, got %d", id)
	}
}

// Lease returns nil, nil (not an error) when no row is eligible — the
// worker loop treats this as "sleep and retry", not a failure.
func TestLease_NoEligibleJobReturnsNilWithoutError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE jobs SET`).WillReturnError(sqlErrNoRows())

	job, err := repo.Lease(context.Background(), LeaseOptions{
		WorkerID: "w1", AcceptedKinds: []assetmodel.JobKind{assetmodel.JobKindModelThumbnail}, LeaseDuration: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job, got %+v", job)
	}
}

func TestLease_EmptyAcceptedKindsReturnsNilWithoutQuerying(t *testing.T) {
	repo, mock := newMockRepo(t)

	job, err := repo.Lease(context.Background(), LeaseOptions{WorkerID: "w1", LeaseDuration: time.Second})
	if err != nil || job != nil {
		t.Fatalf("expected (nil, nil) for no accepted kinds, got (%+v, %v)", job, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("Lease must not issue any query when AcceptedKinds is empty: %v", err)
	}
}

func TestLease_ReturnsWinningJobAndLogsLeasedEvent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE jobs SET`).
		WillReturnRows(sqlmock.NewRows(jobColumns).AddRow(jobRow(3, assetmodel.JobStatusLeased, 0, 3)...))
	mock.ExpectExec(`INSERT INTO job_events`).WillReturnResult(sqlmock.NewResult(1, 1))

	job, err := repo.Lease(context.Background(), LeaseOptions{
		WorkerID: "w1", AcceptedKinds: []assetmodel.JobKind{assetmodel.JobKindModelThumbnail}, LeaseDuration: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	if job == nil || job.ID != 3 {
		t.Fatalf("expected job 3, got %+v", job)
	}
}

// Renew fails with LEASE_LOST when the CAS affects zero rows (the worker no
// longer holds the lease).
func TestRenew_LeaseLostWhenOwnerMismatch(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE jobs SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Renew(context.Background(), 1, "w1", 30)
	if err == nil {
		t.Fatal("expected LEASE_LOST error")
	}
	if apperr.CodeOf(err) != apperr.CodeLeaseLost {
		t.Fatalf("expected CodeLeaseLost, got %v", apperr.CodeOf(err))
	}
}

func TestRenew_SucceedsWhenOwnerMatches(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE jobs SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Renew(context.Background(), 1, "w1", 30); err != nil {
		t.Fatalf("Renew: %v", err)
	}
}

// Fail transitions LEASED -> PENDING while attempts+1 is still under the cap.
func TestFail_RetriesUnderAttemptCap(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM jobs WHERE id = \$1 AND status = 'LEASED'`).
		WillReturnRows(sqlmock.NewRows(jobColumns).AddRow(jobRow(5, assetmodel.JobStatusLeased, 0, 3)...))
	mock.ExpectExec(`UPDATE jobs SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO job_events`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Fail(context.Background(), 5, "w1", "render error"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
}

// Fail transitions LEASED -> FAILED once attempts+1 reaches the cap.
func TestFail_TerminatesAtAttemptCap(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM jobs WHERE id = \$1 AND status = 'LEASED'`).
		WillReturnRows(sqlmock.NewRows(jobColumns).AddRow(jobRow(5, assetmodel.JobStatusLeased, 1, 2)...))
	mock.ExpectExec(`UPDATE jobs SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO job_events`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Fail(context.Background(), 5, "w1", "render error"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
}

// Complete transitions LEASED -> DONE when the owner matches.
func TestComplete_SucceedsWhenOwnerMatches(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE jobs SET`).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow(string(assetmodel.JobKindModelThumbnail)))
	mock.ExpectExec(`INSERT INTO job_events`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Complete(context.Background(), 5, "w1", nil); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

// Complete fails with LEASE_LOST when the CAS matches no row.
func TestComplete_LeaseLostWhenOwnerMismatch(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE jobs SET`).WillReturnError(sqlErrNoRows())
	mock.ExpectRollback()

	err := repo.Complete(context.Background(), 5, "w2", nil)
	if apperr.CodeOf(err) != apperr.CodeLeaseLost {
		t.Fatalf("expected CodeLeaseLost, got %v", apperr.CodeOf(err))
	}
}

func sqlErrNoRows() error {
	return sql.ErrNoRows
}
