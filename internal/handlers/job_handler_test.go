package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"modelibr/internal/assetmodel"
	"modelibr/internal/database"
	"modelibr/internal/jobqueue"
)

func newJobRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := jobqueue.NewRepository(&database.DB{DB: sqlx.NewDb(db, "postgres")})
	h := NewJobHandler(jobqueue.NewWorkerClient(repo))

	r := gin.New()
	r.POST("/jobs/lease", h.Lease)
	r.POST("/jobs/:id/renew", h.Renew)
	r.POST("/jobs/:id/complete", h.Complete)
	r.POST("/jobs/:id/fail", h.Fail)
	return r, mock
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var leasedJobColumns = []string{
	"id", "kind", "target_entity_id", "target_blob_hash", "status", "attempts",
	"max_attempts", "lease_owner", "lease_expiry", "last_error", "payload",
	"created_at", "updated_at", "priority",
}

func TestLeaseEndpoint_ReturnsJob(t *testing.T) {
	r, mock := newJobRouter(t)

	expiry := time.Now().Add(10 * time.Minute)
	mock.ExpectQuery(`UPDATE jobs SET`).
		WillReturnRows(sqlmock.NewRows(leasedJobColumns).AddRow(
			int64(5), string(assetmodel.JobKindModelThumbnail), int64(42), "deadbeef",
			string(assetmodel.JobStatusLeased), int64(0), int64(3), "worker-a", expiry,
			nil, []byte("null"), time.Now(), time.Now(), int64(0)))
	mock.ExpectExec(`INSERT INTO job_events`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := postJSON(t, r, "/jobs/lease", gin.H{
		"workerId":      "worker-a",
		"acceptedKinds": []string{"MODEL_THUMBNAIL"},
		"leaseSeconds":  600,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var job assetmodel.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("decoding job: %v", err)
	}
	if job.ID != 5 || job.Kind != assetmodel.JobKindModelThumbnail {
		t.Errorf("job = %+v, want id 5 kind MODEL_THUMBNAIL", job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLeaseEndpoint_NoEligibleJobIs204(t *testing.T) {
	r, mock := newJobRouter(t)

	mock.ExpectQuery(`UPDATE jobs SET`).WillReturnError(sql.ErrNoRows)

	w := postJSON(t, r, "/jobs/lease", gin.H{
		"workerId":      "worker-a",
		"acceptedKinds": []string{"MODEL_THUMBNAIL"},
	})

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204; body: %s", w.Code, w.Body.String())
	}
}

func TestLeaseEndpoint_MissingWorkerIDIs400(t *testing.T) {
	r, _ := newJobRouter(t)

	w := postJSON(t, r, "/jobs/lease", gin.H{"acceptedKinds": []string{"MODEL_THUMBNAIL"}})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
	}
}

func TestRenewEndpoint_MismatchedWorkerIs409LeaseLost(t *testing.T) {
	r, mock := newJobRouter(t)

	// Zero rows updated: the lease has expired or belongs to another worker.
	mock.ExpectExec(`UPDATE jobs SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	w := postJSON(t, r, "/jobs/7/renew", gin.H{
		"workerId":     "worker-b",
		"extraSeconds": 600,
	})

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body: %s", w.Code, w.Body.String())
	}
	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if envelope.Success || envelope.Message != "LEASE_LOST" {
		t.Errorf("envelope = %+v, want success=false message=LEASE_LOST", envelope)
	}
}

func TestCompleteEndpoint_MismatchedWorkerIs409(t *testing.T) {
	r, mock := newJobRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE jobs SET`).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	w := postJSON(t, r, "/jobs/7/complete", gin.H{"workerId": "worker-b"})

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body: %s", w.Code, w.Body.String())
	}
}

func TestFailEndpoint_RequiresReason(t *testing.T) {
	r, _ := newJobRouter(t)

	w := postJSON(t, r, "/jobs/7/fail", gin.H{"workerId": "worker-a"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
	}
}
