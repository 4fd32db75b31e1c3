package handlers

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"modelibr/internal/assetgraph"
	"modelibr/internal/assetmodel"
	"modelibr/internal/database"
	"modelibr/internal/jobqueue"
)

func newThumbnailRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	wrapped := &database.DB{DB: sqlx.NewDb(db, "postgres")}
	h := NewThumbnailHandler(assetgraph.NewRepository(wrapped), nil, jobqueue.NewRepository(wrapped))

	r := gin.New()
	r.GET("/models/:id/thumbnail", h.GetThumbnailStatus)
	r.POST("/models/:id/thumbnail/regenerate", h.RegenerateThumbnail)
	return r, mock
}

var modelColumns = []string{
	"id", "name", "tags", "description", "default_texture_set_id",
	"active_version_id", "is_deleted", "deleted_at", "created_at", "updated_at",
}

func modelRow(id int64, activeVersionID *int64) []driver.Value {
	return []driver.Value{id, "cube", nil, "", nil, activeVersionID, false, nil, time.Now(), time.Now()}
}

var thumbnailColumns = []string{
	"id", "owner_kind", "owner_id", "status", "output_blob_hash", "width",
	"height", "size_bytes", "error_message", "created_at", "processed_at",
}

func getPath(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// A model uploaded moments ago has no thumbnail row yet; its status endpoint
// reports Pending, never 404.
func TestGetThumbnailStatus_NoRowYetIsPending(t *testing.T) {
	r, mock := newThumbnailRouter(t)

	active := int64(11)
	mock.ExpectQuery(`SELECT \* FROM models WHERE id`).
		WillReturnRows(sqlmock.NewRows(modelColumns).AddRow(modelRow(1, &active)...))
	mock.ExpectQuery(`SELECT \* FROM thumbnails`).
		WillReturnError(sql.ErrNoRows)

	w := getPath(t, r, "/models/1/thumbnail")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Status  string  `json:"status"`
		FileURL *string `json:"fileUrl"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != string(assetmodel.ThumbnailPending) {
		t.Errorf("status = %q, want PENDING", resp.Status)
	}
	if resp.FileURL != nil {
		t.Error("a pending thumbnail must not advertise a file URL")
	}
}

func TestGetThumbnailStatus_ReadyIncludesFileURL(t *testing.T) {
	r, mock := newThumbnailRouter(t)

	active := int64(11)
	outputHash := "cafebabe"
	width, height := 256, 256
	size := int64(8192)
	processed := time.Now()

	mock.ExpectQuery(`SELECT \* FROM models WHERE id`).
		WillReturnRows(sqlmock.NewRows(modelColumns).AddRow(modelRow(1, &active)...))
	mock.ExpectQuery(`SELECT \* FROM thumbnails`).
		WillReturnRows(sqlmock.NewRows(thumbnailColumns).AddRow(
			int64(2), string(assetmodel.ThumbnailOwnerModelVersion), active,
			string(assetmodel.ThumbnailReady), outputHash, width, height, size,
			nil, time.Now(), processed))

	w := getPath(t, r, "/models/1/thumbnail")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Status  string  `json:"status"`
		FileURL *string `json:"fileUrl"`
		Width   *int    `json:"width"`
		Height  *int    `json:"height"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != string(assetmodel.ThumbnailReady) {
		t.Errorf("status = %q, want READY", resp.Status)
	}
	if resp.FileURL == nil || *resp.FileURL != "/models/1/thumbnail/file" {
		t.Errorf("fileUrl = %v, want /models/1/thumbnail/file", resp.FileURL)
	}
	if resp.Width == nil || *resp.Width <= 0 || resp.Height == nil || *resp.Height <= 0 {
		t.Errorf("dimensions = %v x %v, want positive", resp.Width, resp.Height)
	}
}

// Regenerate goes through the queue's dedup rule: a second request while the
// first job is still non-terminal returns the same job id.
func TestRegenerateThumbnail_DedupsThroughQueue(t *testing.T) {
	r, mock := newThumbnailRouter(t)

	active := int64(11)
	mock.ExpectQuery(`SELECT \* FROM models WHERE id`).
		WillReturnRows(sqlmock.NewRows(modelColumns).AddRow(modelRow(1, &active)...))
	mock.ExpectQuery(`SELECT blob_hash FROM model_version_blobs`).
		WillReturnRows(sqlmock.NewRows([]string{"blob_hash"}).AddRow("deadbeef"))

	// Enqueue finds the still-pending job from the first request.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM jobs`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPost, "/models/1/thumbnail/regenerate", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		JobID        int64 `json:"jobId"`
		Deduplicated bool  `json:"deduplicated"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.JobID != 9 || !resp.Deduplicated {
		t.Errorf("resp = %+v, want jobId 9 deduplicated=true", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
