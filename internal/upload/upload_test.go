package upload

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"modelibr/internal/apperr"
	"modelibr/internal/assetgraph"
	"modelibr/internal/assetmodel"
	"modelibr/internal/blobstore"
	"modelibr/internal/database"
	"modelibr/internal/events"
)

// memObjectStore backs blobstore.Store in-memory for pipeline tests.
type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: map[string][]byte{}}
}

func (m *memObjectStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memObjectStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memObjectStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return append([]byte(nil), data...), nil
}

func (m *memObjectStore) GetStream(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjectStore) Move(_ context.Context, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[srcKey]
	if !ok {
		return errors.New("no such key")
	}
	m.objects[dstKey] = data
	delete(m.objects, srcKey)
	return nil
}

func (m *memObjectStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func newMockGraph(t *testing.T) (*assetgraph.Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return assetgraph.NewRepository(&database.DB{DB: sqlx.NewDb(db, "postgres")}), mock
}

var blobColumns = []string{"hash", "byte_length", "mime_hint", "filename_hint", "kind", "reference_count", "created_at"}

func blobRow(hash string, length int64, kind assetmodel.BlobKind) []driver.Value {
	return []driver.Value{hash, length, "application/octet-stream", "f", string(kind), int64(1), time.Now()}
}

func TestUploadBlob_RejectsExtensionOutsideRoleWhitelist(t *testing.T) {
	// Rejection happens before the blob store or asset graph are touched,
	// so nil collaborators prove no state change occurs.
	svc := NewService(nil, nil, nil)

	_, err := svc.UploadBlob(context.Background(), []byte("MZ"), "tool.exe", Destination{
		Kind: DestinationNewModel, ModelName: "tool",
	})
	if apperr.CodeOf(err) != apperr.CodeUnsupportedFormat {
		t.Fatalf("error code = %v, want UNSUPPORTED_FORMAT", apperr.CodeOf(err))
	}
}

func TestUploadBlob_RejectsSoundExtensionForModelRole(t *testing.T) {
	svc := NewService(nil, nil, nil)

	_, err := svc.UploadBlob(context.Background(), []byte("RIFF"), "clip.wav", Destination{
		Kind: DestinationNewModel, ModelName: "not a model",
	})
	if apperr.CodeOf(err) != apperr.CodeUnsupportedFormat {
		t.Fatalf("error code = %v, want UNSUPPORTED_FORMAT", apperr.CodeOf(err))
	}
}

func TestUploadBlob_RejectsTextureWithForgedMagicBytes(t *testing.T) {
	// A .png whose content is not PNG fails magic-byte validation before
	// any byte reaches the blob store.
	svc := NewService(nil, nil, nil)

	_, err := svc.UploadBlob(context.Background(), []byte("definitely not a png"), "forged.png", Destination{
		Kind: DestinationTextureSetMember, TextureSetID: 1, TextureType: assetmodel.TextureTypeAlbedo,
	})
	if apperr.CodeOf(err) != apperr.CodeUnsupportedFormat {
		t.Fatalf("error code = %v, want UNSUPPORTED_FORMAT", apperr.CodeOf(err))
	}
}

func TestUploadBlob_SoundPipelineEmitsEvent(t *testing.T) {
	graph, mock := newMockGraph(t)
	blobs := blobstore.New(newMemObjectStore())
	bus := events.NewBus()

	var published []events.SoundUploaded
	bus.Subscribe(events.KindSoundUploaded, false, func(_ context.Context, event any) error {
		published = append(published, event.(events.SoundUploaded))
		return nil
	})

	data := []byte("RIFF....WAVEfmt ")
	hash := blobstore.ComputeHash(data)

	mock.ExpectQuery(`SELECT \* FROM blobs WHERE hash`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO blobs`).
		WillReturnRows(sqlmock.NewRows(blobColumns).AddRow(blobRow(hash, int64(len(data)), assetmodel.BlobKindSound)...))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO sounds`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "blob_hash", "is_deleted", "deleted_at", "created_at", "updated_at"}).
			AddRow(int64(3), "clip", hash, false, nil, time.Now(), time.Now()))
	mock.ExpectExec(`UPDATE blobs SET reference_count`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewService(blobs, graph, bus)
	result, err := svc.UploadBlob(context.Background(), data, "clip.wav", Destination{
		Kind: DestinationSound, Name: "clip",
	})
	if err != nil {
		t.Fatalf("UploadBlob: %v", err)
	}

	if result.EntityID != 3 || result.BlobHash != hash {
		t.Errorf("result = %+v, want entity 3 with hash %s", result, hash)
	}
	if result.Deduplicated {
		t.Error("first upload of fresh bytes should not be deduplicated")
	}
	if !result.IsNewEntity {
		t.Error("DestinationSound should report a new entity")
	}

	if len(published) != 1 {
		t.Fatalf("published %d SoundUploaded events, want 1", len(published))
	}
	if published[0].SoundID != 3 || published[0].BlobHash != hash {
		t.Errorf("event = %+v, want sound 3 with hash %s", published[0], hash)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}

	stored, err := blobs.Exists(context.Background(), hash)
	if err != nil || !stored {
		t.Errorf("blob %s not present in store after upload", hash)
	}
}

func TestUploadBlob_ReplayedModelUploadReusesVersion(t *testing.T) {
	graph, mock := newMockGraph(t)
	objects := newMemObjectStore()
	blobs := blobstore.New(objects)

	data := []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n")
	hash := blobstore.ComputeHash(data)

	// Bytes already content-addressed from the first upload.
	if _, _, _, err := blobs.Put(context.Background(), data, "model/obj"); err != nil {
		t.Fatalf("seeding blob store: %v", err)
	}

	// Blob record exists, and a version already carries (hash, primary-renderable).
	mock.ExpectQuery(`SELECT \* FROM blobs WHERE hash`).
		WillReturnRows(sqlmock.NewRows(blobColumns).AddRow(blobRow(hash, int64(len(data)), assetmodel.BlobKindModel)...))
	mock.ExpectQuery(`SELECT mv\.model_id AS model_id, mv\.id AS id`).
		WillReturnRows(sqlmock.NewRows([]string{"model_id", "id"}).AddRow(int64(1), int64(1)))

	svc := NewService(blobs, graph, events.NewBus())
	result, err := svc.UploadBlob(context.Background(), data, "cube.obj", Destination{
		Kind: DestinationNewModel, ModelName: "cube",
	})
	if err != nil {
		t.Fatalf("UploadBlob: %v", err)
	}

	if result.EntityID != 1 || result.VersionID == nil || *result.VersionID != 1 {
		t.Errorf("result = %+v, want the original (model 1, version 1)", result)
	}
	if !result.Deduplicated {
		t.Error("replayed upload should report deduplicated=true")
	}
	if result.IsNewEntity {
		t.Error("replayed upload must not report a new entity")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations (a duplicate model/version was created): %v", err)
	}
}

func TestDestinationRoleMapping(t *testing.T) {
	cases := []struct {
		dest Destination
		want role
	}{
		{Destination{Kind: DestinationNewModel}, roleModelRenderable},
		{Destination{Kind: DestinationModelVersion}, roleModelRenderable},
		{Destination{Kind: DestinationNewModel, Role: assetmodel.BlobRoleProjectSource}, roleProjectFile},
		{Destination{Kind: DestinationTextureSetMember}, roleTextureImage},
		{Destination{Kind: DestinationNewTextureSet}, roleTextureImage},
		{Destination{Kind: DestinationSound}, roleSound},
		{Destination{Kind: DestinationSprite}, roleTextureImage},
		{Destination{Kind: DestinationAuxiliaryFile}, roleProjectFile},
	}
	for _, tc := range cases {
		if got := tc.dest.role(); got != tc.want {
			t.Errorf("role(%s, blobRole=%q) = %v, want %v", tc.dest.Kind, tc.dest.Role, got, tc.want)
		}
	}
}
