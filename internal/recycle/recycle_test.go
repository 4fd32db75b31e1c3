package recycle

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"modelibr/internal/apperr"
	"modelibr/internal/assetgraph"
	"modelibr/internal/assetmodel"
	"modelibr/internal/database"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	graph := assetgraph.NewRepository(&database.DB{DB: sqlx.NewDb(db, "postgres")})
	return NewService(graph), mock
}

func TestRestore_ClearsSoftDeleteFlag(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectExec(`UPDATE sounds SET is_deleted = false`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.Restore(context.Background(), assetmodel.RecyclableSound, 4); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRestore_NotDeletedIsNotFound(t *testing.T) {
	svc, mock := newMockService(t)

	// Zero rows updated: the sprite exists but was never soft-deleted, or
	// does not exist at all. Either way the recycle bin has no claim on it.
	mock.ExpectExec(`UPDATE sprites SET is_deleted = false`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.Restore(context.Background(), assetmodel.RecyclableSprite, 9)
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("error code = %v, want NOT_FOUND", apperr.CodeOf(err))
	}
}

func TestRestore_UnknownKindIsValidation(t *testing.T) {
	svc, _ := newMockService(t)

	err := svc.Restore(context.Background(), assetmodel.RecyclableKind("MAGMA"), 1)
	if apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("error code = %v, want VALIDATION", apperr.CodeOf(err))
	}
}

func TestPurge_UnknownKindIsValidation(t *testing.T) {
	svc, _ := newMockService(t)

	err := svc.Purge(context.Background(), assetmodel.RecyclableKind("MAGMA"), 1)
	if apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("error code = %v, want VALIDATION", apperr.CodeOf(err))
	}
}
