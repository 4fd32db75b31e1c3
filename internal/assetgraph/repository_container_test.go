package assetgraph

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"modelibr/internal/apperr"
	"modelibr/internal/assetmodel"
)

var packColumns = []string{"id", "name", "description", "created_at", "updated_at"}

// CreatePack returns the new row on success.
func TestCreatePack_ReturnsNewPack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO packs`).
		WithArgs("Forest Props", "trees and rocks").
		WillReturnRows(sqlmock.NewRows(packColumns).
			AddRow(int64(1), "Forest Props", "trees and rocks", nowStub(), nowStub()))

	p, err := repo.CreatePack(context.Background(), "Forest Props", "trees and rocks")
	if err != nil {
		t.Fatalf("CreatePack: %v", err)
	}
	if p.ID != 1 || p.Name != "Forest Props" {
		t.Fatalf("unexpected pack: %+v", p)
	}
}

// CreatePack must refuse a duplicate name with CONFLICT, matching its
// ON CONFLICT DO NOTHING / RETURNING-no-rows signal.
func TestCreatePack_RefusesDuplicateName(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO packs`).
		WithArgs("Forest Props", "").
		WillReturnRows(sqlmock.NewRows(packColumns))

	_, err := repo.CreatePack(context.Background(), "Forest Props", "")
	if err == nil {
		t.Fatal("expected a CONFLICT error for a duplicate pack name")
	}
	if apperr.CodeOf(err) != apperr.CodeConflict {
		t.Fatalf("expected CodeConflict, got %v", apperr.CodeOf(err))
	}
}

// CreateProject mirrors CreatePack's conflict handling.
func TestCreateProject_RefusesDuplicateName(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs("Winter Update", "").
		WillReturnRows(sqlmock.NewRows(packColumns))

	_, err := repo.CreateProject(context.Background(), "Winter Update", "")
	if err == nil {
		t.Fatal("expected a CONFLICT error for a duplicate project name")
	}
	if apperr.CodeOf(err) != apperr.CodeConflict {
		t.Fatalf("expected CodeConflict, got %v", apperr.CodeOf(err))
	}
}

// AddToContainer is idempotent: re-adding an existing edge must not error.
func TestAddToContainer_IdempotentOnExistingEdge(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO container_memberships`).
		WithArgs(assetmodel.ContainerKindPack, int64(1), assetmodel.MemberKindModel, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.AddToContainer(context.Background(), assetmodel.ContainerKindPack, 1, assetmodel.MemberKindModel, 42); err != nil {
		t.Fatalf("AddToContainer: %v", err)
	}
}

// RemoveFromContainer is a no-op, not NOT_FOUND, when the edge is absent.
func TestRemoveFromContainer_NoopWhenAbsent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM container_memberships`).
		WithArgs(assetmodel.ContainerKindProject, int64(7), assetmodel.MemberKindSound, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.RemoveFromContainer(context.Background(), assetmodel.ContainerKindProject, 7, assetmodel.MemberKindSound, 99); err != nil {
		t.Fatalf("RemoveFromContainer: %v", err)
	}
}
