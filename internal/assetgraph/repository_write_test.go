package assetgraph

import (
	"context"
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
	return NewRepository(&database.DB{DB: sqlx.NewDb(db, "postgres")}), mock
}

var textureColumns = []string{"id", "texture_set_id", "blob_hash", "type", "source_channel", "created_at"}

// AddTexture must refuse a second HEIGHT-group texture in the same set —
// HEIGHT/DISPLACEMENT/BUMP are mutually exclusive.
func TestAddTexture_RefusesSecondHeightGroupMember(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM textures WHERE texture_set_id = \$1`).
		WillReturnRows(sqlmock.NewRows(textureColumns).
			AddRow(int64(1), int64(9), "blobA", string(assetmodel.TextureTypeHeight), nil, nowStub()))
	mock.ExpectRollback()

	_, err := repo.AddTexture(context.Background(), assetmodel.Texture{
		TextureSetID: 9, BlobHash: "blobB", Type: assetmodel.TextureTypeDisplacement,
	})
	if err == nil {
		t.Fatal("expected a PRECONDITION error for a second height-group texture")
	}
	if apperr.CodeOf(err) != apperr.CodePrecondition {
		t.Fatalf("expected CodePrecondition, got %v", apperr.CodeOf(err))
	}
}

// AddTexture must refuse re-mapping the same (blob, channel) pair to a
// second non-SPLIT_CHANNEL texture type within the set.
func TestAddTexture_RefusesDuplicateChannelMapping(t *testing.T) {
	repo, mock := newMockRepo(t)
	channelR := assetmodel.ChannelR

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM textures WHERE texture_set_id = \$1`).
		WillReturnRows(sqlmock.NewRows(textureColumns).
			AddRow(int64(1), int64(9), "packedRGB", string(assetmodel.TextureTypeRoughness), "R", nowStub()))
	mock.ExpectRollback()

	_, err := repo.AddTexture(context.Background(), assetmodel.Texture{
		TextureSetID: 9, BlobHash: "packedRGB", Type: assetmodel.TextureTypeMetallic, SourceChannel: &channelR,
	})
	if err == nil {
		t.Fatal("expected a PRECONDITION error for a duplicate (blob, channel) mapping")
	}
	if apperr.CodeOf(err) != apperr.CodePrecondition {
		t.Fatalf("expected CodePrecondition, got %v", apperr.CodeOf(err))
	}
}

// SPLIT_CHANNEL textures are the internal placeholder and never trip the
// per-channel uniqueness check against themselves.
func TestAddTexture_AllowsSplitChannelAlongsideMappedChannel(t *testing.T) {
	repo, mock := newMockRepo(t)
	channelR := assetmodel.ChannelR

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM textures WHERE texture_set_id = \$1`).
		WillReturnRows(sqlmock.NewRows(textureColumns).
			AddRow(int64(1), int64(9), "packedRGB", string(assetmodel.TextureTypeSplitChannel), "R", nowStub()))
	mock.ExpectQuery(`INSERT INTO textures`).
		WillReturnRows(sqlmock.NewRows(textureColumns).
			AddRow(int64(2), int64(9), "packedRGB", string(assetmodel.TextureTypeMetallic), "R", nowStub()))
	mock.ExpectExec(`UPDATE blobs SET reference_count`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tex, err := repo.AddTexture(context.Background(), assetmodel.Texture{
		TextureSetID: 9, BlobHash: "packedRGB", Type: assetmodel.TextureTypeMetallic, SourceChannel: &channelR,
	})
	if err != nil {
		t.Fatalf("AddTexture: %v", err)
	}
	if tex.ID != 2 {
		t.Fatalf("expected new texture id 2, got %d", tex.ID)
	}
}

// SetActiveVersion refuses with PRECONDITION when the target version does
// not belong to the model.
func TestSetActiveVersion_RefusesVersionFromAnotherModel(t *testing.T) {
	repo, mock := newMockRepo(t)

	versionColumns := []string{"id", "model_id", "version_num", "description", "created_at"}
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM model_versions WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(versionColumns).AddRow(int64(5), int64(99), 1, "", nowStub()))
	mock.ExpectRollback()

	_, err := repo.SetActiveVersion(context.Background(), 1, 5)
	if err == nil {
		t.Fatal("expected a PRECONDITION error")
	}
	if apperr.CodeOf(err) != apperr.CodePrecondition {
		t.Fatalf("expected CodePrecondition, got %v", apperr.CodeOf(err))
	}
}

func nowStub() time.Time {
	return time.Unix(1700000000, 0)
}
