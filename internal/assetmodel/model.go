package assetmodel

import (
	"time"

	"github.com/lib/pq"
)

// BlobRole tags why a blob is referenced from a ModelVersion.
type BlobRole string

const (
	BlobRolePrimaryRenderable BlobRole = "PRIMARY_RENDERABLE"
	BlobRoleProjectSource     BlobRole = "PROJECT_SOURCE"
	BlobRoleAuxiliary         BlobRole = "AUXILIARY"
)

// Model is the aggregate root for a versioned 3D asset.
type Model struct {
	ID                  int64          `db:"id" json:"id"`
	Name                string         `db:"name" json:"name"`
	Tags                pq.StringArray `db:"tags" json:"tags,omitempty"`
	Description         string         `db:"description" json:"description,omitempty"`
	DefaultTextureSetID *int64     `db:"default_texture_set_id" json:"defaultTextureSetId,omitempty"`
	ActiveVersionID     *int64     `db:"active_version_id" json:"activeVersionId,omitempty"`
	IsDeleted           bool       `db:"is_deleted" json:"-"`
	DeletedAt           *time.Time `db:"deleted_at" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updatedAt"`
}

// ModelVersion is one immutable, 1-indexed revision of a Model.
type ModelVersion struct {
	ID          int64     `db:"id" json:"id"`
	ModelID     int64     `db:"model_id" json:"modelId"`
	VersionNum  int       `db:"version_num" json:"versionNum"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// ModelVersionBlob is a role-tagged reference from a version to a blob.
type ModelVersionBlob struct {
	ModelVersionID int64    `db:"model_version_id" json:"modelVersionId"`
	BlobHash       string   `db:"blob_hash" json:"blobHash"`
	Role           BlobRole `db:"role" json:"role"`
}

// ThumbnailOwnerKind identifies what kind of entity a Thumbnail derives from.
type ThumbnailOwnerKind string

const (
	ThumbnailOwnerModelVersion ThumbnailOwnerKind = "MODEL_VERSION"
	ThumbnailOwnerTextureSet   ThumbnailOwnerKind = "TEXTURE_SET"
	ThumbnailOwnerSound        ThumbnailOwnerKind = "SOUND"
)

// ThumbnailStatus is the lifecycle state of a derived thumbnail/waveform.
type ThumbnailStatus string

const (
	ThumbnailPending    ThumbnailStatus = "PENDING"
	ThumbnailProcessing ThumbnailStatus = "PROCESSING"
	ThumbnailReady      ThumbnailStatus = "READY"
	ThumbnailFailed     ThumbnailStatus = "FAILED"
)

// Thumbnail is derived state attached to a ModelVersion, TextureSet, or Sound.
// Invariant: READY implies OutputBlobHash is set; FAILED implies ErrorMessage is set.
type Thumbnail struct {
	ID             int64              `db:"id" json:"id"`
	OwnerKind      ThumbnailOwnerKind `db:"owner_kind" json:"ownerKind"`
	OwnerID        int64              `db:"owner_id" json:"ownerId"`
	Status         ThumbnailStatus    `db:"status" json:"status"`
	OutputBlobHash *string            `db:"output_blob_hash" json:"outputBlobHash,omitempty"`
	Width          *int               `db:"width" json:"width,omitempty"`
	Height         *int               `db:"height" json:"height,omitempty"`
	SizeBytes      *int64             `db:"size_bytes" json:"sizeBytes,omitempty"`
	ErrorMessage   *string            `db:"error_message" json:"errorMessage,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"createdAt"`
	ProcessedAt    *time.Time         `db:"processed_at" json:"processedAt,omitempty"`
}
