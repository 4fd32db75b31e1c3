package assetmodel

import "time"

// ContainerKind distinguishes the two container flavors, which share the
// same membership-association shape.
type ContainerKind string

const (
	ContainerKindPack    ContainerKind = "PACK"
	ContainerKindProject ContainerKind = "PROJECT"
)

// Pack is a user-facing grouping of models, texture sets, sprites, and sounds.
type Pack struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Project mirrors Pack's shape for project-scoped groupings.
type Project struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// MemberKind identifies what kind of entity a container membership edge
// points at.
type MemberKind string

const (
	MemberKindModel      MemberKind = "MODEL"
	MemberKindTextureSet MemberKind = "TEXTURE_SET"
	MemberKindSprite     MemberKind = "SPRITE"
	MemberKindSound      MemberKind = "SOUND"
)

// ContainerMembership is the explicit association entity backing a
// container's many-to-many membership, kept as its own row (rather than a
// bare join table) so side-channel attributes can be added without a
// migration.
type ContainerMembership struct {
	ContainerKind ContainerKind `db:"container_kind" json:"containerKind"`
	ContainerID   int64         `db:"container_id" json:"containerId"`
	MemberKind    MemberKind    `db:"member_kind" json:"memberKind"`
	MemberID      int64         `db:"member_id" json:"memberId"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
}

// BatchUpload correlates independently uploaded blobs belonging to one
// logical client-side batch. Reporting only; not on the hot path.
type BatchUpload struct {
	ID             int64     `db:"id" json:"id"`
	BatchTag       string    `db:"batch_tag" json:"batchTag"`
	UploadKindTag  string    `db:"upload_kind_tag" json:"uploadKindTag"`
	BlobHash       string    `db:"blob_hash" json:"blobHash"`
	OwningEntityID int64     `db:"owning_entity_id" json:"owningEntityId"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
