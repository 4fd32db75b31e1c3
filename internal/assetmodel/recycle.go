package assetmodel

import "time"

// RecyclableKind enumerates the entity kinds the recycle bin can enumerate,
// restore, and purge.
type RecyclableKind string

const (
	RecyclableModel      RecyclableKind = "model"
	RecyclableTextureSet RecyclableKind = "textureSet"
	RecyclableSprite     RecyclableKind = "sprite"
	RecyclableSound      RecyclableKind = "sound"
)

// RecycleEntry is a virtual, read-only view over every soft-deletable row,
// uniform across entity kinds.
type RecycleEntry struct {
	Kind      RecyclableKind `json:"kind"`
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	DeletedAt time.Time      `json:"deletedAt"`
}

// RecycleSnapshot groups every soft-deleted row by kind. ModelVersions and
// Files are always empty: versions and blobs are immutable and have no
// is_deleted column of their own (a version's lifetime tracks its owning
// Model, a blob's lifetime tracks its reference count), but the keys are
// kept present so clients can rely on a stable response shape. Textures is
// likewise always empty, since a Texture row is purged in its owning
// TextureSet's cascade rather than soft-deleted independently.
type RecycleSnapshot struct {
	Models        []RecycleEntry `json:"models"`
	ModelVersions []RecycleEntry `json:"modelVersions"`
	Files         []RecycleEntry `json:"files"`
	TextureSets   []RecycleEntry `json:"textureSets"`
	Textures      []RecycleEntry `json:"textures"`
	Sprites       []RecycleEntry `json:"sprites"`
	Sounds        []RecycleEntry `json:"sounds"`
}
