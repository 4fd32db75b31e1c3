package assetmodel

import "time"

// Sound mirrors TextureSet's versionless, single-blob pattern: a named
// entity wrapping one audio blob with optional derived waveform state.
type Sound struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	BlobHash  string     `db:"blob_hash" json:"blobHash"`
	IsDeleted bool       `db:"is_deleted" json:"-"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// Sprite mirrors the same versionless, single-blob pattern for 2D sprites.
type Sprite struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	BlobHash  string     `db:"blob_hash" json:"blobHash"`
	IsDeleted bool       `db:"is_deleted" json:"-"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}
