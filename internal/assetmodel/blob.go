// Package assetmodel holds the persisted data model: blobs, versioned
// assets, their containers, the job queue's rows, and the recycle bin's
// virtual view.
package assetmodel

import "time"

// BlobKind classifies the logical content of a blob at upload time.
type BlobKind string

const (
	BlobKindModel       BlobKind = "MODEL"
	BlobKindTexture     BlobKind = "TEXTURE"
	BlobKindMaterial    BlobKind = "MATERIAL"
	BlobKindProjectFile BlobKind = "PROJECT_FILE"
	BlobKindSound       BlobKind = "SOUND"
	BlobKindImage       BlobKind = "IMAGE"
	BlobKindOther       BlobKind = "OTHER"
)

// Blob is an immutable, content-addressed byte string. Its own fields are
// never mutated after creation; ReferenceCount is the one exception, kept in
// sync by assetgraph as references are attached and purged so the GC
// maintenance pass (never part of the hot path) can find collectible blobs
// with a plain zero-count scan instead of a cross-table reference count.
type Blob struct {
	Hash           string    `db:"hash" json:"hash"`
	ByteLength     int64     `db:"byte_length" json:"byteLength"`
	MimeHint       string    `db:"mime_hint" json:"mimeHint,omitempty"`
	FilenameHint   string    `db:"filename_hint" json:"filenameHint,omitempty"`
	Kind           BlobKind  `db:"kind" json:"kind"`
	ReferenceCount int       `db:"reference_count" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
