package assetmodel

import "time"

// TextureType is the semantic role a Texture plays within its TextureSet.
type TextureType string

const (
	TextureTypeAlbedo       TextureType = "ALBEDO"
	TextureTypeNormal       TextureType = "NORMAL"
	TextureTypeHeight       TextureType = "HEIGHT"
	TextureTypeDisplacement TextureType = "DISPLACEMENT"
	TextureTypeBump         TextureType = "BUMP"
	TextureTypeAO           TextureType = "AO"
	TextureTypeRoughness    TextureType = "ROUGHNESS"
	TextureTypeMetallic     TextureType = "METALLIC"
	TextureTypeEmissive     TextureType = "EMISSIVE"
	TextureTypeAlpha        TextureType = "ALPHA"
	// TextureTypeSplitChannel is an internal placeholder for a texture sourced
	// from one channel of a packed image; hidden from external enumerations.
	TextureTypeSplitChannel TextureType = "SPLIT_CHANNEL"
)

// HeightGroup are the mutually-exclusive height-like texture types within a set.
var HeightGroup = map[TextureType]bool{
	TextureTypeHeight:       true,
	TextureTypeDisplacement: true,
	TextureTypeBump:         true,
}

// SourceChannel identifies which channel of a packed image a Texture reads.
type SourceChannel string

const (
	ChannelR SourceChannel = "R"
	ChannelG SourceChannel = "G"
	ChannelB SourceChannel = "B"
	ChannelA SourceChannel = "A"
)

// TextureSet is a named collection of Textures associated with ModelVersions.
type TextureSet struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	UVScale   float64   `db:"uv_scale" json:"uvScale"`
	IsDeleted bool      `db:"is_deleted" json:"-"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Texture belongs to a TextureSet and references a single Blob.
type Texture struct {
	ID            int64          `db:"id" json:"id"`
	TextureSetID  int64          `db:"texture_set_id" json:"textureSetId"`
	BlobHash      string         `db:"blob_hash" json:"blobHash"`
	Type          TextureType    `db:"type" json:"type"`
	SourceChannel *SourceChannel `db:"source_channel" json:"sourceChannel,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

// TextureSetModelVersion is the many-to-many association between a
// TextureSet and the ModelVersions that use it.
type TextureSetModelVersion struct {
	TextureSetID   int64     `db:"texture_set_id" json:"textureSetId"`
	ModelVersionID int64     `db:"model_version_id" json:"modelVersionId"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
