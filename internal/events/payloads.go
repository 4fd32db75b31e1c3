package events

// ModelUploaded fires after a new or existing Model's version has been
// durably attached to its primary-renderable blob.
type ModelUploaded struct {
	ModelID     int64
	VersionID   int64
	BlobHash    string
	IsNewEntity bool
}

// SoundUploaded mirrors ModelUploaded for the versionless Sound entity.
type SoundUploaded struct {
	SoundID     int64
	BlobHash    string
	IsNewEntity bool
}

// TextureSetChanged fires when a TextureSet's texture membership changes in
// a way that should invalidate its preview thumbnail.
type TextureSetChanged struct {
	TextureSetID int64
	BlobHash     string
}

// ActiveVersionChanged fires whenever a model's active-version pointer
// moves, including the first version (PrevVersionID is nil in that case).
type ActiveVersionChanged struct {
	ModelID        int64
	NewVersionID   int64
	PrevVersionID  *int64
	ThumbnailReady bool
	ThumbnailURL   *string
}
