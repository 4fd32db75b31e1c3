package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"modelibr/internal/apperr"
	"modelibr/internal/assetgraph"
	"modelibr/internal/assetmodel"
	"modelibr/internal/blobstore"
	"modelibr/internal/events"
	"modelibr/internal/imaging"
)

// Service runs UploadBlob's validate-stage-dedup-attach-emit pipeline:
// validate against the destination's role whitelist, stage into the blob
// store, deduplicate against an existing blob record, attach per the
// destination's originating-entity-spec, and emit a domain event.
type Service struct {
	blobs *blobstore.Store
	graph *assetgraph.Repository
	bus   *events.Bus
}

// NewService constructs a Service.
func NewService(blobs *blobstore.Store, graph *assetgraph.Repository, bus *events.Bus) *Service {
	return &Service{blobs: blobs, graph: graph, bus: bus}
}

// Result is UploadBlob's return value: (entity_id, version_id | nil,
// blob_hash, deduplicated_bool).
type Result struct {
	EntityID     int64
	VersionID    *int64
	BlobHash     string
	Deduplicated bool
	IsNewEntity  bool
}

// UploadBlob runs the full validate-hash-dedup-attach-emit pipeline. The
// bytes are stored once per hash whatever the destination. Only a replayed
// DestinationNewModel upload is matched to an earlier one (attach looks up
// the version already carrying the blob and returns its ids). The other
// destinations do not look for an earlier identical upload:
// DestinationModelVersion mints a new version, DestinationNewTextureSet,
// DestinationSound and DestinationSprite create a new entity, and
// DestinationTextureSetMember adds another texture row. Duplicate thumbnail
// jobs for the same (entity, blob) are held off only by Enqueue's dedup
// while the first job is PENDING or LEASED.
func (s *Service) UploadBlob(ctx context.Context, data []byte, filename string, dest Destination) (Result, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	wl := whitelistFor(dest.role())
	if wl == nil || !wl[ext] {
		return Result{}, apperr.New(apperr.CodeUnsupportedFormat,
			fmt.Sprintf("extension %q is not allowed for role %s", ext, dest.role()))
	}

	if dest.role() == roleTextureImage && magicByteDetectable[ext] {
		if res, err := ValidateTextureImage(data); err != nil {
			return Result{}, apperr.Wrap(apperr.CodeUnsupportedFormat, "texture image failed validation", err)
		} else if !res.Valid {
			return Result{}, apperr.New(apperr.CodeUnsupportedFormat, res.Error)
		}
	}

	hash, _, _, err := s.blobs.Put(ctx, data, mimeHintFor(ext))
	if err != nil {
		return Result{}, err
	}

	kind := blobKindFor(dest.role())
	blobRecord, wasNewBlob, err := s.graph.GetOrCreateBlob(ctx, assetmodel.Blob{
		Hash:         hash,
		ByteLength:   int64(len(data)),
		MimeHint:     mimeHintFor(ext),
		FilenameHint: filename,
		Kind:         kind,
	})
	if err != nil {
		return Result{}, err
	}
	deduplicated := !wasNewBlob

	result, err := s.attach(ctx, blobRecord.Hash, dest)
	if err != nil {
		return Result{}, err
	}
	result.Deduplicated = deduplicated

	if err := s.emitEvent(ctx, dest, result); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (s *Service) attach(ctx context.Context, hash string, dest Destination) (Result, error) {
	switch dest.Kind {
	case DestinationNewModel:
		role := dest.Role
		if role == "" {
			role = assetmodel.BlobRolePrimaryRenderable
		}

		// Idempotency key is (blob hash, destination): replaying the same
		// bytes against "create a new model" must return the model/version
		// that already carries them, not mint a duplicate.
		if existingModelID, existingVersionID, found, err := s.graph.FindModelVersionByPrimaryBlob(ctx, hash, role); err != nil {
			return Result{}, err
		} else if found {
			return Result{EntityID: existingModelID, VersionID: &existingVersionID, BlobHash: hash}, nil
		}

		model, err := s.graph.CreateModel(ctx, dest.ModelName)
		if err != nil {
			return Result{}, err
		}
		version, _, err := s.graph.NewVersion(ctx, model.ID, dest.VersionDescription)
		if err != nil {
			return Result{}, err
		}
		if err := s.graph.AttachBlobToVersion(ctx, version.ID, hash, role); err != nil {
			return Result{}, err
		}
		return Result{EntityID: model.ID, VersionID: &version.ID, BlobHash: hash, IsNewEntity: true}, nil

	case DestinationModelVersion:
		version, _, err := s.graph.NewVersion(ctx, dest.ModelID, dest.VersionDescription)
		if err != nil {
			return Result{}, err
		}
		role := dest.Role
		if role == "" {
			role = assetmodel.BlobRolePrimaryRenderable
		}
		if err := s.graph.AttachBlobToVersion(ctx, version.ID, hash, role); err != nil {
			return Result{}, err
		}
		return Result{EntityID: dest.ModelID, VersionID: &version.ID, BlobHash: hash}, nil

	case DestinationAuxiliaryFile:
		if _, err := s.graph.GetModelVersion(ctx, dest.ModelVersionID); err != nil {
			return Result{}, err
		}
		role := dest.Role
		if role == "" {
			role = assetmodel.BlobRoleAuxiliary
		}
		if err := s.graph.AttachBlobToVersion(ctx, dest.ModelVersionID, hash, role); err != nil {
			return Result{}, err
		}
		return Result{EntityID: dest.ModelVersionID, VersionID: &dest.ModelVersionID, BlobHash: hash}, nil

	case DestinationNewTextureSet:
		ts, err := s.graph.CreateTextureSet(ctx, dest.TextureSetName, 1)
		if err != nil {
			return Result{}, err
		}
		if _, err := s.graph.AddTexture(ctx, assetmodel.Texture{
			TextureSetID:  ts.ID,
			BlobHash:      hash,
			Type:          dest.TextureType,
			SourceChannel: dest.TextureSourceChannel,
		}); err != nil {
			return Result{}, err
		}
		return Result{EntityID: ts.ID, BlobHash: hash, IsNewEntity: true}, nil

	case DestinationTextureSetMember:
		if _, err := s.graph.AddTexture(ctx, assetmodel.Texture{
			TextureSetID:  dest.TextureSetID,
			BlobHash:      hash,
			Type:          dest.TextureType,
			SourceChannel: dest.TextureSourceChannel,
		}); err != nil {
			return Result{}, err
		}
		return Result{EntityID: dest.TextureSetID, BlobHash: hash}, nil

	case DestinationSound:
		sound, err := s.graph.CreateSound(ctx, dest.Name, hash)
		if err != nil {
			return Result{}, err
		}
		return Result{EntityID: sound.ID, BlobHash: hash, IsNewEntity: true}, nil

	case DestinationSprite:
		sprite, err := s.graph.CreateSprite(ctx, dest.Name, hash)
		if err != nil {
			return Result{}, err
		}
		return Result{EntityID: sprite.ID, BlobHash: hash, IsNewEntity: true}, nil

	default:
		return Result{}, apperr.New(apperr.CodeValidation, "unknown upload destination kind")
	}
}

func (s *Service) emitEvent(ctx context.Context, dest Destination, result Result) error {
	if s.bus == nil {
		return nil
	}
	switch dest.Kind {
	case DestinationNewModel, DestinationModelVersion:
		var versionID int64
		if result.VersionID != nil {
			versionID = *result.VersionID
		}
		return s.bus.Publish(ctx, events.KindModelUploaded, events.ModelUploaded{
			ModelID:     result.EntityID,
			VersionID:   versionID,
			BlobHash:    result.BlobHash,
			IsNewEntity: result.IsNewEntity,
		})
	case DestinationNewTextureSet, DestinationTextureSetMember:
		return s.bus.Publish(ctx, events.KindTextureSetChanged, events.TextureSetChanged{
			TextureSetID: result.EntityID,
			BlobHash:     result.BlobHash,
		})
	case DestinationSound:
		return s.bus.Publish(ctx, events.KindSoundUploaded, events.SoundUploaded{
			SoundID:     result.EntityID,
			BlobHash:    result.BlobHash,
			IsNewEntity: result.IsNewEntity,
		})
	default:
		return nil
	}
}

func mimeHintFor(ext string) string {
	switch ext {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	case "ogg":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	case "glb":
		return "model/gltf-binary"
	case "gltf":
		return "model/gltf+json"
	default:
		return "application/octet-stream"
	}
}

func blobKindFor(r role) assetmodel.BlobKind {
	switch r {
	case roleModelRenderable:
		return assetmodel.BlobKindModel
	case roleTextureImage:
		return assetmodel.BlobKindTexture
	case roleSound:
		return assetmodel.BlobKindSound
	case roleProjectFile:
		return assetmodel.BlobKindProjectFile
	default:
		return assetmodel.BlobKindOther
	}
}

// ValidateTextureImage reuses imaging.ValidateImage's magic-byte format
// detection and decompression-bomb dimension cap for texture uploads.
func ValidateTextureImage(data []byte) (*imaging.ValidationResult, error) {
	return imaging.ValidateImage(data, "texture")
}

// magicByteDetectable lists the texture extensions imaging.DetectFormat can
// actually recognize from content; tga has no reliable magic number and tiff
// variants are inconsistent, so those stay extension-whitelist-only.
var magicByteDetectable = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "webp": true,
}
