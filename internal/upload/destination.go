package upload

import "modelibr/internal/assetmodel"

// DestinationKind selects which originating-entity-spec branch UploadBlob
// dispatches to.
type DestinationKind string

const (
	// DestinationNewModel creates a Model and its first ModelVersion.
	DestinationNewModel DestinationKind = "NEW_MODEL"
	// DestinationModelVersion adds a new version to an existing Model.
	DestinationModelVersion DestinationKind = "MODEL_VERSION"
	// DestinationTextureSetMember attaches a texture to an existing TextureSet.
	DestinationTextureSetMember DestinationKind = "TEXTURESET_MEMBER"
	// DestinationNewTextureSet creates a TextureSet from its first texture.
	DestinationNewTextureSet DestinationKind = "NEW_TEXTURESET"
	// DestinationSound creates a new Sound.
	DestinationSound DestinationKind = "SOUND"
	// DestinationSprite creates a new Sprite.
	DestinationSprite DestinationKind = "SPRITE"
	// DestinationAuxiliaryFile attaches a role-tagged blob (project-source or
	// auxiliary) to an existing ModelVersion without minting a new version.
	DestinationAuxiliaryFile DestinationKind = "AUXILIARY_FILE"
)

// Destination is the originating-entity-spec spec.md §4.2 describes: it
// names where an uploaded blob attaches once it has been hashed and stored.
type Destination struct {
	Kind DestinationKind

	// ModelID targets DestinationModelVersion.
	ModelID int64
	// ModelName seeds DestinationNewModel.
	ModelName string
	// VersionDescription seeds the version row created for
	// DestinationNewModel/DestinationModelVersion.
	VersionDescription string
	// Role tags the attached blob's relationship to its version.
	Role assetmodel.BlobRole
	// ModelVersionID targets DestinationAuxiliaryFile: the existing version
	// the auxiliary/project-source blob attaches to, without minting a new one.
	ModelVersionID int64

	// TextureSetID targets DestinationTextureSetMember.
	TextureSetID int64
	// TextureSetName seeds DestinationNewTextureSet.
	TextureSetName string
	// TextureType/TextureSourceChannel describe the texture being attached.
	TextureType          assetmodel.TextureType
	TextureSourceChannel *assetmodel.SourceChannel

	// Name seeds DestinationSound/DestinationSprite.
	Name string
}

// role-extension whitelists, keyed by the upload's declared role. A format
// not present in a role's set fails with UNSUPPORTED_FORMAT.
var (
	modelRenderableExtensions = map[string]bool{
		"glb": true, "gltf": true, "obj": true, "fbx": true, "usdz": true,
	}
	textureImageExtensions = map[string]bool{
		"png": true, "jpg": true, "jpeg": true, "webp": true, "tga": true, "tiff": true,
	}
	soundExtensions = map[string]bool{
		"wav": true, "ogg": true, "mp3": true, "flac": true,
	}
	projectFileExtensions = map[string]bool{
		"blend": true, "zip": true, "json": true,
	}
)

// role is the upload-time classification used to pick an extension
// whitelist; distinct from BlobRole, which tags a version's blob reference.
type role string

const (
	roleModelRenderable role = "model-renderable"
	roleTextureImage    role = "texture-image"
	roleSound           role = "sound"
	roleProjectFile     role = "project-file"
)

func (d Destination) role() role {
	switch d.Kind {
	case DestinationNewModel, DestinationModelVersion:
		if d.Role == assetmodel.BlobRoleProjectSource {
			return roleProjectFile
		}
		return roleModelRenderable
	case DestinationTextureSetMember, DestinationNewTextureSet:
		return roleTextureImage
	case DestinationSound:
		return roleSound
	case DestinationSprite:
		return roleTextureImage
	case DestinationAuxiliaryFile:
		return roleProjectFile
	default:
		return roleModelRenderable
	}
}

func whitelistFor(r role) map[string]bool {
	switch r {
	case roleModelRenderable:
		return modelRenderableExtensions
	case roleTextureImage:
		return textureImageExtensions
	case roleSound:
		return soundExtensions
	case roleProjectFile:
		return projectFileExtensions
	default:
		return nil
	}
}
