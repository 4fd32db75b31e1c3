package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"modelibr/internal/assetgraph"
	"modelibr/internal/assetmodel"
	"modelibr/internal/upload"
	"modelibr/internal/utils"
)

// MediaHandler exposes the versionless Sound/Sprite upload and query
// endpoints; both follow the same single-blob pattern, just against
// different tables.
type MediaHandler struct {
	graph   *assetgraph.Repository
	uploads *upload.Service
}

// NewMediaHandler constructs a MediaHandler.
func NewMediaHandler(graph *assetgraph.Repository, uploads *upload.Service) *MediaHandler {
	return &MediaHandler{graph: graph, uploads: uploads}
}

type mediaUploadResponse struct {
	ID           int64  `json:"id"`
	BlobHash     string `json:"blobHash"`
	Deduplicated bool   `json:"deduplicated"`
}

// CreateFile handles POST /files?modelVersionId=&textureSetId= (multipart,
// field "file"): a generic auxiliary-upload endpoint for files tagged with
// a destination other than "new model" or "new texture set" — today that
// means attaching a project-source/auxiliary blob to an existing
// ModelVersion, or a texture to an existing TextureSet.
func (h *MediaHandler) CreateFile(c *gin.Context) {
	data, filename, err := readMultipartFile(c, "file", maxUploadBytes)
	if err != nil {
		sendUploadError(c, err)
		return
	}

	switch {
	case c.Query("modelVersionId") != "":
		versionID, err := strconvParseID(c.Query("modelVersionId"))
		if err != nil {
			utils.SendValidationError(c, err)
			return
		}
		role := assetmodel.BlobRoleAuxiliary
		if c.Query("role") == string(assetmodel.BlobRoleProjectSource) {
			role = assetmodel.BlobRoleProjectSource
		}
		result, err := h.uploads.UploadBlob(c.Request.Context(), data, filename, upload.Destination{
			Kind:           upload.DestinationAuxiliaryFile,
			ModelVersionID: versionID,
			Role:           role,
		})
		if err != nil {
			sendAppError(c, err)
			return
		}
		c.JSON(http.StatusCreated, mediaUploadResponse{ID: result.EntityID, BlobHash: result.BlobHash, Deduplicated: result.Deduplicated})

	case c.Query("textureSetId") != "":
		textureSetID, err := strconvParseID(c.Query("textureSetId"))
		if err != nil {
			utils.SendValidationError(c, err)
			return
		}
		textureType := assetmodel.TextureType(c.PostForm("type"))
		result, err := h.uploads.UploadBlob(c.Request.Context(), data, filename, upload.Destination{
			Kind:         upload.DestinationTextureSetMember,
			TextureSetID: textureSetID,
			TextureType:  textureType,
		})
		if err != nil {
			sendAppError(c, err)
			return
		}
		c.JSON(http.StatusCreated, mediaUploadResponse{ID: result.EntityID, BlobHash: result.BlobHash, Deduplicated: result.Deduplicated})

	default:
		utils.SendValidationError(c, errMissingFileDestination)
	}
}

// CreateSound handles POST /sounds (multipart, field "file").
func (h *MediaHandler) CreateSound(c *gin.Context) {
	data, filename, err := readMultipartFile(c, "file", maxUploadBytes)
	if err != nil {
		sendUploadError(c, err)
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = filename
	}
	result, err := h.uploads.UploadBlob(c.Request.Context(), data, filename, upload.Destination{
		Kind: upload.DestinationSound, Name: name,
	})
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mediaUploadResponse{ID: result.EntityID, BlobHash: result.BlobHash, Deduplicated: result.Deduplicated})
}

// ListSounds handles GET /sounds.
func (h *MediaHandler) ListSounds(c *gin.Context) {
	result, err := h.graph.ListSounds(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "pageSize", 20))
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSound handles GET /sounds/{id}.
func (h *MediaHandler) GetSound(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	s, err := h.graph.GetSound(c.Request.Context(), id)
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// SoftDeleteSound handles DELETE /sounds/{id}.
func (h *MediaHandler) SoftDeleteSound(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	if err := h.graph.SoftDeleteSound(c.Request.Context(), id); err != nil {
		sendAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateSprite handles POST /sprites (multipart, field "file").
func (h *MediaHandler) CreateSprite(c *gin.Context) {
	data, filename, err := readMultipartFile(c, "file", maxImageBytes)
	if err != nil {
		sendUploadError(c, err)
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = filename
	}
	result, err := h.uploads.UploadBlob(c.Request.Context(), data, filename, upload.Destination{
		Kind: upload.DestinationSprite, Name: name,
	})
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mediaUploadResponse{ID: result.EntityID, BlobHash: result.BlobHash, Deduplicated: result.Deduplicated})
}

// ListSprites handles GET /sprites.
func (h *MediaHandler) ListSprites(c *gin.Context) {
	result, err := h.graph.ListSprites(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "pageSize", 20))
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSprite handles GET /sprites/{id}.
func (h *MediaHandler) GetSprite(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	s, err := h.graph.GetSprite(c.Request.Context(), id)
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// SoftDeleteSprite handles DELETE /sprites/{id}.
func (h *MediaHandler) SoftDeleteSprite(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	if err := h.graph.SoftDeleteSprite(c.Request.Context(), id); err != nil {
		sendAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
