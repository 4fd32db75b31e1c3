package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"modelibr/internal/assetgraph"
	"modelibr/internal/assetmodel"
	"modelibr/internal/config"
	"modelibr/internal/pushhub"
	"modelibr/internal/upload"
	"modelibr/internal/utils"
)

// Size caps read once at startup: UPLOAD_MAX_BYTES (default 1 GiB) for
// model/auxiliary/sound uploads, THUMBNAIL_MAX_BYTES (default 10 MiB) for
// image-class uploads (textures, sprites).
var (
	maxUploadBytes = config.LoadUploads().MaxBytes
	maxImageBytes  = config.LoadUploads().ThumbnailMaxBytes
)

// ModelHandler exposes the model-domain upload and query endpoints.
type ModelHandler struct {
	graph   *assetgraph.Repository
	uploads *upload.Service
	hub     *pushhub.Hub
}

// NewModelHandler constructs a ModelHandler.
func NewModelHandler(graph *assetgraph.Repository, uploads *upload.Service, hub *pushhub.Hub) *ModelHandler {
	return &ModelHandler{graph: graph, uploads: uploads, hub: hub}
}

type uploadResponse struct {
	ID           int64  `json:"id"`
	VersionID    *int64 `json:"versionId"`
	BlobHash     string `json:"blobHash"`
	Deduplicated bool   `json:"deduplicated"`
}

// CreateModel handles POST /models (multipart, field "file"): creates a new
// Model and its first ModelVersion from the uploaded renderable.
func (h *ModelHandler) CreateModel(c *gin.Context) {
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
		Kind:      upload.DestinationNewModel,
		ModelName: name,
		Role:      assetmodel.BlobRolePrimaryRenderable,
	})
	if err != nil {
		sendAppError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Deduplicated {
		status = http.StatusOK
	} else if h.hub != nil && result.VersionID != nil {
		h.hub.BroadcastActiveVersionChanged(result.EntityID, *result.VersionID, nil)
	}

	c.JSON(status, uploadResponse{
		ID:           result.EntityID,
		VersionID:    result.VersionID,
		BlobHash:     result.BlobHash,
		Deduplicated: result.Deduplicated,
	})
}

// CreateModelVersion handles POST /models/{id}/versions.
func (h *ModelHandler) CreateModelVersion(c *gin.Context) {
	modelID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}

	data, filename, err := readMultipartFile(c, "file", maxUploadBytes)
	if err != nil {
		sendUploadError(c, err)
		return
	}

	result, err := h.uploads.UploadBlob(c.Request.Context(), data, filename, upload.Destination{
		Kind:    upload.DestinationModelVersion,
		ModelID: modelID,
		Role:    assetmodel.BlobRolePrimaryRenderable,
	})
	if err != nil {
		sendAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, uploadResponse{
		ID:           result.EntityID,
		VersionID:    result.VersionID,
		BlobHash:     result.BlobHash,
		Deduplicated: result.Deduplicated,
	})
}

// ListModels handles GET /models?page=&pageSize=&packId=&projectId=&textureSetId=.
func (h *ModelHandler) ListModels(c *gin.Context) {
	params := assetgraph.ListParams{
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "pageSize", 20),
		PackID:       queryOptionalInt64(c, "packId"),
		ProjectID:    queryOptionalInt64(c, "projectId"),
		TextureSetID: queryOptionalInt64(c, "textureSetId"),
	}
	result, err := h.graph.ListModels(c.Request.Context(), params)
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type modelDetailResponse struct {
	*assetmodel.Model
	Versions []assetmodel.ModelVersion `json:"versions"`
}

// GetModel handles GET /models/{id}.
func (h *ModelHandler) GetModel(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	model, err := h.graph.GetModel(c.Request.Context(), id)
	if err != nil {
		sendAppError(c, err)
		return
	}
	versions, err := h.graph.ListModelVersions(c.Request.Context(), id)
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, modelDetailResponse{Model: model, Versions: versions})
}

type setActiveVersionRequest struct {
	VersionID int64 `json:"versionId" binding:"required"`
}

// SetActiveVersion handles PUT /models/{id}/active-version.
func (h *ModelHandler) SetActiveVersion(c *gin.Context) {
	modelID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	var req setActiveVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}

	prevVersionID, err := h.graph.SetActiveVersion(c.Request.Context(), modelID, req.VersionID)
	if err != nil {
		sendAppError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastActiveVersionChanged(modelID, req.VersionID, prevVersionID)
	}
	c.Status(http.StatusNoContent)
}

type setDefaultTextureSetRequest struct {
	TextureSetID *int64 `json:"textureSetId"`
}

// SetDefaultTextureSet handles PUT /models/{id}/default-texture-set.
func (h *ModelHandler) SetDefaultTextureSet(c *gin.Context) {
	modelID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	var req setDefaultTextureSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	if err := h.graph.SetDefaultTextureSet(c.Request.Context(), modelID, req.TextureSetID); err != nil {
		sendAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SoftDeleteModel handles DELETE /models/{id}.
func (h *ModelHandler) SoftDeleteModel(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	if err := h.graph.SoftDeleteModel(c.Request.Context(), id); err != nil {
		sendAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func readMultipartFile(c *gin.Context, field string, maxBytes int64) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	if fh.Size > maxBytes {
		return nil, "", errTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxBytes {
		return nil, "", errTooLarge
	}
	return data, fh.Filename, nil
}
