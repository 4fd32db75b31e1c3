package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"modelibr/internal/assetgraph"
	"modelibr/internal/assetmodel"
	"modelibr/internal/upload"
	"modelibr/internal/utils"
)

// TextureSetHandler exposes texture-set creation, membership uploads, and
// queries.
type TextureSetHandler struct {
	graph   *assetgraph.Repository
	uploads *upload.Service
}

// NewTextureSetHandler constructs a TextureSetHandler.
func NewTextureSetHandler(graph *assetgraph.Repository, uploads *upload.Service) *TextureSetHandler {
	return &TextureSetHandler{graph: graph, uploads: uploads}
}

type textureUploadResponse struct {
	TextureSetID int64  `json:"textureSetId"`
	BlobHash     string `json:"blobHash"`
	Deduplicated bool   `json:"deduplicated"`
}

// CreateTextureSet handles POST /texture-sets (multipart, field "file"):
// creates a new TextureSet from its first texture.
func (h *TextureSetHandler) CreateTextureSet(c *gin.Context) {
	data, filename, err := readMultipartFile(c, "file", maxImageBytes)
	if err != nil {
		sendUploadError(c, err)
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = filename
	}
	textureType := assetmodel.TextureType(c.PostForm("type"))

	result, err := h.uploads.UploadBlob(c.Request.Context(), data, filename, upload.Destination{
		Kind:           upload.DestinationNewTextureSet,
		TextureSetName: name,
		TextureType:    textureType,
	})
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, textureUploadResponse{
		TextureSetID: result.EntityID, BlobHash: result.BlobHash, Deduplicated: result.Deduplicated,
	})
}

// AddTexture handles POST /texture-sets/{id}/textures.
func (h *TextureSetHandler) AddTexture(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	data, filename, err := readMultipartFile(c, "file", maxImageBytes)
	if err != nil {
		sendUploadError(c, err)
		return
	}
	textureType := assetmodel.TextureType(c.PostForm("type"))
	var sourceChannel *assetmodel.SourceChannel
	if raw := c.PostForm("sourceChannel"); raw != "" {
		sc := assetmodel.SourceChannel(raw)
		sourceChannel = &sc
	}

	result, err := h.uploads.UploadBlob(c.Request.Context(), data, filename, upload.Destination{
		Kind:                 upload.DestinationTextureSetMember,
		TextureSetID:         id,
		TextureType:          textureType,
		TextureSourceChannel: sourceChannel,
	})
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, textureUploadResponse{
		TextureSetID: result.EntityID, BlobHash: result.BlobHash, Deduplicated: result.Deduplicated,
	})
}

// ListTextureSets handles GET /texture-sets.
func (h *TextureSetHandler) ListTextureSets(c *gin.Context) {
	result, err := h.graph.ListTextureSets(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "pageSize", 20))
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type textureSetDetailResponse struct {
	*assetmodel.TextureSet
	Textures []assetmodel.Texture `json:"textures"`
}

// GetTextureSet handles GET /texture-sets/{id}.
func (h *TextureSetHandler) GetTextureSet(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	ts, err := h.graph.GetTextureSet(c.Request.Context(), id)
	if err != nil {
		sendAppError(c, err)
		return
	}
	textures, err := h.graph.ListTextures(c.Request.Context(), id)
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, textureSetDetailResponse{TextureSet: ts, Textures: textures})
}

// SoftDeleteTextureSet handles DELETE /texture-sets/{id}.
func (h *TextureSetHandler) SoftDeleteTextureSet(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	if err := h.graph.SoftDeleteTextureSet(c.Request.Context(), id); err != nil {
		sendAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
