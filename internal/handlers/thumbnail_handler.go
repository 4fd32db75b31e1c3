package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"modelibr/internal/apperr"
	"modelibr/internal/assetgraph"
	"modelibr/internal/assetmodel"
	"modelibr/internal/blobstore"
	"modelibr/internal/jobqueue"
	"modelibr/internal/utils"
)

// ThumbnailHandler exposes the derived-state endpoints: status, file
// streaming, and regeneration (which dedups through the queue the same way
// every other enqueue does).
type ThumbnailHandler struct {
	graph *assetgraph.Repository
	blobs *blobstore.Store
	queue *jobqueue.Repository
}

// NewThumbnailHandler constructs a ThumbnailHandler.
func NewThumbnailHandler(graph *assetgraph.Repository, blobs *blobstore.Store, queue *jobqueue.Repository) *ThumbnailHandler {
	return &ThumbnailHandler{graph: graph, blobs: blobs, queue: queue}
}

type thumbnailStatusResponse struct {
	Status       assetmodel.ThumbnailStatus `json:"status"`
	FileURL      *string                    `json:"fileUrl,omitempty"`
	SizeBytes    *int64                     `json:"sizeBytes,omitempty"`
	Width        *int                       `json:"width,omitempty"`
	Height       *int                       `json:"height,omitempty"`
	ErrorMessage *string                    `json:"errorMessage,omitempty"`
	CreatedAt    string                     `json:"createdAt,omitempty"`
	ProcessedAt  string                     `json:"processedAt,omitempty"`
}

// activeVersionID resolves a model id (the path parameter every thumbnail
// route accepts, per spec.md §6) to its active ModelVersion id, since
// Thumbnail rows are owned by a version, not a model.
func (h *ThumbnailHandler) activeVersionID(c *gin.Context, modelID int64) (int64, error) {
	m, err := h.graph.GetModel(c.Request.Context(), modelID)
	if err != nil {
		return 0, err
	}
	if m.ActiveVersionID == nil {
		return 0, apperr.New(apperr.CodeNotFound, "model has no active version")
	}
	return *m.ActiveVersionID, nil
}

// GetThumbnailStatus handles GET /models/{id}/thumbnail.
func (h *ThumbnailHandler) GetThumbnailStatus(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	versionID, err := h.activeVersionID(c, id)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			c.JSON(http.StatusOK, thumbnailStatusResponse{Status: assetmodel.ThumbnailPending})
			return
		}
		sendAppError(c, err)
		return
	}

	t, err := h.graph.GetThumbnail(c.Request.Context(), assetmodel.ThumbnailOwnerModelVersion, versionID)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			c.JSON(http.StatusOK, thumbnailStatusResponse{Status: assetmodel.ThumbnailPending})
			return
		}
		sendAppError(c, err)
		return
	}

	resp := thumbnailStatusResponse{
		Status:       t.Status,
		SizeBytes:    t.SizeBytes,
		Width:        t.Width,
		Height:       t.Height,
		ErrorMessage: t.ErrorMessage,
		CreatedAt:    t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if t.OutputBlobHash != nil {
		url := fmt.Sprintf("/models/%d/thumbnail/file", id)
		resp.FileURL = &url
	}
	if t.ProcessedAt != nil {
		resp.ProcessedAt = t.ProcessedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	c.JSON(http.StatusOK, resp)
}

// GetThumbnailFile handles GET /models/{id}/thumbnail/file.
func (h *ThumbnailHandler) GetThumbnailFile(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	versionID, err := h.activeVersionID(c, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "thumbnail not ready"})
		return
	}

	t, err := h.graph.GetThumbnail(c.Request.Context(), assetmodel.ThumbnailOwnerModelVersion, versionID)
	if err != nil || t.OutputBlobHash == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "thumbnail not ready"})
		return
	}

	rc, err := h.blobs.Get(c.Request.Context(), *t.OutputBlobHash)
	if err != nil {
		sendAppError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.Header("ETag", `"`+*t.OutputBlobHash+`"`)
	c.DataFromReader(http.StatusOK, -1, "image/png", rc, nil)
}

// RegenerateThumbnail handles POST /models/{id}/thumbnail/regenerate.
func (h *ThumbnailHandler) RegenerateThumbnail(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	versionID, err := h.activeVersionID(c, id)
	if err != nil {
		sendAppError(c, err)
		return
	}

	blobHash, err := h.graph.GetPrimaryRenderableBlob(c.Request.Context(), versionID)
	if err != nil {
		sendAppError(c, err)
		return
	}

	jobID, wasNew, err := h.queue.Enqueue(c.Request.Context(), jobqueue.EnqueueParams{
		Kind:           assetmodel.JobKindModelThumbnail,
		TargetEntityID: versionID,
		TargetBlobHash: blobHash,
		MaxAttempts:    assetmodel.DefaultMaxAttempts,
	})
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": jobID, "deduplicated": !wasNew})
}
