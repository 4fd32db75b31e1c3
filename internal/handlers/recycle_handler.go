package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"modelibr/internal/assetmodel"
	"modelibr/internal/recycle"
	"modelibr/internal/utils"
)

// RecycleHandler exposes the recycle bin endpoints.
type RecycleHandler struct {
	service *recycle.Service
}

// NewRecycleHandler constructs a RecycleHandler.
func NewRecycleHandler(service *recycle.Service) *RecycleHandler {
	return &RecycleHandler{service: service}
}

// List handles GET /recycle.
func (h *RecycleHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context())
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Restore handles POST /recycle/{kind}/{id}/restore.
func (h *RecycleHandler) Restore(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	kind := assetmodel.RecyclableKind(c.Param("kind"))
	if err := h.service.Restore(c.Request.Context(), kind, id); err != nil {
		sendAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Purge handles DELETE /recycle/{kind}/{id}.
func (h *RecycleHandler) Purge(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	kind := assetmodel.RecyclableKind(c.Param("kind"))
	if err := h.service.Purge(c.Request.Context(), kind, id); err != nil {
		sendAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
