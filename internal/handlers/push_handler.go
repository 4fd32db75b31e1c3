package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"modelibr/internal/pushhub"
)

// PushHandler upgrades HTTP connections into the push notification fabric.
type PushHandler struct {
	hub    *pushhub.Hub
	logger *slog.Logger
}

// NewPushHandler constructs a PushHandler.
func NewPushHandler(hub *pushhub.Hub, logger *slog.Logger) *PushHandler {
	return &PushHandler{hub: hub, logger: logger}
}

// Connect handles GET /ws, upgrading the request to a websocket connection
// joined to the all-models group by default.
func (h *PushHandler) Connect(c *gin.Context) {
	if err := h.hub.ServeWS(c.Writer, c.Request); err != nil {
		h.logger.Warn("push connection failed", "error", err)
	}
}
