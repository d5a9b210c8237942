package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aura-talk/internal/presence"
)

// PresenceHandler exposes per-channel online status.
type PresenceHandler struct {
	store presence.Store
}

// NewPresenceHandler builds a PresenceHandler.
func NewPresenceHandler(store presence.Store) *PresenceHandler {
	return &PresenceHandler{store: store}
}

// Online lists the uids currently active in a channel.
func (h *PresenceHandler) Online(c *gin.Context) {
	channel := c.Param("channel")
	if channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing channel"})
		return
	}

	online, err := h.store.Online(c.Request.Context(), channel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load presence"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": channel, "online": online})
}
