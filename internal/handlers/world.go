package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"aura-talk/internal/models"
	"aura-talk/internal/observability"
	"aura-talk/internal/repositories"
	"aura-talk/internal/ws"
)

// WorldHandler serves the shared world channel. Same window and send
// contract as direct conversations, minus pairing and the summary record.
type WorldHandler struct {
	world    repositories.WorldRepository
	profiles repositories.ProfileRepository
	hub      *ws.Hub
}

// NewWorldHandler builds a WorldHandler.
func NewWorldHandler(world repositories.WorldRepository, profiles repositories.ProfileRepository, hub *ws.Hub) *WorldHandler {
	return &WorldHandler{world: world, profiles: profiles, hub: hub}
}

// GetMessages returns the current world window.
func (h *WorldHandler) GetMessages(c *gin.Context) {
	msgs, err := h.world.Window(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": models.WorldChannelID, "messages": msgs})
}

// SendMessage appends to the world log and pushes a fresh snapshot.
func (h *WorldHandler) SendMessage(c *gin.Context) {
	uid := currentUID(c)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text is empty", "field": "text"})
		return
	}

	sender, err := h.profiles.GetProfile(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sender profile"})
		return
	}

	msg := models.Message{
		SenderID:         sender.UID,
		SenderUsername:   sender.Username,
		SenderProfilePic: sender.ProfilePic,
		Text:             req.Text,
		ReplyTo:          req.ReplyTo,
	}

	stored, err := h.world.Append(c.Request.Context(), msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}
	observability.IncMessageSent("world")

	h.broadcastWindow(c)
	c.JSON(http.StatusCreated, stored)
}

func (h *WorldHandler) broadcastWindow(c *gin.Context) {
	if h.hub == nil || h.hub.Subscribers(models.WorldChannelID) == 0 {
		return
	}
	msgs, err := h.world.Window(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load world window for broadcast")
		return
	}
	event, err := models.NewSnapshotEvent(models.WorldChannelID, msgs)
	if err != nil {
		return
	}
	h.hub.BroadcastSnapshot(models.WorldChannelID, "world", event)
}
