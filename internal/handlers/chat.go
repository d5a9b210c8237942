package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"aura-talk/internal/models"
	"aura-talk/internal/observability"
	"aura-talk/internal/repositories"
	"aura-talk/internal/ws"
)

// ChatHandler manages direct conversations: the conversation list, message
// windows and sends. Conversation ids are derived here from the caller and
// the partner named in the route, never accepted from the client.
type ChatHandler struct {
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	profiles repositories.ProfileRepository
	hub      *ws.Hub
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats repositories.ChatRepository, messages repositories.MessageRepository, profiles repositories.ProfileRepository, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{
		chats:    chats,
		messages: messages,
		profiles: profiles,
		hub:      hub,
	}
}

// ListChats returns the caller's conversations, most recent first, with the
// partner profile resolved in one bulk lookup.
func (h *ChatHandler) ListChats(c *gin.Context) {
	uid := currentUID(c)

	chats, err := h.chats.ListChats(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	partnerIDs := make([]string, 0, len(chats))
	for _, chat := range chats {
		partnerIDs = append(partnerIDs, chat.Partner(uid))
	}

	partners, err := h.profiles.BulkProfiles(c.Request.Context(), partnerIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load partner profiles"})
		return
	}
	byUID := make(map[string]models.UserProfile, len(partners))
	for _, p := range partners {
		byUID[p.UID] = p
	}

	summaries := make([]models.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		partner, ok := byUID[chat.Partner(uid)]
		if !ok {
			// Partner profile missing from the store; the entry is useless
			// for display, skip it.
			continue
		}
		summaries = append(summaries, models.ChatSummary{Chat: chat, Partner: partner})
	}

	c.JSON(http.StatusOK, gin.H{"chats": summaries})
}

// GetChat returns the summary record for the conversation with the route
// partner. The summary only exists once a first message has been sent.
func (h *ChatHandler) GetChat(c *gin.Context) {
	uid := currentUID(c)
	chatID, ok := h.conversationWith(c, uid)
	if !ok {
		return
	}

	chat, err := h.chats.GetChat(c.Request.Context(), chatID)
	if errors.Is(err, repositories.ErrChatNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no conversation with this user yet"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}

	partner, err := h.profiles.GetProfile(c.Request.Context(), chat.Partner(uid))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load partner profile"})
		return
	}

	c.JSON(http.StatusOK, models.ChatSummary{Chat: chat, Partner: partner})
}

// GetMessages returns the current window of the conversation with the route
// partner, ascending by timestamp, at most the latest fifty.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	uid := currentUID(c)
	chatID, ok := h.conversationWith(c, uid)
	if !ok {
		return
	}

	msgs, err := h.messages.Window(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat_id": chatID, "messages": msgs})
}

type sendMessageRequest struct {
	Text    string  `json:"text"`
	ReplyTo *string `json:"reply_to,omitempty"`
}

// SendMessage appends a message to the conversation log and then refreshes
// the denormalized chat summary. The two writes are sequential: if the
// summary write fails the message is still durably delivered and the
// conversation list stays stale until the next successful send. No retry.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	uid := currentUID(c)
	partnerID := c.Param("partner_id")
	chatID, ok := h.conversationWith(c, uid)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		// Rejected locally, no write is issued.
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text is empty", "field": "text"})
		return
	}

	sender, err := h.profiles.GetProfile(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sender profile"})
		return
	}

	msg := models.DirectMessage{
		Message: models.Message{
			SenderID:         sender.UID,
			SenderUsername:   sender.Username,
			SenderProfilePic: sender.ProfilePic,
			Text:             req.Text,
			ReplyTo:          req.ReplyTo,
		},
		ReceiverID: partnerID,
	}

	stored, err := h.messages.Append(c.Request.Context(), chatID, msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}
	observability.IncMessageSent("direct")

	// The summary reuses the timestamp assigned to the message, verbatim.
	summaryErr := h.chats.UpsertSummary(c.Request.Context(), chatID,
		[]string{sender.UID, partnerID}, stored.Text, stored.Timestamp)

	h.broadcastWindow(c, chatID)

	if summaryErr != nil {
		log.Error().Err(summaryErr).Str("chat_id", chatID).Msg("summary upsert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "message sent but conversation list update failed"})
		return
	}

	c.JSON(http.StatusCreated, stored)
}

func (h *ChatHandler) conversationWith(c *gin.Context, uid string) (string, bool) {
	partnerID := c.Param("partner_id")
	if partnerID == uid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return "", false
	}
	chatID, err := models.ConversationID(uid, partnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation partner"})
		return "", false
	}
	return chatID, true
}

func (h *ChatHandler) broadcastWindow(c *gin.Context, chatID string) {
	if h.hub == nil || h.hub.Subscribers(chatID) == 0 {
		return
	}
	msgs, err := h.messages.Window(c.Request.Context(), chatID)
	if err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("failed to load window for broadcast")
		return
	}
	event, err := models.NewSnapshotEvent(chatID, msgs)
	if err != nil {
		return
	}
	h.hub.BroadcastSnapshot(chatID, "direct", event)
}
