package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"aura-talk/internal/identity"
	"aura-talk/internal/models"
	"aura-talk/internal/observability"
	"aura-talk/internal/presence"
	"aura-talk/internal/repositories"
)

// SubscriptionHandler upgrades websocket subscriptions for the world channel
// and for direct conversations. Each subscriber receives the current window
// snapshot on connect and a fresh snapshot on every later change.
type SubscriptionHandler struct {
	hub         *Hub
	messageRepo repositories.MessageRepository
	worldRepo   repositories.WorldRepository
	presence    presence.Store
	jwtSecret   string
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(hub *Hub, messageRepo repositories.MessageRepository, worldRepo repositories.WorldRepository, pres presence.Store, jwtSecret string) *SubscriptionHandler {
	return &SubscriptionHandler{
		hub:         hub,
		messageRepo: messageRepo,
		worldRepo:   worldRepo,
		presence:    pres,
		jwtSecret:   jwtSecret,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWorld subscribes the caller to the world channel.
func (h *SubscriptionHandler) HandleWorld(c *gin.Context) {
	uid, ok := h.authenticate(c)
	if !ok {
		return
	}

	msgs, err := h.worldRepo.Window(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	event, err := models.NewSnapshotEvent(models.WorldChannelID, msgs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	h.subscribe(c, models.WorldChannelID, "world", uid, event)
}

// HandleConversation subscribes the caller to the conversation with the
// partner named in the route. The conversation id is derived here, so both
// parties land in the same room no matter who connects first.
func (h *SubscriptionHandler) HandleConversation(c *gin.Context) {
	uid, ok := h.authenticate(c)
	if !ok {
		return
	}

	partnerID := c.Param("partner_id")
	chatID, err := models.ConversationID(uid, partnerID)
	if err != nil || partnerID == uid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation partner"})
		return
	}

	msgs, err := h.messageRepo.Window(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	event, err := models.NewSnapshotEvent(chatID, msgs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	h.subscribe(c, chatID, "direct", uid, event)
}

// authenticate accepts the token from the Authorization header or, for
// browser websocket clients that cannot set headers, a query parameter.
func (h *SubscriptionHandler) authenticate(c *gin.Context) (string, bool) {
	token := c.GetHeader("Authorization")
	if token != "" {
		if len(token) > 7 && (token[:7] == "Bearer " || token[:7] == "bearer ") {
			token = token[7:]
		}
	} else {
		token = c.Query("token")
	}

	claims, err := identity.ParseToken(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", false
	}
	return claims.UID, true
}

func (h *SubscriptionHandler) subscribe(c *gin.Context, channelID, kind, uid string, initial models.ChannelEvent) {
	ctx, span := otel.Tracer("aura-talk/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      uid,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(channelID, conn, info)
	_ = h.presence.Heartbeat(ctx, channelID, uid)

	if payload, err := json.Marshal(initial); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}

	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")
	_ = observability.PublishEvent(ctx, routingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload: map[string]interface{}{
			"ws": observability.WSEventPayload{
				ChannelKind: kind,
				ChannelID:   channelID,
				Event:       "ws_connect",
				ConnID:      info.ConnID,
			},
			"identity": observability.WSIdentity{
				UserID:   info.UserID,
				DeviceID: info.DeviceID,
				IP:       info.IP,
			},
		},
	}, observability.BuildHeaders(requestID, traceID))

	// Read loop keeps the subscription alive; any client frame doubles as a
	// presence heartbeat. The subscription is released on every exit path.
	// net/http cancels the request context as soon as the handler returns,
	// so the loop runs on a detached context that keeps the trace values.
	loopCtx := context.WithoutCancel(ctx)
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(channelID, conn)
			observability.DecWSActive(kind)
			observability.IncWSEvent(kind, "ws_disconnect")
			_ = observability.PublishEvent(loopCtx, routingKey(kind), observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload: map[string]interface{}{
					"ws": observability.WSEventPayload{
						ChannelKind: kind,
						ChannelID:   channelID,
						Event:       "ws_disconnect",
						ConnID:      info.ConnID,
						DurationMS:  time.Since(info.ConnectedAt).Milliseconds(),
						Reason:      closeReason,
					},
					"identity": observability.WSIdentity{
						UserID:   info.UserID,
						DeviceID: info.DeviceID,
						IP:       info.IP,
					},
				},
			}, observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(kind, "ws_error")
				}
				return
			}
			_ = h.presence.Heartbeat(loopCtx, channelID, uid)
		}
	}()
}
