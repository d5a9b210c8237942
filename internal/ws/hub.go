package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"aura-talk/internal/models"
	"aura-talk/internal/observability"
)

// Hub maintains the active subscriptions per channel. A channel is either a
// conversation id or the fixed world channel id. Every change to a channel's
// message window is pushed as a full snapshot to every subscriber.
type Hub struct {
	rooms    map[string]map[*websocket.Conn]bool
	connInfo map[string]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[*websocket.Conn]bool),
		connInfo: make(map[string]map[*websocket.Conn]ConnInfo),
	}
}

// AddClient registers a subscription to a channel.
func (h *Hub) AddClient(channelID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[channelID]; !ok {
		h.rooms[channelID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[channelID][conn] = true
	if _, ok := h.connInfo[channelID]; !ok {
		h.connInfo[channelID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[channelID][conn] = info
}

// RemoveClient releases a subscription. Empty rooms are dropped so channels
// opened once do not accumulate.
func (h *Hub) RemoveClient(channelID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[channelID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, channelID)
		}
	}
	if infos, ok := h.connInfo[channelID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, channelID)
		}
	}
}

// Subscribers reports how many connections a channel currently has.
func (h *Hub) Subscribers(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[channelID])
}

// BroadcastSnapshot delivers the full window snapshot to every subscriber of
// the channel. kind labels metrics and events ("world" or "direct").
func (h *Hub) BroadcastSnapshot(channelID, kind string, event models.ChannelEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[channelID]))
	for conn := range h.rooms[channelID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Error().Err(err).Str("channel", channelID).Msg("websocket write error")
			conn.Close()
			h.RemoveClient(channelID, conn)
			h.publishWSError(kind, channelID, conn, err)
		}
	}
}

func (h *Hub) publishWSError(kind, channelID string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(channelID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": observability.WSEventPayload{
			ChannelKind: kind,
			ChannelID:   channelID,
			Event:       "ws_error",
			ConnID:      info.ConnID,
			DurationMS:  time.Since(info.ConnectedAt).Milliseconds(),
			Reason:      err.Error(),
		},
		"identity": observability.WSIdentity{
			UserID:   info.UserID,
			DeviceID: info.DeviceID,
			IP:       info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), routingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func (h *Hub) getConnInfo(channelID string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[channelID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

func routingKey(kind string) string {
	if kind == "world" {
		return "ws_events.world"
	}
	return "ws_events.conversations"
}
