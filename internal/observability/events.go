package observability

// EventEnvelope wraps every event published to the topic exchange.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// WSEventPayload describes a websocket lifecycle event for a channel.
type WSEventPayload struct {
	ChannelKind string `json:"channel_kind"`
	ChannelID   string `json:"channel_id"`
	Event       string `json:"event"`
	ConnID      string `json:"conn_id"`
	DurationMS  int64  `json:"duration_ms"`
	Reason      string `json:"reason"`
}

// WSIdentity identifies the subscriber behind a websocket event.
type WSIdentity struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
	IP       string `json:"ip"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
