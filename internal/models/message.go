package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Reactions maps an emoji to the uids that reacted with it. Stored as JSONB.
type Reactions map[string][]string

// Value implements driver.Valuer so the JSONB column can be written.
func (r Reactions) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for the JSONB column.
func (r *Reactions) Scan(src interface{}) error {
	if src == nil {
		*r = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.New("reactions: expected []byte from driver")
	}
	return json.Unmarshal(b, r)
}

// Message is a world-channel message. The sender fields are a snapshot taken
// at send time, not a live join against the profile store.
type Message struct {
	ID               string    `db:"id" json:"id"`
	SenderID         string    `db:"sender_id" json:"sender_id"`
	SenderUsername   string    `db:"sender_username" json:"sender_username"`
	SenderProfilePic *string   `db:"sender_profile_pic" json:"sender_profile_pic"`
	Text             string    `db:"text" json:"text"`
	Timestamp        time.Time `db:"timestamp" json:"timestamp"`
	Reactions        Reactions `db:"reactions" json:"reactions,omitempty"`
	ReplyTo          *string   `db:"reply_to" json:"reply_to,omitempty"`
}

// DirectMessage is a message in a two-party conversation. Seen is written
// false on creation; nothing transitions it yet.
type DirectMessage struct {
	Message
	ReceiverID string `db:"receiver_id" json:"receiver_id"`
	Seen       bool   `db:"seen" json:"seen"`
}

// ChannelEvent is pushed over websocket connections. Every change inside a
// channel's window re-delivers the whole window, ascending by timestamp.
type ChannelEvent struct {
	Type     string          `json:"type"`
	Channel  string          `json:"channel"`
	Messages json.RawMessage `json:"messages"`
}

// NewSnapshotEvent wraps a message window in a snapshot event. msgs is a
// slice of Message or DirectMessage.
func NewSnapshotEvent(channel string, msgs interface{}) (ChannelEvent, error) {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return ChannelEvent{}, err
	}
	return ChannelEvent{Type: "snapshot", Channel: channel, Messages: raw}, nil
}
