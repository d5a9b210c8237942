package models

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrInvalidConversation is returned when a conversation id cannot be derived.
var ErrInvalidConversation = errors.New("invalid conversation participants")

// WorldChannelID is the fixed id of the shared world channel.
const WorldChannelID = "world"

// Chat is the denormalized summary of a two-party conversation, used to
// populate the conversation list. LastMessage and LastMessageTimestamp mirror
// the most recently written message in the conversation's log; the mirror is
// maintained by a separate write and can briefly lag the log.
type Chat struct {
	ID                   string     `db:"id" json:"id"`
	Member1              string     `db:"member1" json:"-"`
	Member2              string     `db:"member2" json:"-"`
	LastMessage          *string    `db:"last_message" json:"last_message"`
	LastMessageTimestamp *time.Time `db:"last_message_timestamp" json:"last_message_timestamp"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// Members returns the two participant uids in sorted order.
func (c Chat) Members() []string {
	return []string{c.Member1, c.Member2}
}

// Partner returns the other participant of the chat relative to uid.
func (c Chat) Partner(uid string) string {
	if c.Member1 == uid {
		return c.Member2
	}
	return c.Member1
}

// ConversationID derives the canonical id for a two-party conversation by
// sorting the pair and joining with an underscore, so both participants
// derive the same id regardless of who initiates.
func ConversationID(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", ErrInvalidConversation
	}
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "_"), nil
}

// ChatSummary is the API view of a chat entry, with the partner profile
// resolved for display.
type ChatSummary struct {
	Chat
	Partner UserProfile `json:"partner"`
}
