package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationIDOrderIndependent(t *testing.T) {
	ab, err := ConversationID("alice-uid", "bob-uid")
	require.NoError(t, err)
	ba, err := ConversationID("bob-uid", "alice-uid")
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	assert.Equal(t, "alice-uid_bob-uid", ab)
}

func TestConversationIDRejectsEmptyParticipant(t *testing.T) {
	_, err := ConversationID("", "bob-uid")
	assert.ErrorIs(t, err, ErrInvalidConversation)

	_, err = ConversationID("alice-uid", "")
	assert.ErrorIs(t, err, ErrInvalidConversation)
}

func TestConversationIDDistinctPairsDistinctIDs(t *testing.T) {
	first, err := ConversationID("a", "b")
	require.NoError(t, err)
	second, err := ConversationID("a", "c")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestChatPartner(t *testing.T) {
	chat := Chat{ID: "a_b", Member1: "a", Member2: "b"}

	assert.Equal(t, "b", chat.Partner("a"))
	assert.Equal(t, "a", chat.Partner("b"))
	assert.Equal(t, []string{"a", "b"}, chat.Members())
}

func TestNewSnapshotEventWrapsWindow(t *testing.T) {
	msgs := []Message{{ID: "m1", SenderID: "a", Text: "hi"}}

	event, err := NewSnapshotEvent("a_b", msgs)
	require.NoError(t, err)

	assert.Equal(t, "snapshot", event.Type)
	assert.Equal(t, "a_b", event.Channel)
	assert.Contains(t, string(event.Messages), `"m1"`)
}
