package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"aura-talk/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository maintains the denormalized conversation-summary records used
// to populate a user's conversation list.
type ChatRepository interface {
	UpsertSummary(ctx context.Context, chatID string, members []string, lastMessage string, lastMessageTS time.Time) error
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	ListChats(ctx context.Context, uid string) ([]models.Chat, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// UpsertSummary creates or merges the chat summary for a conversation.
// lastMessageTS must be the timestamp returned by the message append, reused
// verbatim. updated_at is store-assigned on every write; concurrent senders
// resolve last-writer-wins, which is fine for a display cache.
func (r *ChatRepo) UpsertSummary(ctx context.Context, chatID string, members []string, lastMessage string, lastMessageTS time.Time) error {
	if len(members) != 2 {
		return errors.New("chat requires exactly two members")
	}
	pair := []string{members[0], members[1]}
	sort.Strings(pair)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chats (id, member1, member2, last_message, last_message_timestamp, updated_at)
         VALUES ($1, $2, $3, $4, $5, NOW())
         ON CONFLICT (id) DO UPDATE
            SET last_message = EXCLUDED.last_message,
                last_message_timestamp = EXCLUDED.last_message_timestamp,
                updated_at = NOW()`,
		chatID, pair[0], pair[1], lastMessage, lastMessageTS)
	return err
}

// GetChat fetches a summary by conversation id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat,
		`SELECT id, member1, member2, last_message, last_message_timestamp, updated_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// ListChats returns the user's conversations, most recent message first.
func (r *ChatRepo) ListChats(ctx context.Context, uid string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats,
		`SELECT id, member1, member2, last_message, last_message_timestamp, updated_at
         FROM chats
         WHERE member1=$1 OR member2=$1
         ORDER BY last_message_timestamp DESC NULLS LAST`, uid)
	if chats == nil {
		chats = []models.Chat{}
	}
	return chats, err
}
