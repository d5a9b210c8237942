package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"aura-talk/internal/models"
)

// WindowSize bounds every live message window: the latest entries only,
// re-delivered in full on each change.
const WindowSize = 50

// MessageRepository is the append-only log of direct messages, one log per
// conversation id.
type MessageRepository interface {
	Append(ctx context.Context, chatID string, msg models.DirectMessage) (models.DirectMessage, error)
	Window(ctx context.Context, chatID string) ([]models.DirectMessage, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append stores a direct message. The id is assigned here and the timestamp
// by the store; the returned copy carries both so callers can reuse the
// exact timestamp for the summary record. Seen always starts false.
func (r *MessageRepo) Append(ctx context.Context, chatID string, msg models.DirectMessage) (models.DirectMessage, error) {
	msg.ID = uuid.NewString()
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, chat_id, sender_id, sender_username, sender_profile_pic, receiver_id, text, reactions, reply_to, seen)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE)
         RETURNING timestamp`,
		msg.ID, chatID, msg.SenderID, msg.SenderUsername, msg.SenderProfilePic,
		msg.ReceiverID, msg.Text, msg.Reactions, msg.ReplyTo).
		Scan(&msg.Timestamp)
	if err != nil {
		return models.DirectMessage{}, err
	}
	msg.Seen = false
	return msg, nil
}

// Window returns the latest WindowSize messages of the conversation in
// ascending timestamp order. Ties within one timestamp are broken by id so
// the order is stable across reads.
func (r *MessageRepo) Window(ctx context.Context, chatID string) ([]models.DirectMessage, error) {
	var msgs []models.DirectMessage
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, sender_id, sender_username, sender_profile_pic, receiver_id, text, reactions, reply_to, seen, timestamp
         FROM (
             SELECT * FROM messages WHERE chat_id=$1
             ORDER BY timestamp DESC, id DESC LIMIT $2
         ) latest
         ORDER BY timestamp ASC, id ASC`,
		chatID, WindowSize)
	if msgs == nil {
		msgs = []models.DirectMessage{}
	}
	return msgs, err
}
