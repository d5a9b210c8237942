package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"aura-talk/internal/models"
)

// WorldRepository is the single shared message log behind the world channel.
// Same bounded-window contract as direct conversations, no pairing and no
// summary record.
type WorldRepository interface {
	Append(ctx context.Context, msg models.Message) (models.Message, error)
	Window(ctx context.Context) ([]models.Message, error)
}

// WorldRepo is a sqlx-backed repository.
type WorldRepo struct {
	db *sqlx.DB
}

// NewWorldRepo constructs WorldRepo.
func NewWorldRepo(db *sqlx.DB) *WorldRepo {
	return &WorldRepo{db: db}
}

// Append stores a world-channel message with a store-assigned timestamp.
func (r *WorldRepo) Append(ctx context.Context, msg models.Message) (models.Message, error) {
	msg.ID = uuid.NewString()
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO world_messages (id, sender_id, sender_username, sender_profile_pic, text, reactions, reply_to)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING timestamp`,
		msg.ID, msg.SenderID, msg.SenderUsername, msg.SenderProfilePic,
		msg.Text, msg.Reactions, msg.ReplyTo).
		Scan(&msg.Timestamp)
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Window returns the latest WindowSize world messages ascending by timestamp.
func (r *WorldRepo) Window(ctx context.Context) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, sender_id, sender_username, sender_profile_pic, text, reactions, reply_to, timestamp
         FROM (
             SELECT * FROM world_messages
             ORDER BY timestamp DESC, id DESC LIMIT $1
         ) latest
         ORDER BY timestamp ASC, id ASC`,
		WindowSize)
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, err
}
