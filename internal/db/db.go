package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS credentials (
            uid TEXT PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS profiles (
            uid TEXT PRIMARY KEY,
            username TEXT NOT NULL,
            email TEXT NOT NULL,
            profile_pic TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            last_active TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS usernames (
            username TEXT PRIMARY KEY,
            uid TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS chats (
            id TEXT PRIMARY KEY,
            member1 TEXT NOT NULL,
            member2 TEXT NOT NULL,
            last_message TEXT,
            last_message_timestamp TIMESTAMPTZ,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            chat_id TEXT NOT NULL,
            sender_id TEXT NOT NULL,
            sender_username TEXT NOT NULL,
            sender_profile_pic TEXT,
            receiver_id TEXT NOT NULL,
            text TEXT NOT NULL,
            reactions JSONB,
            reply_to TEXT,
            seen BOOLEAN NOT NULL DEFAULT FALSE,
            timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_ts ON messages (chat_id, timestamp);`,
		`CREATE TABLE IF NOT EXISTS world_messages (
            id TEXT PRIMARY KEY,
            sender_id TEXT NOT NULL,
            sender_username TEXT NOT NULL,
            sender_profile_pic TEXT,
            text TEXT NOT NULL,
            reactions JSONB,
            reply_to TEXT,
            timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_world_messages_ts ON world_messages (timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_chats_member1 ON chats (member1);`,
		`CREATE INDEX IF NOT EXISTS idx_chats_member2 ON chats (member2);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Info().Msg("database migrations applied")
	return nil
}
