package repository

import (
	"context"
	"fmt"
)

// Таблица users принадлежит системе аккаунтов; здесь она создаётся только
// для локального запуска и тестовых стендов.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      VARCHAR(150) NOT NULL UNIQUE,
		email         VARCHAR(254) NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS chat_rooms (
		id         BIGSERIAL PRIMARY KEY,
		user1_id   BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		user2_id   BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT unique_chatroom_users UNIQUE (user1_id, user2_id),
		CONSTRAINT chatroom_users_ordered CHECK (user1_id < user2_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_rooms_user2 ON chat_rooms (user2_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id           BIGSERIAL PRIMARY KEY,
		chat_room_id BIGINT NOT NULL REFERENCES chat_rooms(id) ON DELETE CASCADE,
		sender_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		text         TEXT NOT NULL,
		time_stamp   TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
		is_read      BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_room_order ON messages (chat_room_id, time_stamp, id)`,
	`CREATE TABLE IF NOT EXISTS active_connections (
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		room_name   VARCHAR(255) NOT NULL,
		last_active TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, room_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_active_connections_last_active ON active_connections (last_active)`,
}

// Migrate creates the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db DBTX) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
