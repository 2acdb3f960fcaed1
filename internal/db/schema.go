package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements crea las tablas si no existen. Los borrados en cascada
// (users -> chats -> messages) quedan delegados a las foreign keys.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS users (
		id                VARCHAR PRIMARY KEY DEFAULT gen_random_uuid()::text,
		email             VARCHAR UNIQUE,
		first_name        VARCHAR,
		last_name         VARCHAR,
		password_hash     VARCHAR,
		profile_image_url VARCHAR,
		auth_provider     VARCHAR,
		auth_subject      VARCHAR,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS chats (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id    VARCHAR NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title      TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chats_user_updated ON chats (user_id, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		chat_id    UUID NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		role       VARCHAR NOT NULL CHECK (role IN ('user', 'assistant')),
		content    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages (chat_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		sid    VARCHAR PRIMARY KEY,
		sess   JSONB NOT NULL,
		expire TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS "IDX_session_expire" ON sessions (expire)`,
}

// EnsureSchema aplica el DDL idempotente sobre la base configurada.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
