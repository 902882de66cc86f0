package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently at startup when migrations are enabled.
// user_profile and application_link are projections owned by the
// marketplace services; chat only reads them.
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS chat`,
	`CREATE TABLE IF NOT EXISTS chat.user_profile (
		user_id      text PRIMARY KEY,
		display_name text NOT NULL DEFAULT '',
		avatar_url   text NOT NULL DEFAULT '',
		push_enabled boolean NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS chat.application_link (
		id           text PRIMARY KEY,
		applicant_id text NOT NULL,
		employer_id  text NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chat.conversation (
		id              uuid PRIMARY KEY,
		user_a          text NOT NULL,
		user_b          text NOT NULL,
		origin_link     text NOT NULL DEFAULT '',
		status          text NOT NULL DEFAULT 'ACTIVE'
		                CHECK (status IN ('ACTIVE', 'ARCHIVED', 'AUTO_ARCHIVED')),
		created_at      timestamptz NOT NULL,
		last_message_at timestamptz,
		archived_at     timestamptz,
		archived_by     text,
		CHECK (user_a < user_b),
		UNIQUE (user_a, user_b, origin_link)
	)`,
	`CREATE INDEX IF NOT EXISTS conversation_user_a_idx ON chat.conversation (user_a, status)`,
	`CREATE INDEX IF NOT EXISTS conversation_user_b_idx ON chat.conversation (user_b, status)`,
	`CREATE INDEX IF NOT EXISTS conversation_activity_idx
		ON chat.conversation ((COALESCE(last_message_at, created_at))) WHERE status = 'ACTIVE'`,
	`CREATE TABLE IF NOT EXISTS chat.message (
		id              uuid PRIMARY KEY,
		conversation_id uuid NOT NULL REFERENCES chat.conversation (id),
		sender_id       text NOT NULL,
		type            text NOT NULL CHECK (type IN ('TEXT', 'IMAGE', 'SYSTEM')),
		content         text,
		attachment_ref  text,
		metadata        jsonb NOT NULL DEFAULT '{}'::jsonb,
		created_at      timestamptz NOT NULL,
		read_at         timestamptz,
		is_archived     boolean NOT NULL DEFAULT false,
		search_vector   tsvector
	)`,
	`CREATE INDEX IF NOT EXISTS message_page_idx ON chat.message (conversation_id, created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS message_unread_idx ON chat.message (conversation_id, sender_id) WHERE read_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS message_search_idx ON chat.message USING gin (search_vector)`,
	`CREATE TABLE IF NOT EXISTS chat.message_image (
		id           uuid PRIMARY KEY,
		message_id   uuid NOT NULL UNIQUE REFERENCES chat.message (id),
		storage_key  text NOT NULL,
		width        integer NOT NULL,
		height       integer NOT NULL,
		created_at   timestamptz NOT NULL,
		delete_after timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS message_image_delete_after_idx ON chat.message_image (delete_after, id)`,
}

// Migrate creates the chat schema if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate step %d: %w", i, err)
		}
	}
	return nil
}
