package sqlstore

import (
	"context"
	"fmt"
)

// migration is one idempotent schema step. Each step carries the DDL for
// both dialects.
type migration struct {
	name     string
	sqlite   string
	postgres string
}

// migrations are applied in order on every start. CREATE … IF NOT EXISTS
// keeps them safe to rerun.
var migrations = []migration{
	{
		name: "users",
		sqlite: `
			CREATE TABLE IF NOT EXISTS users (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				email         TEXT NOT NULL UNIQUE,
				name          TEXT NOT NULL,
				password_hash TEXT NOT NULL DEFAULT '',
				created_at    DATETIME NOT NULL
			);`,
		postgres: `
			CREATE TABLE IF NOT EXISTS users (
				id            BIGSERIAL PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				name          TEXT NOT NULL,
				password_hash TEXT NOT NULL DEFAULT '',
				created_at    TIMESTAMPTZ NOT NULL
			);`,
	},
	{
		name: "ideas",
		sqlite: `
			CREATE TABLE IF NOT EXISTS ideas (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				title       TEXT NOT NULL,
				summary     TEXT NOT NULL,
				description TEXT,
				repo_url    TEXT,
				status      TEXT NOT NULL DEFAULT 'LOOKING_FOR_HELP'
				            CHECK (status IN ('DRAFT', 'LOOKING_FOR_HELP', 'IN_PROGRESS', 'COMPLETED')),
				upvotes     INTEGER NOT NULL DEFAULT 0,
				created_at  DATETIME NOT NULL,
				owner_id    INTEGER NOT NULL REFERENCES users(id)
			);
			CREATE INDEX IF NOT EXISTS idx_ideas_created_at ON ideas(created_at DESC, id DESC);
			CREATE INDEX IF NOT EXISTS idx_ideas_owner_id ON ideas(owner_id);`,
		postgres: `
			CREATE TABLE IF NOT EXISTS ideas (
				id          BIGSERIAL PRIMARY KEY,
				title       TEXT NOT NULL,
				summary     TEXT NOT NULL,
				description TEXT,
				repo_url    TEXT,
				status      TEXT NOT NULL DEFAULT 'LOOKING_FOR_HELP'
				            CHECK (status IN ('DRAFT', 'LOOKING_FOR_HELP', 'IN_PROGRESS', 'COMPLETED')),
				upvotes     INTEGER NOT NULL DEFAULT 0,
				created_at  TIMESTAMPTZ NOT NULL,
				owner_id    BIGINT NOT NULL REFERENCES users(id)
			);
			CREATE INDEX IF NOT EXISTS idx_ideas_created_at ON ideas(created_at DESC, id DESC);
			CREATE INDEX IF NOT EXISTS idx_ideas_owner_id ON ideas(owner_id);`,
	},
	{
		name: "tags",
		sqlite: `
			CREATE TABLE IF NOT EXISTS tags (
				id   INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE
			);
			CREATE TABLE IF NOT EXISTS idea_tags (
				idea_id INTEGER NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
				tag_id  INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				PRIMARY KEY (idea_id, tag_id)
			);
			CREATE INDEX IF NOT EXISTS idx_idea_tags_tag_id ON idea_tags(tag_id);`,
		postgres: `
			CREATE TABLE IF NOT EXISTS tags (
				id   BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL UNIQUE
			);
			CREATE TABLE IF NOT EXISTS idea_tags (
				idea_id BIGINT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
				tag_id  BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				PRIMARY KEY (idea_id, tag_id)
			);
			CREATE INDEX IF NOT EXISTS idx_idea_tags_tag_id ON idea_tags(tag_id);`,
	},
	{
		name: "comments",
		sqlite: `
			CREATE TABLE IF NOT EXISTS comments (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				body       TEXT NOT NULL,
				author_id  INTEGER NOT NULL REFERENCES users(id),
				idea_id    INTEGER NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
				created_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_comments_idea_id ON comments(idea_id);`,
		postgres: `
			CREATE TABLE IF NOT EXISTS comments (
				id         BIGSERIAL PRIMARY KEY,
				body       TEXT NOT NULL,
				author_id  BIGINT NOT NULL REFERENCES users(id),
				idea_id    BIGINT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
				created_at TIMESTAMPTZ NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_comments_idea_id ON comments(idea_id);`,
	},
}

// Migrate applies every schema step for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		ddl := m.sqlite
		if s.dialect == Postgres {
			ddl = m.postgres
		}
		if _, err := s.conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("sqlstore: migrating %s: %w", m.name, err)
		}
	}
	return nil
}
