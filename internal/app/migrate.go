package app

import (
	"context"
	"time"
)

const migrateTimeout = 30 * time.Second

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           UUID PRIMARY KEY,
		email        TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password     TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id            UUID PRIMARY KEY,
		user_id       UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		refresh_token TEXT NOT NULL UNIQUE,
		fingerprint   TEXT NOT NULL,
		expires_at    TIMESTAMPTZ NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions (user_id)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		owner_id    UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		archived    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS project_members (
		id         UUID PRIMARY KEY,
		project_id UUID NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
		user_id    UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		role       TEXT NOT NULL CHECK (role IN ('owner', 'manager', 'participant')),
		state      TEXT NOT NULL CHECK (state IN ('invited', 'active')),
		invited_by UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (project_id, user_id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_project_members_single_owner
		ON project_members (project_id) WHERE role = 'owner'`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id              UUID PRIMARY KEY,
		project_id      UUID NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
		creator_id      UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		due_at          TIMESTAMPTZ NOT NULL,
		habit           BOOLEAN NOT NULL DEFAULT FALSE,
		recur_pattern   TEXT NOT NULL DEFAULT '',
		recur_interval  INT NOT NULL DEFAULT 0,
		base_experience INT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks (project_id)`,
	`CREATE TABLE IF NOT EXISTS task_statuses (
		id          UUID PRIMARY KEY,
		task_id     UUID NOT NULL REFERENCES tasks (id) ON DELETE CASCADE,
		user_id     UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		state       TEXT NOT NULL CHECK (state IN ('active', 'archived')),
		recovered   BOOLEAN NOT NULL DEFAULT FALSE,
		archived_at TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (task_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS completion_logs (
		id           UUID PRIMARY KEY,
		task_id      UUID NOT NULL REFERENCES tasks (id) ON DELETE CASCADE,
		user_id      UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		completed_at TIMESTAMPTZ NOT NULL,
		experience   INT NOT NULL,
		penalized    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (task_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_completion_logs_user_id ON completion_logs (user_id)`,
	`CREATE TABLE IF NOT EXISTS friendships (
		id           UUID PRIMARY KEY,
		requester_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		addressee_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		status       TEXT NOT NULL CHECK (status IN ('pending', 'accepted')),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (requester_id, addressee_id),
		CHECK (requester_id <> addressee_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		kind       TEXT NOT NULL,
		payload    JSONB NOT NULL DEFAULT '{}',
		read       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications (user_id)`,
}

// MustMigratePostgres applies the schema statements in order. Every
// statement is idempotent, so reruns on startup are safe.
func MustMigratePostgres() {
	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	for _, stmt := range migrations {
		_, err := globalPostgresPool.Exec(ctx, stmt)
		if err != nil {
			globalLogger.Error().
				Err(err).
				Msg("failed to apply migration")
			panic(err)
		}
	}
	globalLogger.Info().
		Int("statements", len(migrations)).
		Msg("applied postgres migrations")
}
