package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order inside a single transaction per
// statement batch. Statements are idempotent so startup can run them
// unconditionally.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		slug       TEXT NOT NULL UNIQUE,
		owner_id   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS organization_members (
		org_id    TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		user_id   TEXT NOT NULL,
		role      TEXT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (org_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS teams (
		id         TEXT PRIMARY KEY,
		org_id     TEXT NOT NULL,
		name       TEXT NOT NULL,
		owner_id   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_teams_org ON teams(org_id)`,
	`CREATE TABLE IF NOT EXISTS team_members (
		team_id   TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		user_id   TEXT NOT NULL,
		role      TEXT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (team_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_team_members_user ON team_members(user_id)`,
	`CREATE TABLE IF NOT EXISTS team_invitations (
		id          TEXT PRIMARY KEY,
		team_id     TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		email       TEXT NOT NULL,
		role        TEXT NOT NULL,
		token       TEXT NOT NULL UNIQUE,
		invited_by  TEXT NOT NULL,
		invited_at  TIMESTAMPTZ NOT NULL,
		expires_at  TIMESTAMPTZ NOT NULL,
		accepted_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS resources (
		id         TEXT PRIMARY KEY,
		org_id     TEXT NOT NULL,
		owner_id   TEXT NOT NULL,
		name       TEXT NOT NULL,
		kind       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resources_org ON resources(org_id)`,
	`CREATE TABLE IF NOT EXISTS resource_assignments (
		resource_id TEXT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		target_kind TEXT NOT NULL,
		target_id   TEXT NOT NULL,
		permissions TEXT[] NOT NULL,
		PRIMARY KEY (resource_id, target_kind, target_id)
	)`,
}

// Migrate applies the schema. Safe to run at every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
