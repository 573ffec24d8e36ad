package storage

import (
	"context"
	"errors"
	"time"

	"github.com/huddlehq/huddle/pkg/org"
	"github.com/huddlehq/huddle/pkg/resource"
	"github.com/huddlehq/huddle/pkg/team"
)

// ErrNotFound is returned when a lookup targets an identifier with no
// backing row. Implementations wrap it with context; test with errors.Is.
var ErrNotFound = errors.New("not found")

// TeamRepository persists team aggregates. Save replaces the team's member
// and invitation collections wholesale.
type TeamRepository interface {
	FindByID(ctx context.Context, id string) (*team.Team, error)
	FindByOrg(ctx context.Context, orgID string) ([]*team.Team, error)
	FindByUser(ctx context.Context, userID string) ([]*team.Team, error)
	Save(ctx context.Context, t *team.Team) error
	Delete(ctx context.Context, id string) error

	// PurgeExpiredInvitations removes invitations whose expiry has passed
	// and that were never accepted. It returns the number removed.
	PurgeExpiredInvitations(ctx context.Context, now time.Time) (int, error)
}

// OrganizationRepository persists organizations and their member lists.
type OrganizationRepository interface {
	FindByID(ctx context.Context, id string) (*org.Organization, error)
	FindBySlug(ctx context.Context, slug string) (*org.Organization, error)
	Save(ctx context.Context, o *org.Organization) error
	Delete(ctx context.Context, id string) error
}

// ResourceRepository persists resources and their permission assignments.
// Save deletes every assignment row and inserts the current set.
type ResourceRepository interface {
	FindByID(ctx context.Context, id string) (*resource.Resource, error)
	FindByOrg(ctx context.Context, orgID string) ([]*resource.Resource, error)
	Save(ctx context.Context, r *resource.Resource) error
	Delete(ctx context.Context, id string) error
}

// Config selects and tunes the storage backend.
type Config struct {
	Type string `yaml:"type"` // "memory" or "postgres"

	// PostgreSQL config
	PostgresURL      string        `yaml:"postgres_url"`
	PostgresMaxConns int           `yaml:"postgres_max_conns"`
	PostgresMinConns int           `yaml:"postgres_min_conns"`
	PostgresTimeout  time.Duration `yaml:"postgres_timeout"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Type:             "memory",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
	}
}
