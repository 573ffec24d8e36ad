// Package postgres implements the storage repositories on PostgreSQL via
// database/sql and lib/pq. Aggregates persist as a root row plus child
// collection rows; every save replaces the child rows wholesale inside a
// transaction.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/storage"
)

// Open connects to PostgreSQL, configures the connection pool, and verifies
// the connection with a ping bounded by the configured timeout.
func Open(cfg storage.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.PostgresMaxConns)
	db.SetMaxIdleConns(cfg.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// Store bundles the three PostgreSQL repositories over one pool.
type Store struct {
	Teams         *TeamStore
	Organizations *OrganizationStore
	Resources     *ResourceStore

	db *sql.DB
}

// NewStore wraps an open pool with the repository set. The caller owns the
// pool's lifecycle; Close delegates to it. A nil metrics handle disables
// instrumentation.
func NewStore(db *sql.DB, metrics *observability.Metrics) *Store {
	return &Store{
		Teams:         NewTeamStore(db, metrics),
		Organizations: NewOrganizationStore(db, metrics),
		Resources:     NewResourceStore(db, metrics),
		db:            db,
	}
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres unhealthy: %w", err)
	}
	return nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}
