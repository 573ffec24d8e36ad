package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/huddlehq/huddle/pkg/authz"
	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/org"
	"github.com/huddlehq/huddle/pkg/storage"
)

// OrganizationStore implements storage.OrganizationRepository.
type OrganizationStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewOrganizationStore creates an organization repository over the pool.
func NewOrganizationStore(db *sql.DB, metrics *observability.Metrics) *OrganizationStore {
	return &OrganizationStore{db: db, metrics: metrics}
}

func (s *OrganizationStore) FindByID(ctx context.Context, id string) (_ *org.Organization, err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("organizations", "find", start, err) }(time.Now())

	query := `
		SELECT id, name, slug, owner_id, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	return s.findOne(ctx, query, id)
}

func (s *OrganizationStore) FindBySlug(ctx context.Context, slug string) (_ *org.Organization, err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("organizations", "find", start, err) }(time.Now())

	query := `
		SELECT id, name, slug, owner_id, created_at, updated_at
		FROM organizations
		WHERE slug = $1
	`
	return s.findOne(ctx, query, slug)
}

func (s *OrganizationStore) findOne(ctx context.Context, query, arg string) (*org.Organization, error) {
	var o org.Organization
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&o.ID, &o.Name, &o.Slug, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("organization %s: %w", arg, storage.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	members, err := s.loadMembers(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Members = members
	return &o, nil
}

// Save upserts the organization row and replaces the member rows wholesale
// in one transaction.
func (s *OrganizationStore) Save(ctx context.Context, o *org.Organization) (err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("organizations", "save", start, err) }(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO organizations (id, name, slug, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, slug = EXCLUDED.slug, owner_id = EXCLUDED.owner_id, updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.ExecContext(ctx, upsert,
		o.ID, o.Name, o.Slug, o.OwnerID, o.CreatedAt, o.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert organization: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM organization_members WHERE org_id = $1", o.ID); err != nil {
		return fmt.Errorf("failed to clear organization members: %w", err)
	}
	insert := `
		INSERT INTO organization_members (org_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
	`
	for _, m := range o.Members {
		if _, err := tx.ExecContext(ctx, insert, o.ID, m.UserID, m.Role.Token(), m.JoinedAt); err != nil {
			return fmt.Errorf("failed to insert organization member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit organization save: %w", err)
	}
	return nil
}

func (s *OrganizationStore) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("organizations", "delete", start, err) }(time.Now())

	result, err := s.db.ExecContext(ctx, "DELETE FROM organizations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("organization %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *OrganizationStore) loadMembers(ctx context.Context, orgID string) ([]org.Member, error) {
	query := `
		SELECT user_id, role, joined_at
		FROM organization_members
		WHERE org_id = $1
		ORDER BY joined_at
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization members: %w", err)
	}
	defer rows.Close()

	var members []org.Member
	for rows.Next() {
		var (
			userID, roleToken string
			joinedAt          time.Time
		)
		if err := rows.Scan(&userID, &roleToken, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization member: %w", err)
		}
		role, err := authz.ParseRole(roleToken)
		if err != nil {
			return nil, fmt.Errorf("organization %s member %s: %w", orgID, userID, err)
		}
		members = append(members, org.Member{UserID: userID, Role: role, JoinedAt: joinedAt})
	}
	return members, rows.Err()
}
