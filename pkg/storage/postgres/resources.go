package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/huddlehq/huddle/pkg/authz"
	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/resource"
	"github.com/huddlehq/huddle/pkg/storage"
)

// ResourceStore implements storage.ResourceRepository. Assignment
// permission sets persist as TEXT[] columns via pq.Array.
type ResourceStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewResourceStore creates a resource repository over the pool.
func NewResourceStore(db *sql.DB, metrics *observability.Metrics) *ResourceStore {
	return &ResourceStore{db: db, metrics: metrics}
}

func (s *ResourceStore) FindByID(ctx context.Context, id string) (_ *resource.Resource, err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("resources", "find", start, err) }(time.Now())

	query := `
		SELECT id, org_id, owner_id, name, kind, created_at, updated_at
		FROM resources
		WHERE id = $1
	`

	var r resource.Resource
	err = s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.OrgID, &r.OwnerID, &r.Name, &r.Kind, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("resource %s: %w", id, storage.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	assignments, err := s.loadAssignments(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.Assignments = assignments
	return &r, nil
}

func (s *ResourceStore) FindByOrg(ctx context.Context, orgID string) (_ []*resource.Resource, err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("resources", "list", start, err) }(time.Now())

	query := `
		SELECT id
		FROM resources
		WHERE org_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan resource id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resources: %w", err)
	}

	resources := make([]*resource.Resource, 0, len(ids))
	for _, id := range ids {
		r, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, nil
}

// Save upserts the resource row and replaces the assignment rows wholesale
// in one transaction.
func (s *ResourceStore) Save(ctx context.Context, r *resource.Resource) (err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("resources", "save", start, err) }(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO resources (id, org_id, owner_id, name, kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, owner_id = EXCLUDED.owner_id, kind = EXCLUDED.kind, updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.ExecContext(ctx, upsert,
		r.ID, r.OrgID, r.OwnerID, r.Name, r.Kind, r.CreatedAt, r.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert resource: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM resource_assignments WHERE resource_id = $1", r.ID); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	insert := `
		INSERT INTO resource_assignments (resource_id, target_kind, target_id, permissions)
		VALUES ($1, $2, $3, $4)
	`
	for _, a := range r.Assignments {
		perms := make([]string, len(a.Permissions))
		for i, p := range a.Permissions {
			perms[i] = p.Token()
		}
		if _, err := tx.ExecContext(ctx, insert, r.ID, string(a.TargetKind), a.TargetID, pq.Array(perms)); err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit resource save: %w", err)
	}
	return nil
}

func (s *ResourceStore) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("resources", "delete", start, err) }(time.Now())

	result, err := s.db.ExecContext(ctx, "DELETE FROM resources WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("resource %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *ResourceStore) loadAssignments(ctx context.Context, resourceID string) ([]resource.PermissionAssignment, error) {
	query := `
		SELECT target_kind, target_id, permissions
		FROM resource_assignments
		WHERE resource_id = $1
		ORDER BY target_kind, target_id
	`
	rows, err := s.db.QueryContext(ctx, query, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	defer rows.Close()

	var assignments []resource.PermissionAssignment
	for rows.Next() {
		var (
			kind, targetID string
			perms          pq.StringArray
		)
		if err := rows.Scan(&kind, &targetID, &perms); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		permissions := make([]authz.Permission, len(perms))
		for i, p := range perms {
			permissions[i] = authz.Permission(p)
		}
		a, err := resource.NewPermissionAssignment(resource.TargetKind(kind), targetID, permissions)
		if err != nil {
			return nil, fmt.Errorf("resource %s assignment %s/%s: %w", resourceID, kind, targetID, err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
