package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/huddlehq/huddle/pkg/authz"
	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/storage"
	"github.com/huddlehq/huddle/pkg/team"
)

// TeamStore implements storage.TeamRepository.
type TeamStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewTeamStore creates a team repository over the pool. A nil metrics
// handle disables instrumentation.
func NewTeamStore(db *sql.DB, metrics *observability.Metrics) *TeamStore {
	return &TeamStore{db: db, metrics: metrics}
}

func (s *TeamStore) FindByID(ctx context.Context, id string) (_ *team.Team, err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("teams", "find", start, err) }(time.Now())
	query := `
		SELECT id, org_id, name, owner_id, created_at, updated_at
		FROM teams
		WHERE id = $1
	`

	var (
		teamID, orgID, name, ownerID string
		createdAt, updatedAt         time.Time
	)
	err = s.db.QueryRowContext(ctx, query, id).Scan(
		&teamID, &orgID, &name, &ownerID, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("team %s: %w", id, storage.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	members, err := s.loadMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	invitations, err := s.loadInvitations(ctx, teamID)
	if err != nil {
		return nil, err
	}

	return team.Rehydrate(teamID, orgID, name, ownerID, members, invitations, createdAt, updatedAt), nil
}

func (s *TeamStore) FindByOrg(ctx context.Context, orgID string) (_ []*team.Team, err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("teams", "list", start, err) }(time.Now())

	query := `
		SELECT id
		FROM teams
		WHERE org_id = $1
		ORDER BY created_at
	`
	return s.findByIDQuery(ctx, query, orgID)
}

func (s *TeamStore) FindByUser(ctx context.Context, userID string) (_ []*team.Team, err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("teams", "list", start, err) }(time.Now())

	query := `
		SELECT t.id
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.created_at
	`
	return s.findByIDQuery(ctx, query, userID)
}

func (s *TeamStore) findByIDQuery(ctx context.Context, query string, arg interface{}) ([]*team.Team, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan team id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}

	teams := make([]*team.Team, 0, len(ids))
	for _, id := range ids {
		t, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, nil
}

// Save upserts the team row and replaces the member and invitation rows
// wholesale in one transaction.
func (s *TeamStore) Save(ctx context.Context, t *team.Team) (err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("teams", "save", start, err) }(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO teams (id, org_id, name, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, owner_id = EXCLUDED.owner_id, updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.ExecContext(ctx, upsert,
		t.ID, t.OrgID, t.Name, t.OwnerID, t.CreatedAt, t.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert team: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM team_members WHERE team_id = $1", t.ID); err != nil {
		return fmt.Errorf("failed to clear team members: %w", err)
	}
	memberInsert := `
		INSERT INTO team_members (team_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
	`
	for _, m := range t.Members() {
		if _, err := tx.ExecContext(ctx, memberInsert, t.ID, m.UserID, m.Role.Token(), m.JoinedAt); err != nil {
			return fmt.Errorf("failed to insert team member: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM team_invitations WHERE team_id = $1", t.ID); err != nil {
		return fmt.Errorf("failed to clear invitations: %w", err)
	}
	invInsert := `
		INSERT INTO team_invitations (id, team_id, email, role, token, invited_by, invited_at, expires_at, accepted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, inv := range t.Invitations() {
		if _, err := tx.ExecContext(ctx, invInsert,
			inv.ID, t.ID, inv.Email, inv.Role.Token(), inv.Token,
			inv.InvitedBy, inv.InvitedAt, inv.ExpiresAt, inv.AcceptedAt,
		); err != nil {
			return fmt.Errorf("failed to insert invitation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit team save: %w", err)
	}
	return nil
}

func (s *TeamStore) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("teams", "delete", start, err) }(time.Now())

	result, err := s.db.ExecContext(ctx, "DELETE FROM teams WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("team %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *TeamStore) PurgeExpiredInvitations(ctx context.Context, now time.Time) (_ int, err error) {
	defer func(start time.Time) { s.metrics.ObserveStorageOperation("teams", "purge", start, err) }(time.Now())

	query := `
		DELETE FROM team_invitations
		WHERE accepted_at IS NULL AND expires_at <= $1
	`
	result, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge invitations: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(affected), nil
}

func (s *TeamStore) loadMembers(ctx context.Context, teamID string) ([]team.Membership, error) {
	query := `
		SELECT user_id, role, joined_at
		FROM team_members
		WHERE team_id = $1
		ORDER BY joined_at
	`
	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team members: %w", err)
	}
	defer rows.Close()

	var members []team.Membership
	for rows.Next() {
		var (
			userID, roleToken string
			joinedAt          time.Time
		)
		if err := rows.Scan(&userID, &roleToken, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		role, err := authz.ParseRole(roleToken)
		if err != nil {
			return nil, fmt.Errorf("team %s member %s: %w", teamID, userID, err)
		}
		members = append(members, team.Membership{UserID: userID, Role: role, JoinedAt: joinedAt})
	}
	return members, rows.Err()
}

func (s *TeamStore) loadInvitations(ctx context.Context, teamID string) ([]team.Invitation, error) {
	query := `
		SELECT id, email, role, token, invited_by, invited_at, expires_at, accepted_at
		FROM team_invitations
		WHERE team_id = $1
		ORDER BY invited_at
	`
	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invitations: %w", err)
	}
	defer rows.Close()

	var invitations []team.Invitation
	for rows.Next() {
		var (
			inv        team.Invitation
			roleToken  string
			acceptedAt sql.NullTime
		)
		if err := rows.Scan(&inv.ID, &inv.Email, &roleToken, &inv.Token,
			&inv.InvitedBy, &inv.InvitedAt, &inv.ExpiresAt, &acceptedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		role, err := authz.ParseRole(roleToken)
		if err != nil {
			return nil, fmt.Errorf("team %s invitation %s: %w", teamID, inv.ID, err)
		}
		inv.TeamID = teamID
		inv.Role = role
		if acceptedAt.Valid {
			t := acceptedAt.Time
			inv.AcceptedAt = &t
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}
