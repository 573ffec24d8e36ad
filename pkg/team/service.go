package team

import (
	"context"
	"fmt"

	"github.com/huddlehq/huddle/pkg/authz"
	"github.com/huddlehq/huddle/pkg/observability"
)

// Repository is the persistence contract the service needs. Save performs
// an idempotent upsert of the full membership and invitation lists.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Team, error)
	Save(ctx context.Context, t *Team) error
}

// Publisher delivers one drained event. Delivery failures are the
// channel's concern; the service treats publication as fire-and-forget.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Service orchestrates aggregate mutations against persistence and the
// event channel: load, mutate, save, then publish the buffered events in
// append order. If the save fails, the buffered events are discarded and
// never published.
type Service struct {
	repo    Repository
	channel Publisher
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService wires a team service. A nil channel disables publication; a
// nil metrics handle disables instrumentation.
func NewService(repo Repository, channel Publisher, logger *observability.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Service{
		repo:    repo,
		channel: channel,
		logger:  logger,
		metrics: metrics,
	}
}

// Create makes a new team with its owner enrolled and persists it.
func (s *Service) Create(ctx context.Context, orgID, name, ownerID string) (*Team, error) {
	t, err := New(orgID, name, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save team: %w", err)
	}
	s.logger.WithFields(map[string]interface{}{
		"team_id": t.ID,
		"owner":   ownerID,
	}).Info("team created")
	return t, nil
}

// Get loads a team by id.
func (s *Service) Get(ctx context.Context, teamID string) (*Team, error) {
	return s.repo.FindByID(ctx, teamID)
}

// AddMember adds a membership to the team and publishes MemberJoined.
func (s *Service) AddMember(ctx context.Context, teamID string, m Membership) (*Team, error) {
	return s.mutate(ctx, teamID, func(t *Team) error {
		return t.AddMember(m)
	})
}

// UpdateMemberRole replaces a member's role and publishes RoleChanged.
func (s *Service) UpdateMemberRole(ctx context.Context, teamID, userID string, newRole authz.Role) (*Team, error) {
	return s.mutate(ctx, teamID, func(t *Team) error {
		return t.UpdateMemberRole(userID, newRole)
	})
}

// RemoveMember drops a membership and publishes MemberLeft.
func (s *Service) RemoveMember(ctx context.Context, teamID, userID string) (*Team, error) {
	return s.mutate(ctx, teamID, func(t *Team) error {
		return t.RemoveMember(userID)
	})
}

// Invite creates a pending invitation and publishes MemberInvited.
func (s *Service) Invite(ctx context.Context, teamID, email string, role authz.Role, invitedBy string) (Invitation, error) {
	var inv Invitation
	_, err := s.mutate(ctx, teamID, func(t *Team) error {
		var mErr error
		inv, mErr = t.Invite(email, role, invitedBy)
		return mErr
	})
	return inv, err
}

// AcceptInvitation converts a pending invitation into a membership.
func (s *Service) AcceptInvitation(ctx context.Context, teamID, token, userID string) (*Team, error) {
	return s.mutate(ctx, teamID, func(t *Team) error {
		return t.AcceptInvitation(token, userID)
	})
}

// RevokeInvitation withdraws a pending invitation.
func (s *Service) RevokeInvitation(ctx context.Context, teamID, invitationID string) (*Team, error) {
	return s.mutate(ctx, teamID, func(t *Team) error {
		return t.RevokeInvitation(invitationID)
	})
}

// mutate runs one command against the aggregate: load, apply, save,
// publish. Domain-rule violations surface unchanged so callers can map
// them; save failures discard the buffered events.
func (s *Service) mutate(ctx context.Context, teamID string, apply func(*Team) error) (*Team, error) {
	t, err := s.repo.FindByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if err := apply(t); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, t); err != nil {
		t.ClearEvents()
		return nil, fmt.Errorf("failed to save team: %w", err)
	}

	s.publish(ctx, t)
	return t, nil
}

// publish drains the aggregate's buffer in append order. Failures are
// logged and do not fail the command; the state change is already durable.
func (s *Service) publish(ctx context.Context, t *Team) {
	events := t.Events()
	t.ClearEvents()
	if s.channel == nil {
		return
	}
	for _, ev := range events {
		s.metrics.ObserveMembershipEvent(ev.EventName())
		if err := s.channel.Publish(ctx, ev); err != nil {
			s.logger.WithError(err).WithField("event", ev.EventName()).
				Warn("failed to publish team event")
		}
	}
}
