package team

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/huddlehq/huddle/pkg/authz"
)

// DefaultInvitationTTL is how long an invitation stays open.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// Team is the aggregate root for one team's membership and invitations.
// All membership mutation goes through its methods; each successful
// mutation appends exactly one event to the pending buffer.
//
// Not safe for concurrent mutation of the same instance.
type Team struct {
	ID        string
	OrgID     string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time

	members     []Membership
	invitations []Invitation
	pending     []Event
}

// New creates a team and enrolls the owner with the owner role in the same
// operation. The pending event buffer starts empty; creation itself emits
// nothing.
func New(orgID, name, ownerID string) (*Team, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	now := time.Now().UTC()
	return &Team{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
		members: []Membership{
			{UserID: ownerID, Role: authz.RoleOwner, JoinedAt: now},
		},
	}, nil
}

// Rehydrate reconstructs a team from persisted state. It performs no
// validation and appends no events; repositories are trusted to hand back
// state that satisfied the invariants when it was saved.
func Rehydrate(id, orgID, name, ownerID string, members []Membership, invitations []Invitation, createdAt, updatedAt time.Time) *Team {
	t := &Team{
		ID:        id,
		OrgID:     orgID,
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	t.members = make([]Membership, len(members))
	copy(t.members, members)
	t.invitations = make([]Invitation, len(invitations))
	copy(t.invitations, invitations)
	return t
}

// Member returns the membership for userID, if any.
func (t *Team) Member(userID string) (Membership, bool) {
	for _, m := range t.members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Membership{}, false
}

// Members returns a copy of the membership list.
func (t *Team) Members() []Membership {
	out := make([]Membership, len(t.members))
	copy(out, t.members)
	return out
}

// Invitations returns a copy of the invitation list.
func (t *Team) Invitations() []Invitation {
	out := make([]Invitation, len(t.invitations))
	copy(out, t.invitations)
	return out
}

// MemberCount counts current members plus invitations still pending at now.
func (t *Team) MemberCount(now time.Time) int {
	n := len(t.members)
	for _, inv := range t.invitations {
		if inv.Pending(now) {
			n++
		}
	}
	return n
}

// AddMember appends a membership. It fails with ErrAlreadyMember if a
// membership for the user already exists and ErrInvalidRole for roles
// outside the closed enumeration.
func (t *Team) AddMember(m Membership) error {
	if m.UserID == "" {
		return ErrNotAMember
	}
	if !m.Role.Valid() {
		return ErrInvalidRole
	}
	if _, ok := t.Member(m.UserID); ok {
		return ErrAlreadyMember
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}

	t.members = append(t.members, m)
	t.UpdatedAt = m.JoinedAt
	t.record(MemberJoined{
		TeamID:   t.ID,
		UserID:   m.UserID,
		Role:     m.Role.Token(),
		JoinedAt: m.JoinedAt,
	})
	return nil
}

// RemoveMember deletes the user's membership. Ownership can never be
// removed through this path.
func (t *Team) RemoveMember(userID string) error {
	if userID == t.OwnerID {
		return ErrOwnerImmutable
	}
	for i, m := range t.members {
		if m.UserID == userID {
			t.members = append(t.members[:i], t.members[i+1:]...)
			now := time.Now().UTC()
			t.UpdatedAt = now
			t.record(MemberLeft{
				TeamID:    t.ID,
				UserID:    userID,
				RemovedAt: now,
			})
			return nil
		}
	}
	return ErrNotAMember
}

// UpdateMemberRole replaces the membership's role, preserving identity and
// join time. The owner's role is fixed at owner.
func (t *Team) UpdateMemberRole(userID string, newRole authz.Role) error {
	if userID == t.OwnerID && newRole != authz.RoleOwner {
		return ErrOwnerImmutable
	}
	idx := -1
	for i, m := range t.members {
		if m.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotAMember
	}
	if !newRole.Valid() {
		return ErrInvalidRole
	}

	oldRole := t.members[idx].Role
	t.members[idx].Role = newRole
	now := time.Now().UTC()
	t.UpdatedAt = now
	t.record(RoleChanged{
		TeamID:    t.ID,
		UserID:    userID,
		OldRole:   oldRole.Token(),
		NewRole:   newRole.Token(),
		ChangedAt: now,
	})
	return nil
}

// HasPermission evaluates the static team role table. Pure; no I/O.
func (t *Team) HasPermission(role authz.Role, permission authz.Permission) bool {
	return authz.HasPermission(authz.ScopeTeam, role, permission)
}

// HasMemberPermission looks up the user's membership and evaluates the
// static role table against it. Users without a membership have no
// permissions.
func (t *Team) HasMemberPermission(userID string, permission authz.Permission) bool {
	m, ok := t.Member(userID)
	if !ok {
		return false
	}
	return t.HasPermission(m.Role, permission)
}

// Invite creates a pending invitation for an email address. At most one
// pending invitation exists per address.
func (t *Team) Invite(email string, role authz.Role, invitedBy string) (Invitation, error) {
	if strings.TrimSpace(email) == "" {
		return Invitation{}, ErrInvitationNotFound
	}
	if !role.Valid() || role == authz.RoleOwner {
		return Invitation{}, ErrInvalidRole
	}
	now := time.Now().UTC()
	for _, inv := range t.invitations {
		if strings.EqualFold(inv.Email, email) && inv.Pending(now) {
			return Invitation{}, ErrAlreadyInvited
		}
	}

	token, err := generateToken()
	if err != nil {
		return Invitation{}, err
	}
	inv := Invitation{
		ID:        uuid.NewString(),
		TeamID:    t.ID,
		Email:     email,
		Role:      role,
		Token:     token,
		InvitedBy: invitedBy,
		InvitedAt: now,
		ExpiresAt: now.Add(DefaultInvitationTTL),
	}
	t.invitations = append(t.invitations, inv)
	t.UpdatedAt = now
	t.record(MemberInvited{
		TeamID:    t.ID,
		Email:     email,
		Role:      role.Token(),
		InvitedBy: invitedBy,
		InvitedAt: now,
	})
	return inv, nil
}

// AcceptInvitation converts a pending invitation into a membership for
// userID. The resulting mutation is the membership add; the MemberJoined
// event is its single event.
func (t *Team) AcceptInvitation(token, userID string) error {
	idx := -1
	for i, inv := range t.invitations {
		if inv.Token == token {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrInvitationNotFound
	}
	inv := t.invitations[idx]
	if inv.AcceptedAt != nil {
		return ErrInvitationAccepted
	}
	now := time.Now().UTC()
	if !now.Before(inv.ExpiresAt) {
		return ErrInvitationExpired
	}

	if err := t.AddMember(Membership{UserID: userID, Role: inv.Role, JoinedAt: now}); err != nil {
		return err
	}
	t.invitations[idx].AcceptedAt = &now
	return nil
}

// RevokeInvitation withdraws a pending invitation by id.
func (t *Team) RevokeInvitation(invitationID string) error {
	for i, inv := range t.invitations {
		if inv.ID == invitationID {
			if inv.AcceptedAt != nil {
				return ErrInvitationAccepted
			}
			t.invitations = append(t.invitations[:i], t.invitations[i+1:]...)
			now := time.Now().UTC()
			t.UpdatedAt = now
			t.record(InvitationRevoked{
				TeamID:       t.ID,
				InvitationID: invitationID,
				RevokedAt:    now,
			})
			return nil
		}
	}
	return ErrInvitationNotFound
}

// Events returns a copy of the pending event buffer in append order.
func (t *Team) Events() []Event {
	out := make([]Event, len(t.pending))
	copy(out, t.pending)
	return out
}

// ClearEvents empties the pending buffer. Callers clear after publishing,
// or after a failed save so events for unpersisted state are discarded.
func (t *Team) ClearEvents() {
	t.pending = nil
}

func (t *Team) record(ev Event) {
	t.pending = append(t.pending, ev)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
