package team

import (
	"time"

	"github.com/huddlehq/huddle/pkg/authz"
)

// Membership is an immutable record of one user's role in one team. It has
// value semantics; role changes replace the record rather than mutating it.
type Membership struct {
	UserID   string     `json:"user_id"`
	Role     authz.Role `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// Equal reports value equality, with timestamps compared by instant.
func (m Membership) Equal(other Membership) bool {
	return m.UserID == other.UserID &&
		m.Role == other.Role &&
		m.JoinedAt.Equal(other.JoinedAt)
}

// Invitation is a pending, expiring offer of membership addressed by token.
// Pending invitations count toward the team's member count.
type Invitation struct {
	ID         string     `json:"id"`
	TeamID     string     `json:"team_id"`
	Email      string     `json:"email"`
	Role       authz.Role `json:"role"`
	Token      string     `json:"token,omitempty"`
	InvitedBy  string     `json:"invited_by"`
	InvitedAt  time.Time  `json:"invited_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// Pending reports whether the invitation is still open at the given time.
func (i Invitation) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
