package team

import "time"

// Event is a membership lifecycle fact recorded by the aggregate. Events
// are buffered on the team and delivered by an events.Channel after the
// mutation has been persisted.
type Event interface {
	// EventName returns the stable name used on the wire.
	EventName() string
}

// MemberJoined is emitted when a membership is added.
type MemberJoined struct {
	TeamID   string    `json:"team_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

func (MemberJoined) EventName() string { return "team.member_joined" }

// MemberLeft is emitted when a membership is removed.
type MemberLeft struct {
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	RemovedAt time.Time `json:"removed_at"`
}

func (MemberLeft) EventName() string { return "team.member_left" }

// RoleChanged is emitted when a membership's role is replaced.
type RoleChanged struct {
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	OldRole   string    `json:"old_role"`
	NewRole   string    `json:"new_role"`
	ChangedAt time.Time `json:"changed_at"`
}

func (RoleChanged) EventName() string { return "team.role_changed" }

// MemberInvited is emitted when an invitation is created.
type MemberInvited struct {
	TeamID    string    `json:"team_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	InvitedBy string    `json:"invited_by"`
	InvitedAt time.Time `json:"invited_at"`
}

func (MemberInvited) EventName() string { return "team.member_invited" }

// InvitationRevoked is emitted when a pending invitation is withdrawn.
type InvitationRevoked struct {
	TeamID       string    `json:"team_id"`
	InvitationID string    `json:"invitation_id"`
	RevokedAt    time.Time `json:"revoked_at"`
}

func (InvitationRevoked) EventName() string { return "team.invitation_revoked" }
