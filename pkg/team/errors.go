package team

import "errors"

var (
	// ErrNameRequired indicates a team was created without a name.
	ErrNameRequired = errors.New("team name is required")

	// ErrOwnerRequired indicates a team was created without an owner.
	ErrOwnerRequired = errors.New("team owner is required")

	// ErrAlreadyMember indicates a membership already exists for the user.
	ErrAlreadyMember = errors.New("user is already a team member")

	// ErrNotAMember indicates no membership exists for the user.
	ErrNotAMember = errors.New("user is not a team member")

	// ErrOwnerImmutable indicates an attempt to remove the owner's
	// membership or change the owner's role. Ownership can never be revoked
	// through membership mutations.
	ErrOwnerImmutable = errors.New("team owner membership is immutable")

	// ErrInvalidRole indicates a role outside the closed enumeration.
	ErrInvalidRole = errors.New("invalid team role")

	// ErrAlreadyInvited indicates a pending invitation already exists for
	// the email address.
	ErrAlreadyInvited = errors.New("a pending invitation already exists")

	// ErrInvitationNotFound indicates no invitation matches the token or id.
	ErrInvitationNotFound = errors.New("invitation not found")

	// ErrInvitationAccepted indicates the invitation was already accepted.
	ErrInvitationAccepted = errors.New("invitation already accepted")

	// ErrInvitationExpired indicates the invitation expired before it was
	// accepted.
	ErrInvitationExpired = errors.New("invitation expired")
)
