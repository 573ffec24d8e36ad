package resource

import "errors"

var (
	// ErrInvalidTargetKind indicates a target kind outside user/team/role.
	ErrInvalidTargetKind = errors.New("invalid assignment target kind")

	// ErrTargetRequired indicates an assignment without a target identifier.
	ErrTargetRequired = errors.New("assignment target identifier is required")

	// ErrInvalidRoleTarget indicates a role-targeted assignment whose target
	// is not a canonical role token.
	ErrInvalidRoleTarget = errors.New("role target must be a canonical role token")

	// ErrNameRequired indicates a resource was created without a name.
	ErrNameRequired = errors.New("resource name is required")

	// ErrOwnerRequired indicates a resource was created without an owner.
	ErrOwnerRequired = errors.New("resource owner is required")
)
