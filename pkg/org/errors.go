package org

import "errors"

var (
	// ErrNameRequired indicates an organization was created without a name.
	ErrNameRequired = errors.New("organization name is required")

	// ErrOwnerRequired indicates an organization was created without an owner.
	ErrOwnerRequired = errors.New("organization owner is required")

	// ErrAlreadyMember indicates the user already has a membership.
	ErrAlreadyMember = errors.New("user is already an organization member")

	// ErrNotAMember indicates no membership exists for the user.
	ErrNotAMember = errors.New("user is not an organization member")

	// ErrOwnerImmutable indicates an attempt to remove or demote the owner.
	ErrOwnerImmutable = errors.New("organization owner membership is immutable")

	// ErrInvalidRole indicates a role outside the closed enumeration.
	ErrInvalidRole = errors.New("invalid organization role")
)
