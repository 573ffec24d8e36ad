// Package resource holds individually owned resources (documents, files,
// boards) and their per-resource permission assignments. Assignments are an
// explicit grant of permissions to a user, a team, or a role, independent of
// the general role hierarchy, and are replaced wholesale whenever the owning
// resource is saved.
package resource

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/huddlehq/huddle/pkg/authz"
)

// TargetKind says what a permission assignment is addressed to.
type TargetKind string

const (
	TargetUser TargetKind = "user"
	TargetTeam TargetKind = "team"
	TargetRole TargetKind = "role"
)

// Valid reports whether k is a known target kind.
func (k TargetKind) Valid() bool {
	switch k {
	case TargetUser, TargetTeam, TargetRole:
		return true
	}
	return false
}

// PermissionAssignment grants a permission set to exactly one target bound
// to one resource. Construct it with NewPermissionAssignment; a zero value
// is not valid.
type PermissionAssignment struct {
	TargetKind  TargetKind         `json:"target_kind"`
	TargetID    string             `json:"target_id"`
	Permissions []authz.Permission `json:"permissions"`
}

// NewPermissionAssignment validates the target at construction: the kind
// must be known, the target identifier non-empty, and role targets must be
// a canonical role token.
func NewPermissionAssignment(kind TargetKind, targetID string, permissions []authz.Permission) (PermissionAssignment, error) {
	if !kind.Valid() {
		return PermissionAssignment{}, ErrInvalidTargetKind
	}
	if targetID == "" {
		return PermissionAssignment{}, ErrTargetRequired
	}
	if kind == TargetRole {
		if _, err := authz.ParseRole(targetID); err != nil {
			return PermissionAssignment{}, ErrInvalidRoleTarget
		}
	}

	perms := make([]authz.Permission, len(permissions))
	copy(perms, permissions)
	return PermissionAssignment{
		TargetKind:  kind,
		TargetID:    targetID,
		Permissions: perms,
	}, nil
}

// Grants reports whether the assignment's permission set contains the
// permission. Matching is exact token equality.
func (a PermissionAssignment) Grants(permission authz.Permission) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Resource is an individually owned entity carrying its ACL assignments.
type Resource struct {
	ID          string                 `json:"id"`
	OrgID       string                 `json:"org_id"`
	OwnerID     string                 `json:"owner_id"`
	Name        string                 `json:"name"`
	Kind        string                 `json:"kind,omitempty"`
	Assignments []PermissionAssignment `json:"assignments"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// New creates a resource owned by ownerID with no assignments.
func New(orgID, ownerID, name, kind string) (*Resource, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	now := time.Now().UTC()
	return &Resource{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		OwnerID:   ownerID,
		Name:      name,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ReplaceAssignments swaps the full assignment list. Assignments are never
// patched incrementally; persistence deletes all rows and inserts the new
// set on save.
func (r *Resource) ReplaceAssignments(assignments []PermissionAssignment, now time.Time) {
	r.Assignments = make([]PermissionAssignment, len(assignments))
	copy(r.Assignments, assignments)
	r.UpdatedAt = now.UTC()
}
