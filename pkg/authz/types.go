package authz

import "errors"

// Scope identifies the namespace within which a role or permission is
// meaningful.
type Scope string

const (
	ScopeOrganization Scope = "organization"
	ScopeTeam         Scope = "team"
	ScopeResource     Scope = "resource"
)

// Valid reports whether s is one of the three known scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeOrganization, ScopeTeam, ScopeResource:
		return true
	}
	return false
}

// Role is a closed enumeration shared by the organization and team scopes.
// The zero value is not a valid role.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
)

// ErrUnknownRole is returned by ParseRole for tokens outside the closed
// role enumeration.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole converts a canonical role token into a Role. It is the only
// supported path from a raw string to a typed role.
func ParseRole(token string) (Role, error) {
	switch Role(token) {
	case RoleOwner, RoleAdmin, RoleMember, RoleGuest:
		return Role(token), nil
	}
	return "", ErrUnknownRole
}

// Valid reports whether r is a member of the closed role enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleGuest:
		return true
	}
	return false
}

// Token returns the canonical string token for the role. String
// comparison against roles is only ever performed on this token.
func (r Role) Token() string {
	return string(r)
}

// rank positions a role in the fixed total order. Higher is stronger.
func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleMember:
		return 2
	case RoleGuest:
		return 1
	}
	return 0
}

// AtLeast reports whether r is equal to or stronger than other in the
// role hierarchy. Invalid roles rank below guest.
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

// Permission is an opaque token granting one capability within one scope.
// Tokens are compared by exact equality only.
type Permission string

// Token returns the permission's canonical string token.
func (p Permission) Token() string {
	return string(p)
}

// Organization-scope permissions.
const (
	PermViewOrganization   Permission = "VIEW_ORGANIZATION"
	PermCreateTeams        Permission = "CREATE_TEAMS"
	PermManageOrgMembers   Permission = "MANAGE_ORG_MEMBERS"
	PermManageOrgSettings  Permission = "MANAGE_ORG_SETTINGS"
	PermManageBilling      Permission = "MANAGE_BILLING"
	PermDeleteOrganization Permission = "DELETE_ORGANIZATION"
)

// Team-scope permissions.
const (
	PermViewTeam       Permission = "VIEW_TEAM"
	PermSendMessages   Permission = "SEND_MESSAGES"
	PermUploadFiles    Permission = "UPLOAD_FILES"
	PermJoinActivities Permission = "JOIN_ACTIVITIES"
	PermCreatePosts    Permission = "CREATE_POSTS"
	PermManageMembers  Permission = "MANAGE_MEMBERS"
	PermManageRoles    Permission = "MANAGE_ROLES"
	PermManageSettings Permission = "MANAGE_SETTINGS"
	PermDeleteTeam     Permission = "DELETE_TEAM"
)

// Resource-scope permissions.
const (
	PermViewResource    Permission = "VIEW"
	PermCommentResource Permission = "COMMENT"
	PermEditResource    Permission = "EDIT"
	PermShareResource   Permission = "SHARE"
	PermDeleteResource  Permission = "DELETE"
)
