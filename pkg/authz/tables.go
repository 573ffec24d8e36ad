package authz

// Static role→permission tables. One structural rule holds in every scope:
// owner passes everything, admin passes everything except the scope's single
// delete permission, member and guest pass fixed restricted subsets.

// allPermissions lists every permission of a scope in declaration order.
// The order is stable so permission listings are deterministic.
var allPermissions = map[Scope][]Permission{
	ScopeOrganization: {
		PermViewOrganization,
		PermCreateTeams,
		PermManageOrgMembers,
		PermManageOrgSettings,
		PermManageBilling,
		PermDeleteOrganization,
	},
	ScopeTeam: {
		PermViewTeam,
		PermSendMessages,
		PermUploadFiles,
		PermJoinActivities,
		PermCreatePosts,
		PermManageMembers,
		PermManageRoles,
		PermManageSettings,
		PermDeleteTeam,
	},
	ScopeResource: {
		PermViewResource,
		PermCommentResource,
		PermEditResource,
		PermShareResource,
		PermDeleteResource,
	},
}

// deletePermission is the one permission admin is denied in each scope.
var deletePermission = map[Scope]Permission{
	ScopeOrganization: PermDeleteOrganization,
	ScopeTeam:         PermDeleteTeam,
	ScopeResource:     PermDeleteResource,
}

var memberPermissions = map[Scope][]Permission{
	ScopeOrganization: {
		PermViewOrganization,
		PermCreateTeams,
	},
	ScopeTeam: {
		PermViewTeam,
		PermSendMessages,
		PermUploadFiles,
		PermJoinActivities,
		PermCreatePosts,
	},
	ScopeResource: {
		PermViewResource,
		PermCommentResource,
		PermEditResource,
	},
}

var guestPermissions = map[Scope][]Permission{
	ScopeOrganization: {
		PermViewOrganization,
	},
	ScopeTeam: {
		PermViewTeam,
		PermJoinActivities,
	},
	ScopeResource: {
		PermViewResource,
	},
}

// AllPermissions returns every permission token of the given scope in a
// stable order. The returned slice is a copy.
func AllPermissions(scope Scope) []Permission {
	perms := allPermissions[scope]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasPermission evaluates the static role table for one scope. It is a pure
// function: owner always passes, admin passes everything except the scope's
// delete permission, member and guest pass their fixed subsets, and any role
// outside the closed enumeration passes nothing.
func HasPermission(scope Scope, role Role, permission Permission) bool {
	switch role {
	case RoleOwner:
		return true
	case RoleAdmin:
		return permission != deletePermission[scope]
	case RoleMember:
		return contains(memberPermissions[scope], permission)
	case RoleGuest:
		return contains(guestPermissions[scope], permission)
	}
	return false
}

// RolePermissions returns the full permission set the static table implies
// for a role within a scope, in a stable order. Unknown roles yield an
// empty set.
func RolePermissions(scope Scope, role Role) []Permission {
	switch role {
	case RoleOwner:
		return AllPermissions(scope)
	case RoleAdmin:
		all := allPermissions[scope]
		out := make([]Permission, 0, len(all))
		for _, p := range all {
			if p != deletePermission[scope] {
				out = append(out, p)
			}
		}
		return out
	case RoleMember:
		return copyPermissions(memberPermissions[scope])
	case RoleGuest:
		return copyPermissions(guestPermissions[scope])
	}
	return nil
}

func contains(perms []Permission, permission Permission) bool {
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

func copyPermissions(perms []Permission) []Permission {
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
