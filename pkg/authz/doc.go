// Package authz defines the role and permission vocabulary for Huddle.
//
// # Overview
//
// Huddle controls access at three scopes: organization, team, and resource.
// Each scope has a closed set of permission tokens, and every scope shares
// the same four-role hierarchy with a fixed total order:
//
//	owner > admin > member > guest
//
// There are no custom roles. A role maps to a permission set through a
// static, code-defined table per scope; the table is the single source of
// truth for what a role may do.
//
// # Roles
//
// Roles are a closed enumeration with value semantics:
//
//	role, err := authz.ParseRole("admin")
//	role.Token()        // "admin"
//	role.AtLeast(authz.RoleMember) // true
//
// ParseRole is the only place a raw string becomes a Role; everywhere else
// roles are compared as typed values.
//
// # Permissions
//
// Permissions are opaque tokens scoped to exactly one of the three scopes.
// Membership in a permission set is decided by exact token equality, never
// by prefix or substring matching:
//
//	authz.HasPermission(authz.ScopeTeam, authz.RoleMember, authz.PermViewTeam)   // true
//	authz.HasPermission(authz.ScopeTeam, authz.RoleAdmin, authz.PermDeleteTeam)  // false
//
// The static table follows one structural rule in every scope: owner passes
// every check, admin passes everything except the scope's single delete
// permission, member and guest pass fixed restricted subsets.
//
// # Related Packages
//
//   - pkg/access: permission resolution across repositories (owner
//     shortcuts, ACL overrides)
//   - pkg/team: team aggregate enforcing membership invariants
//   - pkg/resource: per-resource permission assignments
package authz
