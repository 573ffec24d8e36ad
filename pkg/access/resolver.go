package access

import (
	"context"
	"fmt"

	"github.com/huddlehq/huddle/pkg/authz"
	"github.com/huddlehq/huddle/pkg/org"
	"github.com/huddlehq/huddle/pkg/resource"
	"github.com/huddlehq/huddle/pkg/team"
)

// OrganizationFinder loads organizations for resolution.
type OrganizationFinder interface {
	FindByID(ctx context.Context, id string) (*org.Organization, error)
}

// TeamFinder loads teams for resolution. FindByUser returns every team the
// user holds a membership in; it backs the team tier of resource checks.
type TeamFinder interface {
	FindByID(ctx context.Context, id string) (*team.Team, error)
	FindByUser(ctx context.Context, userID string) ([]*team.Team, error)
}

// ResourceFinder loads resources for resolution.
type ResourceFinder interface {
	FindByID(ctx context.Context, id string) (*resource.Resource, error)
}

// Resolver answers permission and role queries across the three scopes.
// It is stateless; construct once and share freely.
type Resolver struct {
	orgs      OrganizationFinder
	teams     TeamFinder
	resources ResourceFinder
}

// NewResolver wires a resolver with its repository collaborators.
func NewResolver(orgs OrganizationFinder, teams TeamFinder, resources ResourceFinder) *Resolver {
	return &Resolver{
		orgs:      orgs,
		teams:     teams,
		resources: resources,
	}
}

// HasOrganizationPermission reports whether the user's organization role
// grants the permission. Users without a membership are denied.
func (r *Resolver) HasOrganizationPermission(ctx context.Context, userID, orgID string, permission authz.Permission) (bool, error) {
	o, err := r.orgs.FindByID(ctx, orgID)
	if err != nil {
		return false, fmt.Errorf("failed to load organization %s: %w", orgID, err)
	}
	m, ok := o.Member(userID)
	if !ok {
		return false, nil
	}
	return authz.HasPermission(authz.ScopeOrganization, m.Role, permission), nil
}

// HasTeamPermission reports whether the user may perform the action in the
// team. The recorded team owner passes every check.
func (r *Resolver) HasTeamPermission(ctx context.Context, userID, teamID string, permission authz.Permission) (bool, error) {
	t, err := r.teams.FindByID(ctx, teamID)
	if err != nil {
		return false, fmt.Errorf("failed to load team %s: %w", teamID, err)
	}
	if t.OwnerID == userID {
		return true, nil
	}
	return t.HasMemberPermission(userID, permission), nil
}

// HasResourcePermission reports whether the user may perform the action on
// the resource. Ownership dominates: the recorded owner passes regardless
// of any narrower assignment. Otherwise assignments are evaluated
// user-target, team-target, role-target, short-circuiting on first grant.
func (r *Resolver) HasResourcePermission(ctx context.Context, userID, resourceID string, permission authz.Permission) (bool, error) {
	res, err := r.resources.FindByID(ctx, resourceID)
	if err != nil {
		return false, fmt.Errorf("failed to load resource %s: %w", resourceID, err)
	}
	if res.OwnerID == userID {
		return true, nil
	}

	for _, a := range res.Assignments {
		if a.TargetKind == resource.TargetUser && a.TargetID == userID && a.Grants(permission) {
			return true, nil
		}
	}

	granted, err := r.teamAssignmentGrants(ctx, userID, res, permission)
	if err != nil {
		return false, err
	}
	if granted {
		return true, nil
	}

	return r.roleAssignmentGrants(ctx, userID, res, permission)
}

// HasOrganizationRole reports whether the user holds exactly the given
// role in the organization.
func (r *Resolver) HasOrganizationRole(ctx context.Context, userID, orgID string, role authz.Role) (bool, error) {
	o, err := r.orgs.FindByID(ctx, orgID)
	if err != nil {
		return false, fmt.Errorf("failed to load organization %s: %w", orgID, err)
	}
	m, ok := o.Member(userID)
	if !ok {
		return false, nil
	}
	return m.Role == role, nil
}

// HasTeamRole reports whether the user holds exactly the given role in the
// team.
func (r *Resolver) HasTeamRole(ctx context.Context, userID, teamID string, role authz.Role) (bool, error) {
	t, err := r.teams.FindByID(ctx, teamID)
	if err != nil {
		return false, fmt.Errorf("failed to load team %s: %w", teamID, err)
	}
	m, ok := t.Member(userID)
	if !ok {
		return false, nil
	}
	return m.Role == role, nil
}

// OrganizationPermissions returns the full permission set implied by the
// user's organization role. The recorded owner holds every permission of
// the scope; users without a membership hold none.
func (r *Resolver) OrganizationPermissions(ctx context.Context, userID, orgID string) ([]authz.Permission, error) {
	o, err := r.orgs.FindByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization %s: %w", orgID, err)
	}
	if o.OwnerID == userID {
		return authz.AllPermissions(authz.ScopeOrganization), nil
	}
	m, ok := o.Member(userID)
	if !ok {
		return []authz.Permission{}, nil
	}
	return authz.RolePermissions(authz.ScopeOrganization, m.Role), nil
}

// TeamPermissions returns the full permission set implied by the user's
// team role, with the owner shortcut applied.
func (r *Resolver) TeamPermissions(ctx context.Context, userID, teamID string) ([]authz.Permission, error) {
	t, err := r.teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team %s: %w", teamID, err)
	}
	if t.OwnerID == userID {
		return authz.AllPermissions(authz.ScopeTeam), nil
	}
	m, ok := t.Member(userID)
	if !ok {
		return []authz.Permission{}, nil
	}
	return authz.RolePermissions(authz.ScopeTeam, m.Role), nil
}

// ResourcePermissions returns the union of the resource-scope permissions
// implied by the caller's organization role and every ACL grant matching
// the caller across the three target tiers. The owner holds everything.
func (r *Resolver) ResourcePermissions(ctx context.Context, userID, resourceID string) ([]authz.Permission, error) {
	res, err := r.resources.FindByID(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resource %s: %w", resourceID, err)
	}
	if res.OwnerID == userID {
		return authz.AllPermissions(authz.ScopeResource), nil
	}

	granted := make(map[authz.Permission]bool)

	orgRole, hasRole, err := r.organizationRole(ctx, userID, res.OrgID)
	if err != nil {
		return nil, err
	}
	if hasRole {
		for _, p := range authz.RolePermissions(authz.ScopeResource, orgRole) {
			granted[p] = true
		}
	}

	teamIDs, err := r.userTeamIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, a := range res.Assignments {
		switch a.TargetKind {
		case resource.TargetUser:
			if a.TargetID != userID {
				continue
			}
		case resource.TargetTeam:
			if !teamIDs[a.TargetID] {
				continue
			}
		case resource.TargetRole:
			if !hasRole || a.TargetID != orgRole.Token() {
				continue
			}
		default:
			continue
		}
		for _, p := range a.Permissions {
			granted[p] = true
		}
	}

	// Stable order: scope declaration order, then any grants the static
	// vocabulary does not know about.
	out := make([]authz.Permission, 0, len(granted))
	for _, p := range authz.AllPermissions(authz.ScopeResource) {
		if granted[p] {
			out = append(out, p)
			delete(granted, p)
		}
	}
	for p := range granted {
		out = append(out, p)
	}
	return out, nil
}

// teamAssignmentGrants checks team-targeted assignments against the teams
// the user belongs to.
func (r *Resolver) teamAssignmentGrants(ctx context.Context, userID string, res *resource.Resource, permission authz.Permission) (bool, error) {
	hasTeamTarget := false
	for _, a := range res.Assignments {
		if a.TargetKind == resource.TargetTeam {
			hasTeamTarget = true
			break
		}
	}
	if !hasTeamTarget {
		return false, nil
	}

	teamIDs, err := r.userTeamIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, a := range res.Assignments {
		if a.TargetKind == resource.TargetTeam && teamIDs[a.TargetID] && a.Grants(permission) {
			return true, nil
		}
	}
	return false, nil
}

// roleAssignmentGrants checks role-targeted assignments against the user's
// resolved organization role.
func (r *Resolver) roleAssignmentGrants(ctx context.Context, userID string, res *resource.Resource, permission authz.Permission) (bool, error) {
	hasRoleTarget := false
	for _, a := range res.Assignments {
		if a.TargetKind == resource.TargetRole {
			hasRoleTarget = true
			break
		}
	}
	if !hasRoleTarget {
		return false, nil
	}

	role, ok, err := r.organizationRole(ctx, userID, res.OrgID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	for _, a := range res.Assignments {
		if a.TargetKind == resource.TargetRole && a.TargetID == role.Token() && a.Grants(permission) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) organizationRole(ctx context.Context, userID, orgID string) (authz.Role, bool, error) {
	if orgID == "" {
		return "", false, nil
	}
	o, err := r.orgs.FindByID(ctx, orgID)
	if err != nil {
		return "", false, fmt.Errorf("failed to load organization %s: %w", orgID, err)
	}
	m, ok := o.Member(userID)
	if !ok {
		return "", false, nil
	}
	return m.Role, true, nil
}

func (r *Resolver) userTeamIDs(ctx context.Context, userID string) (map[string]bool, error) {
	teams, err := r.teams.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams for user %s: %w", userID, err)
	}
	ids := make(map[string]bool, len(teams))
	for _, t := range teams {
		ids[t.ID] = true
	}
	return ids, nil
}
