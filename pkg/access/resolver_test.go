package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle/pkg/authz"
	"github.com/huddlehq/huddle/pkg/org"
	"github.com/huddlehq/huddle/pkg/resource"
	"github.com/huddlehq/huddle/pkg/team"
)

type fakeOrgs struct {
	orgs map[string]*org.Organization
	err  error
}

func (f *fakeOrgs) FindByID(ctx context.Context, id string) (*org.Organization, error) {
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.orgs[id]
	if !ok {
		return nil, errors.New("organization not found")
	}
	return o, nil
}

type fakeTeams struct {
	teams map[string]*team.Team
	err   error
}

func (f *fakeTeams) FindByID(ctx context.Context, id string) (*team.Team, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.teams[id]
	if !ok {
		return nil, errors.New("team not found")
	}
	return t, nil
}

func (f *fakeTeams) FindByUser(ctx context.Context, userID string) ([]*team.Team, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*team.Team
	for _, t := range f.teams {
		if _, ok := t.Member(userID); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeResources struct {
	resources map[string]*resource.Resource
	err       error
}

func (f *fakeResources) FindByID(ctx context.Context, id string) (*resource.Resource, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.resources[id]
	if !ok {
		return nil, errors.New("resource not found")
	}
	return r, nil
}

type fixture struct {
	orgs      *fakeOrgs
	teams     *fakeTeams
	resources *fakeResources
	resolver  *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orgs:      &fakeOrgs{orgs: make(map[string]*org.Organization)},
		teams:     &fakeTeams{teams: make(map[string]*team.Team)},
		resources: &fakeResources{resources: make(map[string]*resource.Resource)},
	}
	f.resolver = NewResolver(f.orgs, f.teams, f.resources)
	return f
}

func (f *fixture) addOrg(t *testing.T, id, ownerID string, members map[string]authz.Role) *org.Organization {
	t.Helper()
	o, err := org.New("Org "+id, ownerID)
	require.NoError(t, err)
	o.ID = id
	for userID, role := range members {
		require.NoError(t, o.AddMember(userID, role, time.Now()))
	}
	f.orgs.orgs[id] = o
	return o
}

func (f *fixture) addTeam(t *testing.T, id, ownerID string, members map[string]authz.Role) *team.Team {
	t.Helper()
	tm, err := team.New("org1", "team-"+id, ownerID)
	require.NoError(t, err)
	tm.ID = id
	for userID, role := range members {
		require.NoError(t, tm.AddMember(team.Membership{UserID: userID, Role: role}))
	}
	tm.ClearEvents()
	f.teams.teams[id] = tm
	return tm
}

func (f *fixture) addResource(t *testing.T, id, orgID, ownerID string, assignments ...resource.PermissionAssignment) *resource.Resource {
	t.Helper()
	r, err := resource.New(orgID, ownerID, "res-"+id, "document")
	require.NoError(t, err)
	r.ID = id
	r.ReplaceAssignments(assignments, time.Now())
	f.resources.resources[id] = r
	return r
}

func mustAssignment(t *testing.T, kind resource.TargetKind, targetID string, perms ...authz.Permission) resource.PermissionAssignment {
	t.Helper()
	a, err := resource.NewPermissionAssignment(kind, targetID, perms)
	require.NoError(t, err)
	return a
}

func TestHasOrganizationPermission(t *testing.T) {
	f := newFixture(t)
	f.addOrg(t, "org1", "u1", map[string]authz.Role{
		"u2": authz.RoleAdmin,
		"u3": authz.RoleGuest,
	})
	ctx := context.Background()

	ok, err := f.resolver.HasOrganizationPermission(ctx, "u2", "org1", authz.PermManageOrgMembers)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.resolver.HasOrganizationPermission(ctx, "u2", "org1", authz.PermDeleteOrganization)
	require.NoError(t, err)
	assert.False(t, ok, "admin excludes delete")

	ok, err = f.resolver.HasOrganizationPermission(ctx, "u3", "org1", authz.PermManageOrgMembers)
	require.NoError(t, err)
	assert.False(t, ok)

	// Non-members are denied, not errored.
	ok, err = f.resolver.HasOrganizationPermission(ctx, "stranger", "org1", authz.PermViewOrganization)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasOrganizationPermissionRepositoryFailure(t *testing.T) {
	f := newFixture(t)
	f.orgs.err = errors.New("connection refused")

	_, err := f.resolver.HasOrganizationPermission(context.Background(), "u1", "org1", authz.PermViewOrganization)
	assert.Error(t, err, "infrastructure failure is never treated as denial")
}

func TestHasTeamPermissionOwnerShortcut(t *testing.T) {
	f := newFixture(t)
	f.addTeam(t, "t1", "u1", map[string]authz.Role{"u2": authz.RoleGuest})
	ctx := context.Background()

	ok, err := f.resolver.HasTeamPermission(ctx, "u1", "t1", authz.PermDeleteTeam)
	require.NoError(t, err)
	assert.True(t, ok, "owner passes every check")

	ok, err = f.resolver.HasTeamPermission(ctx, "u2", "t1", authz.PermSendMessages)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.resolver.HasTeamPermission(ctx, "u2", "t1", authz.PermJoinActivities)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasResourcePermissionUserTier(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "r1", "", "u1",
		mustAssignment(t, resource.TargetUser, "u2", authz.PermViewResource))
	ctx := context.Background()

	ok, err := f.resolver.HasResourcePermission(ctx, "u2", "r1", authz.PermViewResource)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.resolver.HasResourcePermission(ctx, "u2", "r1", authz.PermEditResource)
	require.NoError(t, err)
	assert.False(t, ok)

	// Owner shortcut needs no assignment.
	ok, err = f.resolver.HasResourcePermission(ctx, "u1", "r1", authz.PermEditResource)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasResourcePermissionOwnershipDominatesACL(t *testing.T) {
	f := newFixture(t)
	// A narrower assignment targeting the owner does not restrict them.
	f.addResource(t, "r1", "", "u1",
		mustAssignment(t, resource.TargetUser, "u1", authz.PermViewResource))

	ok, err := f.resolver.HasResourcePermission(context.Background(), "u1", "r1", authz.PermDeleteResource)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasResourcePermissionTeamTier(t *testing.T) {
	f := newFixture(t)
	f.addTeam(t, "t1", "u9", map[string]authz.Role{"u2": authz.RoleMember})
	f.addResource(t, "r1", "", "u1",
		mustAssignment(t, resource.TargetTeam, "t1", authz.PermEditResource))
	ctx := context.Background()

	ok, err := f.resolver.HasResourcePermission(ctx, "u2", "r1", authz.PermEditResource)
	require.NoError(t, err)
	assert.True(t, ok)

	// Users outside the team get nothing from the team tier.
	ok, err = f.resolver.HasResourcePermission(ctx, "u3", "r1", authz.PermEditResource)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasResourcePermissionRoleTier(t *testing.T) {
	f := newFixture(t)
	f.addOrg(t, "org1", "u1", map[string]authz.Role{"u2": authz.RoleAdmin})
	f.addResource(t, "r1", "org1", "u1",
		mustAssignment(t, resource.TargetRole, "admin", authz.PermShareResource))
	ctx := context.Background()

	ok, err := f.resolver.HasResourcePermission(ctx, "u2", "r1", authz.PermShareResource)
	require.NoError(t, err)
	assert.True(t, ok)

	// A guest does not match the admin-targeted assignment.
	require.NoError(t, f.orgs.orgs["org1"].AddMember("u3", authz.RoleGuest, time.Now()))
	ok, err = f.resolver.HasResourcePermission(ctx, "u3", "r1", authz.PermShareResource)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasResourcePermissionUnionAcrossAssignments(t *testing.T) {
	f := newFixture(t)
	f.addTeam(t, "t1", "u9", map[string]authz.Role{"u2": authz.RoleMember})
	// One assignment denies (does not carry) the permission, another grants
	// it; any grant wins.
	f.addResource(t, "r1", "", "u1",
		mustAssignment(t, resource.TargetUser, "u2", authz.PermViewResource),
		mustAssignment(t, resource.TargetTeam, "t1", authz.PermEditResource))

	ok, err := f.resolver.HasResourcePermission(context.Background(), "u2", "r1", authz.PermEditResource)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasResourcePermissionRepositoryFailure(t *testing.T) {
	f := newFixture(t)
	f.resources.err = errors.New("timeout")

	_, err := f.resolver.HasResourcePermission(context.Background(), "u1", "r1", authz.PermViewResource)
	assert.Error(t, err)
}

func TestHasResourcePermissionTeamLookupFailure(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "r1", "", "u1",
		mustAssignment(t, resource.TargetTeam, "t1", authz.PermEditResource))
	f.teams.err = errors.New("connection reset")

	_, err := f.resolver.HasResourcePermission(context.Background(), "u2", "r1", authz.PermEditResource)
	assert.Error(t, err, "team tier failure surfaces instead of being read as denial")
}

func TestHasRoles(t *testing.T) {
	f := newFixture(t)
	f.addOrg(t, "org1", "u1", map[string]authz.Role{"u2": authz.RoleAdmin})
	f.addTeam(t, "t1", "u1", map[string]authz.Role{"u2": authz.RoleMember})
	ctx := context.Background()

	ok, err := f.resolver.HasOrganizationRole(ctx, "u2", "org1", authz.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.resolver.HasOrganizationRole(ctx, "u2", "org1", authz.RoleOwner)
	require.NoError(t, err)
	assert.False(t, ok, "role comparison is exact, not hierarchical")

	ok, err = f.resolver.HasTeamRole(ctx, "u2", "t1", authz.RoleMember)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.resolver.HasTeamRole(ctx, "stranger", "t1", authz.RoleGuest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermissionListings(t *testing.T) {
	f := newFixture(t)
	f.addOrg(t, "org1", "u1", map[string]authz.Role{"u2": authz.RoleMember})
	f.addTeam(t, "t1", "u1", map[string]authz.Role{"u2": authz.RoleAdmin})
	ctx := context.Background()

	orgPerms, err := f.resolver.OrganizationPermissions(ctx, "u1", "org1")
	require.NoError(t, err)
	assert.Equal(t, authz.AllPermissions(authz.ScopeOrganization), orgPerms)

	teamPerms, err := f.resolver.TeamPermissions(ctx, "u2", "t1")
	require.NoError(t, err)
	assert.NotContains(t, teamPerms, authz.PermDeleteTeam)
	assert.Contains(t, teamPerms, authz.PermManageRoles)

	// Idempotent with no intervening mutation.
	again, err := f.resolver.TeamPermissions(ctx, "u2", "t1")
	require.NoError(t, err)
	assert.Equal(t, teamPerms, again)

	empty, err := f.resolver.TeamPermissions(ctx, "stranger", "t1")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestResourcePermissionsUnionsACLWithRoleTable(t *testing.T) {
	f := newFixture(t)
	f.addOrg(t, "org1", "u1", map[string]authz.Role{"u2": authz.RoleGuest})
	f.addResource(t, "r1", "org1", "u1",
		mustAssignment(t, resource.TargetUser, "u2", authz.PermShareResource))
	ctx := context.Background()

	perms, err := f.resolver.ResourcePermissions(ctx, "u2", "r1")
	require.NoError(t, err)
	// Guest role table gives VIEW; the user-targeted grant adds SHARE.
	assert.Contains(t, perms, authz.PermViewResource)
	assert.Contains(t, perms, authz.PermShareResource)
	assert.NotContains(t, perms, authz.PermDeleteResource)

	ownerPerms, err := f.resolver.ResourcePermissions(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, authz.AllPermissions(authz.ScopeResource), ownerPerms)
}
