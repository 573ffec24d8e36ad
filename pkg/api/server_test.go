package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle/pkg/access"
	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/storage/memory"
	"github.com/huddlehq/huddle/pkg/team"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.NewStore()
	logger := observability.NewLogger(observability.ErrorLevel, nil)
	deps := Deps{
		Teams:         team.NewService(store.Teams, nil, logger, nil),
		TeamRepo:      store.Teams,
		Organizations: store.Organizations,
		Resources:     store.Resources,
		Resolver:      access.NewResolver(store.Organizations, store.Teams, store.Resources),
		Logger:        logger,
		Metrics:       observability.NewMetrics(),
	}

	srv := httptest.NewServer(NewServer(deps).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, "GET", srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestTeamLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, "POST", srv.URL+"/api/v1/teams", map[string]string{
		"org_id": "org1", "name": "backend", "owner_id": "u1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	teamID := body["id"].(string)

	resp, _ = doJSON(t, "POST", srv.URL+"/api/v1/teams/"+teamID+"/members", map[string]string{
		"user_id": "u2", "role": "member",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Duplicate add conflicts.
	resp, _ = doJSON(t, "POST", srv.URL+"/api/v1/teams/"+teamID+"/members", map[string]string{
		"user_id": "u2", "role": "member",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown role token is a bad request.
	resp, _ = doJSON(t, "POST", srv.URL+"/api/v1/teams/"+teamID+"/members", map[string]string{
		"user_id": "u3", "role": "wizard",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, "PUT", srv.URL+"/api/v1/teams/"+teamID+"/members/u2/role", map[string]string{
		"role": "admin",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The owner cannot be removed.
	resp, _ = doJSON(t, "DELETE", srv.URL+"/api/v1/teams/"+teamID+"/members/u1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, "DELETE", srv.URL+"/api/v1/teams/"+teamID+"/members/u2", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, "GET", srv.URL+"/api/v1/teams/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvitationFlow(t *testing.T) {
	srv := newTestServer(t)

	_, body := doJSON(t, "POST", srv.URL+"/api/v1/teams", map[string]string{
		"org_id": "org1", "name": "backend", "owner_id": "u1",
	})
	teamID := body["id"].(string)

	resp, inv := doJSON(t, "POST", srv.URL+"/api/v1/teams/"+teamID+"/invitations", map[string]string{
		"email": "dev@example.com", "role": "member", "invited_by": "u1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := inv["token"].(string)

	resp, _ = doJSON(t, "POST", srv.URL+"/api/v1/teams/"+teamID+"/invitations/accept", map[string]string{
		"token": token, "user_id": "u2",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Accepting the same token again conflicts.
	resp, _ = doJSON(t, "POST", srv.URL+"/api/v1/teams/"+teamID+"/invitations/accept", map[string]string{
		"token": token, "user_id": "u3",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAccessEndpoints(t *testing.T) {
	srv := newTestServer(t)

	_, body := doJSON(t, "POST", srv.URL+"/api/v1/teams", map[string]string{
		"org_id": "org1", "name": "backend", "owner_id": "u1",
	})
	teamID := body["id"].(string)
	_, _ = doJSON(t, "POST", srv.URL+"/api/v1/teams/"+teamID+"/members", map[string]string{
		"user_id": "u2", "role": "member",
	})

	check := func(userID, permission string) bool {
		url := fmt.Sprintf("%s/api/v1/access/check?scope=team&user_id=%s&target_id=%s&permission=%s",
			srv.URL, userID, teamID, permission)
		resp, body := doJSON(t, "GET", url, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return body["allowed"].(bool)
	}

	assert.True(t, check("u1", "DELETE_TEAM"), "owner passes everything")
	assert.True(t, check("u2", "SEND_MESSAGES"))
	assert.False(t, check("u2", "DELETE_TEAM"))
	assert.False(t, check("stranger", "VIEW_TEAM"), "denial is a 200 with allowed=false")

	resp, _ := doJSON(t, "GET", srv.URL+"/api/v1/access/check?scope=bogus&user_id=u1&target_id=x&permission=VIEW", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, "GET",
		srv.URL+"/api/v1/access/check?scope=team&user_id=u1&target_id=missing&permission=VIEW_TEAM", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	url := fmt.Sprintf("%s/api/v1/access/role?scope=team&user_id=u2&target_id=%s&role=member", srv.URL, teamID)
	resp, body = doJSON(t, "GET", url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body["allowed"].(bool))

	url = fmt.Sprintf("%s/api/v1/access/permissions?scope=team&user_id=u2&target_id=%s", srv.URL, teamID)
	resp, body = doJSON(t, "GET", url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	perms := body["permissions"].([]interface{})
	assert.Contains(t, perms, "SEND_MESSAGES")
	assert.NotContains(t, perms, "DELETE_TEAM")
}

func TestResourceACLFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, "POST", srv.URL+"/api/v1/resources", map[string]string{
		"org_id": "org1", "owner_id": "u1", "name": "roadmap", "kind": "document",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resourceID := body["id"].(string)

	resp, _ = doJSON(t, "PUT", srv.URL+"/api/v1/resources/"+resourceID+"/assignments", map[string]interface{}{
		"assignments": []map[string]interface{}{
			{"target_kind": "user", "target_id": "u2", "permissions": []string{"VIEW"}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	check := func(userID, permission string) bool {
		url := fmt.Sprintf("%s/api/v1/access/check?scope=resource&user_id=%s&target_id=%s&permission=%s",
			srv.URL, userID, resourceID, permission)
		resp, body := doJSON(t, "GET", url, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return body["allowed"].(bool)
	}

	assert.True(t, check("u2", "VIEW"))
	assert.False(t, check("u2", "EDIT"))
	assert.True(t, check("u1", "EDIT"), "ownership dominates the ACL")

	// Invalid target kinds are rejected at the boundary.
	resp, _ = doJSON(t, "PUT", srv.URL+"/api/v1/resources/"+resourceID+"/assignments", map[string]interface{}{
		"assignments": []map[string]interface{}{
			{"target_kind": "group", "target_id": "g1", "permissions": []string{"VIEW"}},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOrgEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, "POST", srv.URL+"/api/v1/orgs", map[string]string{
		"name": "Acme Corp", "owner_id": "u1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orgID := body["id"].(string)

	resp, _ = doJSON(t, "POST", srv.URL+"/api/v1/orgs/"+orgID+"/members", map[string]string{
		"user_id": "u2", "role": "admin",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	url := fmt.Sprintf("%s/api/v1/access/check?scope=organization&user_id=u2&target_id=%s&permission=MANAGE_ORG_MEMBERS",
		srv.URL, orgID)
	resp, body = doJSON(t, "GET", url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body["allowed"].(bool))

	// Removing the owner conflicts.
	resp, _ = doJSON(t, "DELETE", srv.URL+"/api/v1/orgs/"+orgID+"/members/u1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, "DELETE", srv.URL+"/api/v1/orgs/"+orgID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
