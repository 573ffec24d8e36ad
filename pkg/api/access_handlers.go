package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/huddlehq/huddle/pkg/access"
	"github.com/huddlehq/huddle/pkg/authz"
	"github.com/huddlehq/huddle/pkg/httputil"
	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/storage"
)

// AccessHandlers exposes permission and role resolution. Denial is a 200
// with allowed=false; only evaluation failures are errors.
type AccessHandlers struct {
	resolver *access.Resolver
	metrics  *observability.Metrics
}

// NewAccessHandlers creates a new AccessHandlers.
func NewAccessHandlers(resolver *access.Resolver, metrics *observability.Metrics) *AccessHandlers {
	return &AccessHandlers{resolver: resolver, metrics: metrics}
}

// RegisterRoutes registers access resolution routes.
func (h *AccessHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/access/check", h.CheckPermission).Methods("GET")
	router.HandleFunc("/access/role", h.CheckRole).Methods("GET")
	router.HandleFunc("/access/permissions", h.ListPermissions).Methods("GET")
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

type permissionsResponse struct {
	Permissions []authz.Permission `json:"permissions"`
}

// CheckPermission answers one permission query:
// /access/check?scope=team&user_id=u1&target_id=t1&permission=VIEW_TEAM
func (h *AccessHandlers) CheckPermission(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := authz.Scope(q.Get("scope"))
	userID := q.Get("user_id")
	targetID := q.Get("target_id")
	permission := authz.Permission(q.Get("permission"))

	if !scope.Valid() || userID == "" || targetID == "" || permission == "" {
		httputil.RespondError(w, http.StatusBadRequest, "scope, user_id, target_id and permission are required")
		return
	}

	var (
		allowed bool
		err     error
	)
	switch scope {
	case authz.ScopeOrganization:
		allowed, err = h.resolver.HasOrganizationPermission(r.Context(), userID, targetID, permission)
	case authz.ScopeTeam:
		allowed, err = h.resolver.HasTeamPermission(r.Context(), userID, targetID, permission)
	case authz.ScopeResource:
		allowed, err = h.resolver.HasResourcePermission(r.Context(), userID, targetID, permission)
	}
	if err != nil {
		h.respondResolutionError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObservePermissionCheck(string(scope), allowed)
	}
	httputil.RespondJSON(w, http.StatusOK, checkResponse{Allowed: allowed})
}

// CheckRole answers an exact role query:
// /access/role?scope=organization&user_id=u1&target_id=org1&role=admin
func (h *AccessHandlers) CheckRole(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := authz.Scope(q.Get("scope"))
	userID := q.Get("user_id")
	targetID := q.Get("target_id")

	role, parseErr := authz.ParseRole(q.Get("role"))
	if parseErr != nil || userID == "" || targetID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "scope, user_id, target_id and a valid role are required")
		return
	}

	var (
		held bool
		err  error
	)
	switch scope {
	case authz.ScopeOrganization:
		held, err = h.resolver.HasOrganizationRole(r.Context(), userID, targetID, role)
	case authz.ScopeTeam:
		held, err = h.resolver.HasTeamRole(r.Context(), userID, targetID, role)
	default:
		httputil.RespondError(w, http.StatusBadRequest, "role checks support organization and team scopes")
		return
	}
	if err != nil {
		h.respondResolutionError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, checkResponse{Allowed: held})
}

// ListPermissions returns the full permission set the user holds on the
// target: /access/permissions?scope=resource&user_id=u1&target_id=r1
func (h *AccessHandlers) ListPermissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := authz.Scope(q.Get("scope"))
	userID := q.Get("user_id")
	targetID := q.Get("target_id")

	if !scope.Valid() || userID == "" || targetID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "scope, user_id and target_id are required")
		return
	}

	var (
		perms []authz.Permission
		err   error
	)
	switch scope {
	case authz.ScopeOrganization:
		perms, err = h.resolver.OrganizationPermissions(r.Context(), userID, targetID)
	case authz.ScopeTeam:
		perms, err = h.resolver.TeamPermissions(r.Context(), userID, targetID)
	case authz.ScopeResource:
		perms, err = h.resolver.ResourcePermissions(r.Context(), userID, targetID)
	}
	if err != nil {
		h.respondResolutionError(w, err)
		return
	}

	if perms == nil {
		perms = []authz.Permission{}
	}
	httputil.RespondJSON(w, http.StatusOK, permissionsResponse{Permissions: perms})
}

// respondResolutionError distinguishes a missing aggregate from an
// infrastructure failure.
func (h *AccessHandlers) respondResolutionError(w http.ResponseWriter, err error) {
	if httputil.IsClientError(err, storage.ErrNotFound) {
		httputil.RespondError(w, http.StatusNotFound, "%s", err.Error())
		return
	}
	httputil.RespondError(w, http.StatusInternalServerError, "failed to evaluate access")
}
