package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/huddlehq/huddle/pkg/authz"
	"github.com/huddlehq/huddle/pkg/httputil"
	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/storage"
	"github.com/huddlehq/huddle/pkg/team"
)

// TeamHandlers handles team lifecycle and membership HTTP requests.
// Mutations go through the team service so domain events are published;
// reads and deletes hit the repository directly.
type TeamHandlers struct {
	teams  *team.Service
	repo   storage.TeamRepository
	logger *observability.Logger
}

// NewTeamHandlers creates a new TeamHandlers.
func NewTeamHandlers(teams *team.Service, repo storage.TeamRepository, logger *observability.Logger) *TeamHandlers {
	return &TeamHandlers{teams: teams, repo: repo, logger: logger}
}

// RegisterRoutes registers team routes.
func (h *TeamHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/teams", h.CreateTeam).Methods("POST")
	router.HandleFunc("/teams/{id}", h.GetTeam).Methods("GET")
	router.HandleFunc("/teams/{id}", h.DeleteTeam).Methods("DELETE")
	router.HandleFunc("/orgs/{id}/teams", h.ListOrgTeams).Methods("GET")

	router.HandleFunc("/teams/{id}/members", h.AddMember).Methods("POST")
	router.HandleFunc("/teams/{id}/members/{user_id}/role", h.UpdateMemberRole).Methods("PUT")
	router.HandleFunc("/teams/{id}/members/{user_id}", h.RemoveMember).Methods("DELETE")

	router.HandleFunc("/teams/{id}/invitations", h.CreateInvitation).Methods("POST")
	router.HandleFunc("/teams/{id}/invitations/accept", h.AcceptInvitation).Methods("POST")
	router.HandleFunc("/teams/{id}/invitations/{invitation_id}", h.RevokeInvitation).Methods("DELETE")
}

type createTeamRequest struct {
	OrgID   string `json:"org_id"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

type addTeamMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

type createInvitationRequest struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	InvitedBy string `json:"invited_by"`
}

type acceptInvitationRequest struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// teamResponse is the wire form of a team. The aggregate keeps its
// collections unexported, so handlers project it explicitly.
type teamResponse struct {
	ID          string            `json:"id"`
	OrgID       string            `json:"org_id"`
	Name        string            `json:"name"`
	OwnerID     string            `json:"owner_id"`
	Members     []team.Membership `json:"members"`
	Invitations []team.Invitation `json:"invitations,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func toTeamResponse(t *team.Team) teamResponse {
	return teamResponse{
		ID:          t.ID,
		OrgID:       t.OrgID,
		Name:        t.Name,
		OwnerID:     t.OwnerID,
		Members:     t.Members(),
		Invitations: t.Invitations(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// CreateTeam creates a team with its owner enrolled.
func (h *TeamHandlers) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}

	t, err := h.teams.Create(r.Context(), req.OrgID, req.Name, req.OwnerID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, toTeamResponse(t))
}

// GetTeam retrieves a team by id.
func (h *TeamHandlers) GetTeam(w http.ResponseWriter, r *http.Request) {
	t, err := h.teams.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, toTeamResponse(t))
}

// DeleteTeam deletes a team.
func (h *TeamHandlers) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOrgTeams lists the teams of an organization.
func (h *TeamHandlers) ListOrgTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.repo.FindByOrg(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	out := make([]teamResponse, 0, len(teams))
	for _, t := range teams {
		out = append(out, toTeamResponse(t))
	}
	httputil.RespondJSON(w, http.StatusOK, out)
}

// AddMember adds a membership to the team.
func (h *TeamHandlers) AddMember(w http.ResponseWriter, r *http.Request) {
	var req addTeamMemberRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	t, err := h.teams.AddMember(r.Context(), mux.Vars(r)["id"], team.Membership{
		UserID: req.UserID,
		Role:   role,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, toTeamResponse(t))
}

// UpdateMemberRole replaces a member's role.
func (h *TeamHandlers) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	vars := mux.Vars(r)
	t, err := h.teams.UpdateMemberRole(r.Context(), vars["id"], vars["user_id"], role)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, toTeamResponse(t))
}

// RemoveMember drops a membership.
func (h *TeamHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if _, err := h.teams.RemoveMember(r.Context(), vars["id"], vars["user_id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateInvitation creates a pending invitation.
func (h *TeamHandlers) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req createInvitationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	inv, err := h.teams.Invite(r.Context(), mux.Vars(r)["id"], req.Email, role, req.InvitedBy)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, inv)
}

// AcceptInvitation converts a pending invitation into a membership.
func (h *TeamHandlers) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req acceptInvitationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}

	t, err := h.teams.AcceptInvitation(r.Context(), mux.Vars(r)["id"], req.Token, req.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, toTeamResponse(t))
}

// RevokeInvitation withdraws a pending invitation.
func (h *TeamHandlers) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if _, err := h.teams.RevokeInvitation(r.Context(), vars["id"], vars["invitation_id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
