package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/huddlehq/huddle/pkg/authz"
	"github.com/huddlehq/huddle/pkg/httputil"
	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/org"
	"github.com/huddlehq/huddle/pkg/storage"
)

// OrgHandlers handles organization-related HTTP requests.
type OrgHandlers struct {
	orgs   storage.OrganizationRepository
	logger *observability.Logger
}

// NewOrgHandlers creates a new OrgHandlers.
func NewOrgHandlers(orgs storage.OrganizationRepository, logger *observability.Logger) *OrgHandlers {
	return &OrgHandlers{orgs: orgs, logger: logger}
}

// RegisterRoutes registers organization routes.
func (h *OrgHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/orgs", h.CreateOrganization).Methods("POST")
	router.HandleFunc("/orgs/{id}", h.GetOrganization).Methods("GET")
	router.HandleFunc("/orgs/{id}", h.DeleteOrganization).Methods("DELETE")
	router.HandleFunc("/orgs/{id}/members", h.AddMember).Methods("POST")
	router.HandleFunc("/orgs/{id}/members/{user_id}", h.RemoveMember).Methods("DELETE")
}

type createOrgRequest struct {
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

type addOrgMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// CreateOrganization creates an organization with its owner enrolled.
func (h *OrgHandlers) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}

	o, err := org.New(req.Name, req.OwnerID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.orgs.Save(r.Context(), o); err != nil {
		h.logger.WithError(err).Error("failed to save organization")
		respondDomainError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, o)
}

// GetOrganization retrieves an organization by id.
func (h *OrgHandlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	o, err := h.orgs.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, o)
}

// DeleteOrganization deletes an organization.
func (h *OrgHandlers) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	if err := h.orgs.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMember enrolls a user into the organization.
func (h *OrgHandlers) AddMember(w http.ResponseWriter, r *http.Request) {
	var req addOrgMemberRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	o, err := h.orgs.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := o.AddMember(req.UserID, role, time.Now()); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.orgs.Save(r.Context(), o); err != nil {
		h.logger.WithError(err).Error("failed to save organization")
		respondDomainError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, o)
}

// RemoveMember drops a user's organization membership.
func (h *OrgHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	o, err := h.orgs.FindByID(r.Context(), vars["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := o.RemoveMember(vars["user_id"], time.Now()); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.orgs.Save(r.Context(), o); err != nil {
		h.logger.WithError(err).Error("failed to save organization")
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
