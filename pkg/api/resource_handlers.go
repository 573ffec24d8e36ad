package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/huddlehq/huddle/pkg/authz"
	"github.com/huddlehq/huddle/pkg/httputil"
	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/resource"
	"github.com/huddlehq/huddle/pkg/storage"
)

// ResourceHandlers handles resource and ACL HTTP requests.
type ResourceHandlers struct {
	resources storage.ResourceRepository
	logger    *observability.Logger
}

// NewResourceHandlers creates a new ResourceHandlers.
func NewResourceHandlers(resources storage.ResourceRepository, logger *observability.Logger) *ResourceHandlers {
	return &ResourceHandlers{resources: resources, logger: logger}
}

// RegisterRoutes registers resource routes.
func (h *ResourceHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/resources", h.CreateResource).Methods("POST")
	router.HandleFunc("/resources/{id}", h.GetResource).Methods("GET")
	router.HandleFunc("/resources/{id}", h.DeleteResource).Methods("DELETE")
	router.HandleFunc("/resources/{id}/assignments", h.ReplaceAssignments).Methods("PUT")
	router.HandleFunc("/orgs/{id}/resources", h.ListOrgResources).Methods("GET")
}

type createResourceRequest struct {
	OrgID   string `json:"org_id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
}

type assignmentRequest struct {
	TargetKind  string   `json:"target_kind"`
	TargetID    string   `json:"target_id"`
	Permissions []string `json:"permissions"`
}

type replaceAssignmentsRequest struct {
	Assignments []assignmentRequest `json:"assignments"`
}

// CreateResource creates a resource with an empty ACL.
func (h *ResourceHandlers) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req createResourceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}

	res, err := resource.New(req.OrgID, req.OwnerID, req.Name, req.Kind)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.resources.Save(r.Context(), res); err != nil {
		h.logger.WithError(err).Error("failed to save resource")
		respondDomainError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, res)
}

// GetResource retrieves a resource by id.
func (h *ResourceHandlers) GetResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.resources.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, res)
}

// DeleteResource deletes a resource.
func (h *ResourceHandlers) DeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.resources.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOrgResources lists the resources of an organization.
func (h *ResourceHandlers) ListOrgResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.resources.FindByOrg(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resources)
}

// ReplaceAssignments swaps the resource's full assignment list. Partial
// updates are not supported; clients send the complete ACL every time.
func (h *ResourceHandlers) ReplaceAssignments(w http.ResponseWriter, r *http.Request) {
	var req replaceAssignmentsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}

	assignments := make([]resource.PermissionAssignment, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		perms := make([]authz.Permission, len(a.Permissions))
		for i, p := range a.Permissions {
			perms[i] = authz.Permission(p)
		}
		assignment, err := resource.NewPermissionAssignment(resource.TargetKind(a.TargetKind), a.TargetID, perms)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		assignments = append(assignments, assignment)
	}

	res, err := h.resources.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	res.ReplaceAssignments(assignments, time.Now())
	if err := h.resources.Save(r.Context(), res); err != nil {
		h.logger.WithError(err).Error("failed to save resource")
		respondDomainError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, res)
}
