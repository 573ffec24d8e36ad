package api

import (
	"net/http"

	"github.com/huddlehq/huddle/pkg/authz"
	"github.com/huddlehq/huddle/pkg/httputil"
	"github.com/huddlehq/huddle/pkg/org"
	"github.com/huddlehq/huddle/pkg/resource"
	"github.com/huddlehq/huddle/pkg/storage"
	"github.com/huddlehq/huddle/pkg/team"
)

var notFoundErrors = []error{
	storage.ErrNotFound,
	team.ErrNotAMember,
	team.ErrInvitationNotFound,
	org.ErrNotAMember,
}

var conflictErrors = []error{
	team.ErrAlreadyMember,
	team.ErrAlreadyInvited,
	team.ErrInvitationAccepted,
	team.ErrOwnerImmutable,
	org.ErrAlreadyMember,
	org.ErrOwnerImmutable,
}

var badRequestErrors = []error{
	team.ErrInvalidRole,
	team.ErrNameRequired,
	team.ErrOwnerRequired,
	team.ErrInvitationExpired,
	org.ErrInvalidRole,
	org.ErrNameRequired,
	org.ErrOwnerRequired,
	resource.ErrInvalidTargetKind,
	resource.ErrTargetRequired,
	resource.ErrInvalidRoleTarget,
	resource.ErrNameRequired,
	resource.ErrOwnerRequired,
	authz.ErrUnknownRole,
}

// respondDomainError maps domain and storage sentinels onto HTTP statuses.
// Anything unrecognized is a 500 and the caller should have logged it.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case httputil.IsClientError(err, notFoundErrors...):
		httputil.RespondError(w, http.StatusNotFound, "%s", err.Error())
	case httputil.IsClientError(err, conflictErrors...):
		httputil.RespondError(w, http.StatusConflict, "%s", err.Error())
	case httputil.IsClientError(err, badRequestErrors...):
		httputil.RespondError(w, http.StatusBadRequest, "%s", err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
