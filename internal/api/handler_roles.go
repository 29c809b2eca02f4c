package api

import (
	"net/http"

	"keyshelf/internal/domain"
)

// BootstrapAdministrator makes the caller the tenant administrator if nobody
// holds a role yet.
func (h *Handler) BootstrapAdministrator(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Roles.InitializeAdministrator(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoleAssignment(a))
}

// CurrentRole returns the caller's role, "none" included.
func (h *Handler) CurrentRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.svc.Roles.CurrentRole(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roleResponse{Role: role.String()})
}

// ListMembers returns every role assignment.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	ms, err := h.svc.Roles.ListMembers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[memberResponse]{Items: toMembers(ms)})
}

// AddMember grants the member role to a signed-in principal by email.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.svc.Roles.AddMember(r.Context(), domain.AddMemberRequest{Email: req.Email})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoleAssignment(a))
}

// RemoveMember deletes a role assignment and prunes the member's grants.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Roles.RemoveMember(r.Context(), pathParam(r, "roleID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
