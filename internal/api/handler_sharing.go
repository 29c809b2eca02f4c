package api

import "net/http"

// ShareKey grants a member access to one of the caller's keys.
func (h *Handler) ShareKey(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Sharing.Share(r.Context(), pathParam(r, "keyID"), pathParam(r, "principalID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGrant(g))
}

// UnshareKey revokes a grant. Revoking an absent grant succeeds.
func (h *Handler) UnshareKey(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Sharing.Unshare(r.Context(), pathParam(r, "keyID"), pathParam(r, "principalID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSharedWithMe returns the keys shared with the caller.
func (h *Handler) ListSharedWithMe(w http.ResponseWriter, r *http.Request) {
	ss, err := h.svc.Sharing.ListSharedWithMe(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[sharedKeyResponse]{Items: toSharedKeys(ss)})
}

// SharingOverview returns the administrator's sharing graph.
func (h *Handler) SharingOverview(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Sharing.Overview(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverview(o))
}
