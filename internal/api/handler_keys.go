package api

import (
	"net/http"
	"strconv"

	"keyshelf/internal/domain"
)

// ListProviderKeys returns the caller's keys under one provider.
func (h *Handler) ListProviderKeys(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.Vault.ListForProvider(r.Context(), pathParam(r, "providerID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[keyResponse]{Items: toKeys(rs)})
}

// ListKeys returns all of the caller's keys with provider names.
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.Vault.ListAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[keyResponse]{Items: toKeysWithProvider(rs)})
}

// CreateKey stores a new key. The response carries only its prefix.
func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.svc.Vault.Create(r.Context(), domain.CreateSecretRequest{
		ProviderID: req.ProviderID,
		Label:      req.Label,
		Plaintext:  req.APIKey,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toKey(rec))
}

// UpdateKey renames a key.
func (h *Handler) UpdateKey(w http.ResponseWriter, r *http.Request) {
	var req updateKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.svc.Vault.UpdateLabel(r.Context(), pathParam(r, "keyID"), req.Label)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toKey(rec))
}

// DeleteKey soft-deletes a key.
func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Vault.Delete(r.Context(), pathParam(r, "keyID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevealKey returns the plaintext to an owner or grantee. Responses are never
// cacheable; clients hide the value after display_ttl_seconds.
func (h *Handler) RevealKey(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	id := pathParam(r, "keyID")
	plaintext, err := h.svc.Vault.Reveal(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Display-TTL", strconv.Itoa(int(RevealDisplayTTL.Seconds())))
	writeJSON(w, http.StatusOK, revealResponse{
		ID:                id,
		APIKey:            plaintext,
		DisplayTTLSeconds: int(RevealDisplayTTL.Seconds()),
	})
}
