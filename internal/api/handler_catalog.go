package api

import (
	"net/http"

	"keyshelf/internal/domain"
)

// ListTiers returns tiers in display order.
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	ts, err := h.svc.Tiers.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[tierResponse]{Items: toTiers(ts)})
}

// CreateTier creates a tier.
func (h *Handler) CreateTier(w http.ResponseWriter, r *http.Request) {
	var req tierRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.svc.Tiers.Create(r.Context(), req.apply(domain.TierInput{}))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTier(t))
}

// SeedTiers inserts the default tiers into an empty tier table and returns
// the resulting list.
func (h *Handler) SeedTiers(w http.ResponseWriter, r *http.Request) {
	ts, err := h.svc.Tiers.SeedDefaults(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[tierResponse]{Items: toTiers(ts)})
}

// GetTier returns one tier.
func (h *Handler) GetTier(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Tiers.Get(r.Context(), pathParam(r, "tierID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTier(t))
}

// UpdateTier overlays the supplied fields onto the tier.
func (h *Handler) UpdateTier(w http.ResponseWriter, r *http.Request) {
	var req tierRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id := pathParam(r, "tierID")
	cur, err := h.svc.Tiers.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.svc.Tiers.Update(r.Context(), id, req.apply(tierInput(cur)))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTier(t))
}

// DeleteTier deletes a tier no active provider references.
func (h *Handler) DeleteTier(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Tiers.Delete(r.Context(), pathParam(r, "tierID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProviders returns active providers. ?daily_login=true narrows the list
// to providers that require a daily login.
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	var (
		ps  []domain.ProviderWithTier
		err error
	)
	if r.URL.Query().Get("daily_login") == "true" {
		ps, err = h.svc.Providers.ListRequiringDailyLogin(r.Context())
	} else {
		ps, err = h.svc.Providers.List(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[providerResponse]{Items: toProviders(ps)})
}

// CreateProvider creates a provider owned by the caller.
func (h *Handler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.svc.Providers.Create(r.Context(), req.apply(domain.ProviderInput{}))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProvider(p, nil))
}

// GetProvider returns one active provider with its tier.
func (h *Handler) GetProvider(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Providers.Get(r.Context(), pathParam(r, "providerID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProvider(&p.Provider, p.Tier))
}

// UpdateProvider overlays the supplied fields onto the provider.
func (h *Handler) UpdateProvider(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id := pathParam(r, "providerID")
	cur, err := h.svc.Providers.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.svc.Providers.Update(r.Context(), id, req.apply(providerInput(&cur.Provider)))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProvider(p, nil))
}

// DeleteProvider soft-deletes a provider.
func (h *Handler) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Providers.Delete(r.Context(), pathParam(r, "providerID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
