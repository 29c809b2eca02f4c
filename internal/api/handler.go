// Package api provides the HTTP JSON handlers and router for keyshelf.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"keyshelf/internal/service/catalog"
	"keyshelf/internal/service/security"
	"keyshelf/internal/service/sharing"
	"keyshelf/internal/service/vault"
)

// Pinger reports whether the relational store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services groups the services the handlers call.
type Services struct {
	Roles     *security.RoleService
	Tiers     *catalog.TierService
	Providers *catalog.ProviderService
	Vault     *vault.Service
	Sharing   *sharing.Service
}

// Handler serves the /v1 API. Every authorization decision is made by the
// services from the caller identity in the request context.
type Handler struct {
	svc    Services
	db     Pinger
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc Services, db Pinger, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, db: db, logger: logger.With("component", "api")}
}

// Health reports liveness and store reachability. It requires no auth.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}
