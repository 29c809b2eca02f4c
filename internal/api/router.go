package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"keyshelf/internal/middleware"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// Authenticate resolves the caller for every /v1 route.
	Authenticate func(http.Handler) http.Handler
	CORSOrigins  []string
	// RateLimit applies per client IP to all /v1 routes. Zero disables it.
	RateLimit middleware.RateLimitConfig
	// RevealRateLimit applies per principal to the reveal route. Zero disables it.
	RevealRateLimit middleware.RateLimitConfig
	RequestTimeout  time.Duration
}

// NewRouter builds the HTTP routes. Rate limiter state lives until ctx is done.
func NewRouter(ctx context.Context, h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		if cfg.RateLimit.RequestsPerSecond > 0 {
			r.Use(middleware.RateLimiter(ctx, cfg.RateLimit))
		}
		r.Use(cfg.Authenticate)

		r.Post("/roles/bootstrap", h.BootstrapAdministrator)
		r.Get("/roles/me", h.CurrentRole)

		r.Get("/members", h.ListMembers)
		r.Post("/members", h.AddMember)
		r.Delete("/members/{roleID}", h.RemoveMember)

		r.Get("/tiers", h.ListTiers)
		r.Post("/tiers", h.CreateTier)
		r.Post("/tiers/seed", h.SeedTiers)
		r.Get("/tiers/{tierID}", h.GetTier)
		r.Patch("/tiers/{tierID}", h.UpdateTier)
		r.Delete("/tiers/{tierID}", h.DeleteTier)

		r.Get("/providers", h.ListProviders)
		r.Post("/providers", h.CreateProvider)
		r.Get("/providers/{providerID}", h.GetProvider)
		r.Patch("/providers/{providerID}", h.UpdateProvider)
		r.Delete("/providers/{providerID}", h.DeleteProvider)
		r.Get("/providers/{providerID}/keys", h.ListProviderKeys)

		r.Get("/keys", h.ListKeys)
		r.Post("/keys", h.CreateKey)
		r.Patch("/keys/{keyID}", h.UpdateKey)
		r.Delete("/keys/{keyID}", h.DeleteKey)
		reveal := r.With()
		if cfg.RevealRateLimit.RequestsPerSecond > 0 {
			revealCfg := cfg.RevealRateLimit
			revealCfg.Key = middleware.PrincipalOrIP
			reveal = r.With(middleware.RateLimiter(ctx, revealCfg))
		}
		reveal.Post("/keys/{keyID}/reveal", h.RevealKey)
		r.Put("/keys/{keyID}/shares/{principalID}", h.ShareKey)
		r.Delete("/keys/{keyID}/shares/{principalID}", h.UnshareKey)

		r.Get("/shared", h.ListSharedWithMe)
		r.Get("/sharing", h.SharingOverview)
	})

	return r
}
