// Package catalog implements provider and tier management, including the
// soft-delete and referential rules that keep secret records consistent.
package catalog

import (
	"context"
	"errors"
	"log/slog"

	"keyshelf/internal/domain"
	"keyshelf/internal/service/security"
)

// ProviderService provides provider management operations.
type ProviderService struct {
	providers domain.ProviderRepository
	tiers     domain.TierRepository
	guard     *security.Guard
	logger    *slog.Logger
}

// NewProviderService creates a new ProviderService.
func NewProviderService(providers domain.ProviderRepository, tiers domain.TierRepository, roles domain.RoleRepository, logger *slog.Logger) *ProviderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderService{
		providers: providers,
		tiers:     tiers,
		guard:     security.NewGuard(roles),
		logger:    logger.With("component", "providers"),
	}
}

// Create adds a provider owned by the calling administrator.
func (s *ProviderService) Create(ctx context.Context, in domain.ProviderInput) (*domain.Provider, error) {
	caller, err := s.guard.RequireAdministrator(ctx)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkTier(ctx, in.TierID); err != nil {
		return nil, err
	}
	p, err := s.providers.Create(ctx, caller.ID, in)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "provider created", "provider_id", p.ID, "name", p.Name)
	return p, nil
}

// Update replaces the editable fields of a provider the caller owns.
func (s *ProviderService) Update(ctx context.Context, id string, in domain.ProviderInput) (*domain.Provider, error) {
	if _, err := s.owned(ctx, id); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkTier(ctx, in.TierID); err != nil {
		return nil, err
	}
	return s.providers.Update(ctx, id, in)
}

// Get returns an active provider with its tier.
func (s *ProviderService) Get(ctx context.Context, id string) (*domain.ProviderWithTier, error) {
	if _, _, err := s.guard.RequireRole(ctx); err != nil {
		return nil, err
	}
	return s.providers.GetByID(ctx, id)
}

// List returns all active providers by tier rank.
func (s *ProviderService) List(ctx context.Context) ([]domain.ProviderWithTier, error) {
	if _, _, err := s.guard.RequireRole(ctx); err != nil {
		return nil, err
	}
	return s.providers.List(ctx)
}

// ListRequiringDailyLogin returns active providers flagged for a daily check-in.
func (s *ProviderService) ListRequiringDailyLogin(ctx context.Context) ([]domain.ProviderWithTier, error) {
	if _, _, err := s.guard.RequireRole(ctx); err != nil {
		return nil, err
	}
	return s.providers.ListRequiringDailyLogin(ctx)
}

// Delete soft-deletes a provider the caller owns. Its secret records stay in
// place and remain revealable by ID, but drop out of provider-scoped listings.
func (s *ProviderService) Delete(ctx context.Context, id string) error {
	if _, err := s.owned(ctx, id); err != nil {
		return err
	}
	if err := s.providers.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "provider deleted", "provider_id", id)
	return nil
}

func (s *ProviderService) owned(ctx context.Context, id string) (*domain.ProviderWithTier, error) {
	caller, err := s.guard.RequireAdministrator(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.providers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != caller.ID {
		return nil, domain.ErrAccessDenied("provider is owned by another administrator")
	}
	return p, nil
}

func (s *ProviderService) checkTier(ctx context.Context, tierID *string) error {
	if tierID == nil {
		return nil
	}
	if _, err := s.tiers.GetByID(ctx, *tierID); err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return domain.ErrValidation("tier not found")
		}
		return err
	}
	return nil
}
