package catalog

import (
	"context"
	"errors"
	"log/slog"

	"keyshelf/internal/domain"
	"keyshelf/internal/service/security"
)

// TierService provides tier management operations.
type TierService struct {
	tiers  domain.TierRepository
	guard  *security.Guard
	logger *slog.Logger
}

// NewTierService creates a new TierService.
func NewTierService(tiers domain.TierRepository, roles domain.RoleRepository, logger *slog.Logger) *TierService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TierService{
		tiers:  tiers,
		guard:  security.NewGuard(roles),
		logger: logger.With("component", "tiers"),
	}
}

// Create adds a tier. Names are unique tenant-wide.
func (s *TierService) Create(ctx context.Context, in domain.TierInput) (*domain.Tier, error) {
	caller, err := s.guard.RequireAdministrator(ctx)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, in.Name, ""); err != nil {
		return nil, err
	}
	return s.tiers.Create(ctx, caller.ID, in)
}

// Update replaces the editable fields of a tier.
func (s *TierService) Update(ctx context.Context, id string, in domain.TierInput) (*domain.Tier, error) {
	if _, err := s.guard.RequireAdministrator(ctx); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, in.Name, id); err != nil {
		return nil, err
	}
	return s.tiers.Update(ctx, id, in)
}

// Get returns a tier by ID.
func (s *TierService) Get(ctx context.Context, id string) (*domain.Tier, error) {
	if _, _, err := s.guard.RequireRole(ctx); err != nil {
		return nil, err
	}
	return s.tiers.GetByID(ctx, id)
}

// List returns all tiers by sort order.
func (s *TierService) List(ctx context.Context) ([]domain.Tier, error) {
	if _, _, err := s.guard.RequireRole(ctx); err != nil {
		return nil, err
	}
	return s.tiers.List(ctx)
}

// Delete removes a tier. It fails with a referential conflict while any
// active provider still uses the tier.
func (s *TierService) Delete(ctx context.Context, id string) error {
	if _, err := s.guard.RequireAdministrator(ctx); err != nil {
		return err
	}
	if err := s.tiers.DeleteUnreferenced(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "tier deleted", "tier_id", id)
	return nil
}

// SeedDefaults creates the default S through D tiers when no tiers exist yet
// and returns the resulting tier list. It is a no-op once any tier exists.
func (s *TierService) SeedDefaults(ctx context.Context) ([]domain.Tier, error) {
	caller, err := s.guard.RequireAdministrator(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.tiers.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if err := s.tiers.CreateMany(ctx, caller.ID, domain.DefaultTiers()); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "default tiers created")
	}
	return s.tiers.List(ctx)
}

// checkName rejects name if another tier (other than selfID) already uses it.
func (s *TierService) checkName(ctx context.Context, name, selfID string) error {
	existing, err := s.tiers.GetByName(ctx, name)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return domain.ErrConflictKind(domain.ConflictDuplicateName, "tier name %q already exists", name)
	}
	return nil
}
