package security

import (
	"context"

	"keyshelf/internal/domain"
)

// PrincipalService resolves identities presented by the authentication layer.
type PrincipalService struct {
	repo domain.PrincipalRepository
}

// NewPrincipalService creates a new PrincipalService.
func NewPrincipalService(repo domain.PrincipalRepository) *PrincipalService {
	return &PrincipalService{repo: repo}
}

// ResolveOrProvision returns the principal for validated token claims,
// creating it on first login.
func (s *PrincipalService) ResolveOrProvision(ctx context.Context, req domain.ResolveOrProvisionRequest) (*domain.Principal, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ResolveOrProvision(ctx, req)
}

// GetByID returns a principal by ID.
func (s *PrincipalService) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	return s.repo.GetByID(ctx, id)
}
