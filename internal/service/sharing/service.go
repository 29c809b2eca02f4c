// Package sharing manages the share-grant relation between secret records and
// member principals.
package sharing

import (
	"context"
	"errors"
	"log/slog"

	"keyshelf/internal/domain"
	"keyshelf/internal/service/security"
)

// Service provides sharing operations.
type Service struct {
	grants    domain.GrantRepository
	secrets   domain.SecretRepository
	roles     domain.RoleRepository
	providers domain.ProviderRepository
	guard     *security.Guard
	logger    *slog.Logger
}

// NewService creates a new sharing Service.
func NewService(
	grants domain.GrantRepository,
	secrets domain.SecretRepository,
	roles domain.RoleRepository,
	providers domain.ProviderRepository,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		grants:    grants,
		secrets:   secrets,
		roles:     roles,
		providers: providers,
		guard:     security.NewGuard(roles),
		logger:    logger.With("component", "sharing"),
	}
}

// Share grants granteeID access to a secret the caller owns. The caller must
// be the administrator and the grantee must hold the member role. A second
// grant for the same pair is rejected with ALREADY_SHARED.
func (s *Service) Share(ctx context.Context, secretID, granteeID string) (*domain.ShareGrant, error) {
	caller, err := s.guard.RequireAdministrator(ctx)
	if err != nil {
		return nil, err
	}
	if secretID == "" || granteeID == "" {
		return nil, domain.ErrValidation("secret id and grantee id are required")
	}

	if _, err := s.secrets.GetOwned(ctx, secretID, caller.ID); err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrAccessDenied("api key not found or not owned by you")
		}
		return nil, err
	}

	role, err := s.roles.GetForPrincipal(ctx, granteeID)
	if err != nil {
		return nil, err
	}
	switch role {
	case domain.RoleMember:
	case domain.RoleAdministrator, domain.RoleNone:
		return nil, domain.ErrValidation("api keys can only be shared with members")
	default:
		return nil, domain.ErrValidation("unknown grantee role")
	}

	exists, err := s.grants.Exists(ctx, secretID, granteeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrConflictKind(domain.ConflictAlreadyShared, "api key is already shared with this user")
	}

	g, err := s.grants.Create(ctx, &domain.ShareGrant{
		SecretID:    secretID,
		GranteeID:   granteeID,
		GrantedByID: caller.ID,
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "secret shared", "secret_id", secretID, "grantee_id", granteeID)
	return g, nil
}

// Unshare revokes a grant the caller created. Revoking a grant that does not
// exist succeeds.
func (s *Service) Unshare(ctx context.Context, secretID, granteeID string) error {
	caller, err := s.guard.RequireAdministrator(ctx)
	if err != nil {
		return err
	}
	n, err := s.grants.Delete(ctx, secretID, granteeID, caller.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "secret unshared", "secret_id", secretID, "grantee_id", granteeID)
	}
	return nil
}

// ListSharedWithMe returns the live secrets shared with the caller. Only
// prefixes are returned; the secret store is never consulted.
func (s *Service) ListSharedWithMe(ctx context.Context) ([]domain.SharedSecret, error) {
	caller, _, err := s.guard.RequireRole(ctx)
	if err != nil {
		return nil, err
	}
	return s.grants.ListSharedWith(ctx, caller.ID)
}

// Overview returns the administrator's active providers, their active keys
// with current grantees, and the member list.
func (s *Service) Overview(ctx context.Context) (*domain.SharingOverview, error) {
	caller, err := s.guard.RequireAdministrator(ctx)
	if err != nil {
		return nil, err
	}

	providers, err := s.providers.ListByOwner(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	keys, err := s.secrets.ListByOwner(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	grants, err := s.grants.ListGrantedBy(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	members, err := s.roles.ListByRole(ctx, domain.RoleMember)
	if err != nil {
		return nil, err
	}

	sharedWith := make(map[string][]string, len(grants))
	for _, g := range grants {
		sharedWith[g.SecretID] = append(sharedWith[g.SecretID], g.GranteeID)
	}
	byProvider := make(map[string][]domain.SharingKey, len(providers))
	for _, k := range keys {
		byProvider[k.ProviderID] = append(byProvider[k.ProviderID], domain.SharingKey{
			SecretID:     k.ID,
			Label:        k.Label,
			KeyPrefix:    k.KeyPrefix,
			ProviderID:   k.ProviderID,
			ProviderName: k.ProviderName,
			SharedWith:   append([]string{}, sharedWith[k.ID]...),
		})
	}

	out := &domain.SharingOverview{
		Providers: make([]domain.SharingProvider, 0, len(providers)),
		Members:   members,
	}
	for _, p := range providers {
		out.Providers = append(out.Providers, domain.SharingProvider{
			ID:   p.ID,
			Name: p.Name,
			Keys: byProvider[p.ID],
		})
	}
	return out, nil
}
