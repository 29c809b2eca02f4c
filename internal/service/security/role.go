package security

import (
	"context"
	"errors"
	"log/slog"

	"keyshelf/internal/domain"
)

// RoleService manages the tenant's role assignments.
type RoleService struct {
	roles      domain.RoleRepository
	principals domain.PrincipalRepository
	guard      *Guard
	logger     *slog.Logger
}

// NewRoleService creates a new RoleService.
func NewRoleService(roles domain.RoleRepository, principals domain.PrincipalRepository, logger *slog.Logger) *RoleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleService{
		roles:      roles,
		principals: principals,
		guard:      NewGuard(roles),
		logger:     logger.With("component", "roles"),
	}
}

// InitializeAdministrator makes the caller the tenant's administrator if no
// role has been assigned yet. Racing callers see exactly one success; the
// rest get an ALREADY_INITIALIZED conflict.
func (s *RoleService) InitializeAdministrator(ctx context.Context) (*domain.RoleAssignment, error) {
	caller, err := domain.CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.roles.CreateFirstAdministrator(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "administrator initialized", "principal_id", caller.ID)
	return a, nil
}

// AddMember grants the member role to the principal with the given email.
func (s *RoleService) AddMember(ctx context.Context, req domain.AddMemberRequest) (*domain.RoleAssignment, error) {
	if _, err := s.guard.RequireAdministrator(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	target, err := s.principals.GetByEmail(ctx, req.Email)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrNotFound("no user with email %q; they must sign in once first", req.Email)
		}
		return nil, err
	}

	current, err := s.roles.GetForPrincipal(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	if current != domain.RoleNone {
		return nil, domain.ErrConflictKind(domain.ConflictRoleAssigned, "user already has role %s", current)
	}

	a, err := s.roles.Create(ctx, target.ID, domain.RoleMember)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "member added", "principal_id", target.ID, "role_id", a.ID)
	return a, nil
}

// RemoveMember deletes a role assignment. The caller cannot remove its own
// role. Grants naming the removed principal as grantee are pruned with it.
func (s *RoleService) RemoveMember(ctx context.Context, roleID string) error {
	caller, err := s.guard.RequireAdministrator(ctx)
	if err != nil {
		return err
	}

	a, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if a.PrincipalID == caller.ID {
		return domain.ErrValidation("you cannot remove your own role")
	}

	pruned, err := s.roles.DeleteWithGrants(ctx, roleID)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "member removed",
		"principal_id", a.PrincipalID,
		"role_id", roleID,
		"grants_pruned", pruned,
	)
	return nil
}

// CurrentRole returns the caller's role, RoleNone when unassigned.
func (s *RoleService) CurrentRole(ctx context.Context) (domain.Role, error) {
	_, role, err := s.guard.Caller(ctx)
	return role, err
}

// ListMembers returns every role assignment. Administrator only.
func (s *RoleService) ListMembers(ctx context.Context) ([]domain.Member, error) {
	if _, err := s.guard.RequireAdministrator(ctx); err != nil {
		return nil, err
	}
	return s.roles.List(ctx)
}
