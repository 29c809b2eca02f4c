package security

import (
	"context"

	"keyshelf/internal/domain"
)

// Guard resolves the caller's role from the store on every authorization
// decision. Roles are never cached in the request context.
type Guard struct {
	roles domain.RoleRepository
}

// NewGuard creates a Guard backed by roles.
func NewGuard(roles domain.RoleRepository) *Guard {
	return &Guard{roles: roles}
}

// Caller returns the authenticated principal and its current role.
func (g *Guard) Caller(ctx context.Context) (domain.ContextPrincipal, domain.Role, error) {
	p, err := domain.CallerFromContext(ctx)
	if err != nil {
		return domain.ContextPrincipal{}, domain.RoleNone, err
	}
	role, err := g.roles.GetForPrincipal(ctx, p.ID)
	if err != nil {
		return domain.ContextPrincipal{}, domain.RoleNone, err
	}
	return p, role, nil
}

// RequireAdministrator returns the caller if it holds the administrator role.
func (g *Guard) RequireAdministrator(ctx context.Context) (domain.ContextPrincipal, error) {
	p, role, err := g.Caller(ctx)
	if err != nil {
		return domain.ContextPrincipal{}, err
	}
	switch role {
	case domain.RoleAdministrator:
		return p, nil
	case domain.RoleMember, domain.RoleNone:
		return domain.ContextPrincipal{}, domain.ErrAccessDenied("administrator role required")
	default:
		return domain.ContextPrincipal{}, domain.ErrAccessDenied("unknown role")
	}
}

// RequireRole returns the caller if it holds any role.
func (g *Guard) RequireRole(ctx context.Context) (domain.ContextPrincipal, domain.Role, error) {
	p, role, err := g.Caller(ctx)
	if err != nil {
		return domain.ContextPrincipal{}, domain.RoleNone, err
	}
	switch role {
	case domain.RoleAdministrator, domain.RoleMember:
		return p, role, nil
	case domain.RoleNone:
		return domain.ContextPrincipal{}, domain.RoleNone, domain.ErrAccessDenied("a role is required")
	default:
		return domain.ContextPrincipal{}, domain.RoleNone, domain.ErrAccessDenied("unknown role")
	}
}
