package domain

import "context"

type principalKey struct{}

// ContextPrincipal carries the authenticated identity through request context.
// Roles are deliberately absent: they are looked up from the store on every
// authorization decision.
type ContextPrincipal struct {
	ID    string
	Email string
}

// WithPrincipal stores a ContextPrincipal in the context.
func WithPrincipal(ctx context.Context, p ContextPrincipal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the ContextPrincipal from the context.
func PrincipalFromContext(ctx context.Context) (ContextPrincipal, bool) {
	p, ok := ctx.Value(principalKey{}).(ContextPrincipal)
	return p, ok
}

// CallerFromContext returns the authenticated principal or an UnauthenticatedError.
func CallerFromContext(ctx context.Context) (ContextPrincipal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.ID == "" {
		return ContextPrincipal{}, ErrUnauthenticated("authentication required")
	}
	return p, nil
}
