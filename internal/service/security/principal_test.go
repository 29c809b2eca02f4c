package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyshelf/internal/domain"
	"keyshelf/internal/testutil"
)

func TestPrincipalService_ResolveOrProvision(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := NewPrincipalService(env.Principals)
	ctx := context.Background()

	req := domain.ResolveOrProvisionRequest{Issuer: "iss", ExternalID: "sub", Email: "a@example.com"}
	p1, err := svc.ResolveOrProvision(ctx, req)
	require.NoError(t, err)
	p2, err := svc.ResolveOrProvision(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, p1.ID, p2.ID)

	got, err := svc.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	_, err = svc.ResolveOrProvision(ctx, domain.ResolveOrProvisionRequest{Issuer: "iss", ExternalID: "sub2"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestGuard(t *testing.T) {
	env := testutil.NewEnv(t)
	guard := NewGuard(env.Roles)
	admin := env.Administrator(t, "admin")
	member, _ := env.Member(t, "member")
	stranger := env.Principal(t, "stranger")

	_, err := guard.RequireAdministrator(testutil.Ctx(admin))
	require.NoError(t, err)

	var denied *domain.AccessDeniedError
	_, err = guard.RequireAdministrator(testutil.Ctx(member))
	require.ErrorAs(t, err, &denied)

	_, role, err := guard.RequireRole(testutil.Ctx(member))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, role)

	_, _, err = guard.RequireRole(testutil.Ctx(stranger))
	require.ErrorAs(t, err, &denied)

	_, _, err = guard.Caller(context.Background())
	var ue *domain.UnauthenticatedError
	require.ErrorAs(t, err, &ue)
}
