package catalog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyshelf/internal/domain"
	"keyshelf/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func strp(s string) *string { return &s }

type fixture struct {
	env       *testutil.Env
	providers *ProviderService
	tiers     *TierService
	admin     domain.ContextPrincipal
	member    domain.ContextPrincipal
}

func setup(t *testing.T) *fixture {
	t.Helper()
	env := testutil.NewEnv(t)
	admin := env.Administrator(t, "admin")
	member, _ := env.Member(t, "member")
	return &fixture{
		env:       env,
		providers: NewProviderService(env.Providers, env.Tiers, env.Roles, discardLogger()),
		tiers:     NewTierService(env.Tiers, env.Roles, discardLogger()),
		admin:     admin,
		member:    member,
	}
}

func TestProviderService_Lifecycle(t *testing.T) {
	f := setup(t)
	ctx := testutil.Ctx(f.admin)

	tier, err := f.tiers.Create(ctx, domain.TierInput{Name: "A", Label: "A Tier"})
	require.NoError(t, err)

	p, err := f.providers.Create(ctx, domain.ProviderInput{
		Name: "OpenRouter", TierID: &tier.ID, RequiresDailyLogin: true,
	})
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, p.OwnerID)

	got, err := f.providers.Get(testutil.Ctx(f.member), p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Tier)
	assert.Equal(t, "A", got.Tier.Name)

	daily, err := f.providers.ListRequiringDailyLogin(testutil.Ctx(f.member))
	require.NoError(t, err)
	assert.Len(t, daily, 1)

	updated, err := f.providers.Update(ctx, p.ID, domain.ProviderInput{Name: "OpenRouter", Remarks: strp("free credits")})
	require.NoError(t, err)
	require.NotNil(t, updated.Remarks)
	assert.Equal(t, "free credits", *updated.Remarks)

	require.NoError(t, f.providers.Delete(ctx, p.ID))

	list, err := f.providers.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	var nf *domain.NotFoundError
	require.ErrorAs(t, f.providers.Delete(ctx, p.ID), &nf)
}

func TestProviderService_Validation(t *testing.T) {
	f := setup(t)
	ctx := testutil.Ctx(f.admin)

	var ve *domain.ValidationError
	_, err := f.providers.Create(ctx, domain.ProviderInput{Name: "  "})
	require.ErrorAs(t, err, &ve)

	_, err = f.providers.Create(ctx, domain.ProviderInput{Name: "x", TierID: strp("missing")})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "tier not found", ve.Message)
}

func TestProviderService_WritesRequireAdministrator(t *testing.T) {
	f := setup(t)
	p := f.env.Provider(t, f.admin, "OpenAI")
	mctx := testutil.Ctx(f.member)

	var denied *domain.AccessDeniedError
	_, err := f.providers.Create(mctx, domain.ProviderInput{Name: "x"})
	require.ErrorAs(t, err, &denied)
	_, err = f.providers.Update(mctx, p.ID, domain.ProviderInput{Name: "x"})
	require.ErrorAs(t, err, &denied)
	require.ErrorAs(t, f.providers.Delete(mctx, p.ID), &denied)

	stranger := f.env.Principal(t, "stranger")
	_, err = f.providers.List(testutil.Ctx(stranger))
	require.ErrorAs(t, err, &denied)
}

func TestProviderService_DeleteKeepsSecretsRevealable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.env.Provider(t, f.admin, "OpenAI")
	rec, err := f.env.Secrets.Create(ctx, &domain.SecretRecord{
		OwnerID: f.admin.ID, ProviderID: p.ID, Label: "prod", Handle: domain.SecretHandle(domain.NewID()),
	})
	require.NoError(t, err)

	require.NoError(t, f.providers.Delete(testutil.Ctx(f.admin), p.ID))

	_, err = f.env.Secrets.FindRevealable(ctx, rec.ID, f.admin.ID)
	require.NoError(t, err)
	keys, err := f.env.Secrets.ListForProvider(ctx, f.admin.ID, p.ID)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
