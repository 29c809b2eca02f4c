package vault

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyshelf/internal/db/crypto"
	"keyshelf/internal/domain"
	"keyshelf/internal/secretstore"
	"keyshelf/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fixture struct {
	env   *testutil.Env
	store *testutil.MockSecretStore
	svc   *Service
	admin domain.ContextPrincipal
	prov  *domain.Provider
}

func setup(t *testing.T) *fixture {
	t.Helper()
	env := testutil.NewEnv(t)
	store := &testutil.MockSecretStore{}
	admin := env.Administrator(t, "admin")
	return &fixture{
		env:   env,
		store: store,
		svc:   NewService(env.Secrets, env.Providers, store, discardLogger()),
		admin: admin,
		prov:  env.Provider(t, admin, "OpenAI"),
	}
}

func (f *fixture) create(t *testing.T, plaintext string) *domain.SecretRecord {
	t.Helper()
	rec, err := f.svc.Create(testutil.Ctx(f.admin), domain.CreateSecretRequest{
		ProviderID: f.prov.ID,
		Label:      "prod",
		Plaintext:  plaintext,
	})
	require.NoError(t, err)
	return rec
}

func (f *fixture) grant(t *testing.T, secretID string, grantee domain.ContextPrincipal) {
	t.Helper()
	_, err := f.env.Grants.Create(context.Background(), &domain.ShareGrant{
		SecretID: secretID, GranteeID: grantee.ID, GrantedByID: f.admin.ID,
	})
	require.NoError(t, err)
}

func TestCreate_OwnerCanReveal(t *testing.T) {
	f := setup(t)

	rec := f.create(t, "  sk-abc123  ")
	assert.Equal(t, f.admin.ID, rec.OwnerID)
	assert.Equal(t, "sk-abc1", rec.KeyPrefix)
	assert.NotEmpty(t, rec.Handle)

	got, err := f.svc.Reveal(testutil.Ctx(f.admin), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "sk-abc123", got)
}

func TestCreate_Validation(t *testing.T) {
	f := setup(t)
	ctx := testutil.Ctx(f.admin)

	tests := []struct {
		name string
		req  domain.CreateSecretRequest
	}{
		{"empty label", domain.CreateSecretRequest{ProviderID: f.prov.ID, Label: "  ", Plaintext: "sk-1"}},
		{"empty plaintext", domain.CreateSecretRequest{ProviderID: f.prov.ID, Label: "x", Plaintext: " \t"}},
		{"missing provider id", domain.CreateSecretRequest{Label: "x", Plaintext: "sk-1"}},
		{"unknown provider", domain.CreateSecretRequest{ProviderID: "nope", Label: "x", Plaintext: "sk-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.req)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}
	assert.Zero(t, f.store.Len(), "nothing reaches the store on invalid input")
}

func TestCreate_DeletedProvider(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.env.Providers.SoftDelete(context.Background(), f.prov.ID))

	_, err := f.svc.Create(testutil.Ctx(f.admin), domain.CreateSecretRequest{
		ProviderID: f.prov.ID, Label: "x", Plaintext: "sk-1",
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "provider not found", ve.Message)
}

func TestCreate_Unauthenticated(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Create(context.Background(), domain.CreateSecretRequest{
		ProviderID: f.prov.ID, Label: "x", Plaintext: "sk-1",
	})
	var ue *domain.UnauthenticatedError
	require.ErrorAs(t, err, &ue)
}

func TestCreate_StoreWriteFailure(t *testing.T) {
	f := setup(t)
	f.store.PutFn = func(context.Context, string) (domain.SecretHandle, error) {
		return "", errors.New("kms unavailable")
	}

	_, err := f.svc.Create(testutil.Ctx(f.admin), domain.CreateSecretRequest{
		ProviderID: f.prov.ID, Label: "x", Plaintext: "sk-1",
	})
	var ve *domain.VaultError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.VaultOpWrite, ve.Op)
	assert.True(t, ve.Retryable())
	assert.NotContains(t, ve.Error(), "kms", "store internals stay out of the message")

	keys, err := f.svc.ListAll(testutil.Ctx(f.admin))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCreate_RecordFailureDiscardsHandle(t *testing.T) {
	f := setup(t)
	f.store.PutFn = func(context.Context, string) (domain.SecretHandle, error) {
		return "fixed-handle", nil
	}

	f.create(t, "sk-1")
	_, err := f.svc.Create(testutil.Ctx(f.admin), domain.CreateSecretRequest{
		ProviderID: f.prov.ID, Label: "again", Plaintext: "sk-2",
	})
	require.Error(t, err)
	assert.Equal(t, []domain.SecretHandle{"fixed-handle"}, f.store.Deleted)
}

func TestCreate_EndedRequestStillDiscardsHandle(t *testing.T) {
	tests := []struct {
		name    string
		end     func(ctx context.Context, cancel context.CancelFunc)
		wantErr error
	}{
		{
			name:    "cancelled",
			end:     func(_ context.Context, cancel context.CancelFunc) { cancel() },
			wantErr: context.Canceled,
		},
		{
			name:    "deadline exceeded",
			end:     func(ctx context.Context, _ context.CancelFunc) { <-ctx.Done() },
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			admin := env.Administrator(t, "admin")
			prov := env.Provider(t, admin, "OpenAI")

			enc, err := crypto.NewEncryptor("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
			require.NoError(t, err)
			sealed := secretstore.New(secretstore.NewSQLiteBackend(env.DB), enc, discardLogger())

			ctx, cancel := context.WithTimeout(testutil.Ctx(admin), 200*time.Millisecond)
			defer cancel()
			store := &testutil.MockSecretStore{
				PutFn: func(putCtx context.Context, plaintext string) (domain.SecretHandle, error) {
					h, err := sealed.Put(putCtx, plaintext)
					tt.end(putCtx, cancel)
					return h, err
				},
				DeleteFn: sealed.Delete,
			}
			svc := NewService(env.Secrets, env.Providers, store, discardLogger())

			_, err = svc.Create(ctx, domain.CreateSecretRequest{
				ProviderID: prov.ID, Label: "prod", Plaintext: "sk-live-secret",
			})
			require.ErrorIs(t, err, tt.wantErr)

			var secrets, records int
			require.NoError(t, env.DB.QueryRow(`SELECT COUNT(*) FROM vault_secrets`).Scan(&secrets))
			require.NoError(t, env.DB.QueryRow(`SELECT COUNT(*) FROM api_keys`).Scan(&records))
			assert.Zero(t, secrets, "stored value must be discarded")
			assert.Zero(t, records)
		})
	}
}

func TestReveal_UniformDenial(t *testing.T) {
	f := setup(t)
	outsider, _ := f.env.Member(t, "outsider")
	rec := f.create(t, "sk-abc123")

	_, errUnshared := f.svc.Reveal(testutil.Ctx(outsider), rec.ID)
	_, errMissing := f.svc.Reveal(testutil.Ctx(outsider), domain.NewID())

	var d1, d2 *domain.AccessDeniedError
	require.ErrorAs(t, errUnshared, &d1)
	require.ErrorAs(t, errMissing, &d2)
	assert.Equal(t, d1.Message, d2.Message)
	assert.Zero(t, f.store.Gets, "denied reveals never reach the store")
}

func TestReveal_Grantee(t *testing.T) {
	f := setup(t)
	bob, _ := f.env.Member(t, "bob")
	rec := f.create(t, "sk-abc123")
	f.grant(t, rec.ID, bob)

	got, err := f.svc.Reveal(testutil.Ctx(bob), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "sk-abc123", got)

	n, err := f.env.Grants.Delete(context.Background(), rec.ID, bob.ID, f.admin.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = f.svc.Reveal(testutil.Ctx(bob), rec.ID)
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
}

func TestReveal_Unauthenticated(t *testing.T) {
	f := setup(t)
	rec := f.create(t, "sk-abc123")

	_, err := f.svc.Reveal(context.Background(), rec.ID)
	var ue *domain.UnauthenticatedError
	require.ErrorAs(t, err, &ue)
}

func TestReveal_StoreReadFailure(t *testing.T) {
	f := setup(t)
	rec := f.create(t, "sk-abc123")
	f.store.GetFn = func(context.Context, domain.SecretHandle, domain.ContextPrincipal) (string, error) {
		return "", errors.New("timeout")
	}

	_, err := f.svc.Reveal(testutil.Ctx(f.admin), rec.ID)
	var ve *domain.VaultError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.VaultOpRead, ve.Op)
	assert.Equal(t, "secret store read failed", ve.Error())
}

func TestReveal_NoCaching(t *testing.T) {
	f := setup(t)
	rec := f.create(t, "sk-abc123")

	for i := 0; i < 3; i++ {
		_, err := f.svc.Reveal(testutil.Ctx(f.admin), rec.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.store.Gets)
}

func TestDelete_Monotonic(t *testing.T) {
	f := setup(t)
	bob, _ := f.env.Member(t, "bob")
	rec := f.create(t, "sk-abc123")
	f.grant(t, rec.ID, bob)

	require.NoError(t, f.svc.Delete(testutil.Ctx(f.admin), rec.ID))

	var denied *domain.AccessDeniedError
	for _, p := range []domain.ContextPrincipal{f.admin, bob} {
		_, err := f.svc.Reveal(testutil.Ctx(p), rec.ID)
		require.ErrorAs(t, err, &denied)
	}

	all, err := f.svc.ListAll(testutil.Ctx(f.admin))
	require.NoError(t, err)
	assert.Empty(t, all)
	forProvider, err := f.svc.ListForProvider(testutil.Ctx(f.admin), f.prov.ID)
	require.NoError(t, err)
	assert.Empty(t, forProvider)
	shared, err := f.env.Grants.ListSharedWith(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Empty(t, shared)

	require.ErrorAs(t, f.svc.Delete(testutil.Ctx(f.admin), rec.ID), &denied, "second delete is refused")
	assert.Equal(t, 1, f.store.Len(), "store entry is retained")
}

func TestDelete_OnlyOwner(t *testing.T) {
	f := setup(t)
	bob, _ := f.env.Member(t, "bob")
	rec := f.create(t, "sk-abc123")
	f.grant(t, rec.ID, bob)

	err := f.svc.Delete(testutil.Ctx(bob), rec.ID)
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	_, err = f.svc.Reveal(testutil.Ctx(f.admin), rec.ID)
	require.NoError(t, err)
}

func TestUpdateLabel(t *testing.T) {
	f := setup(t)
	bob, _ := f.env.Member(t, "bob")
	rec := f.create(t, "sk-abc123")

	updated, err := f.svc.UpdateLabel(testutil.Ctx(f.admin), rec.ID, "  staging ")
	require.NoError(t, err)
	assert.Equal(t, "staging", updated.Label)
	assert.Equal(t, rec.Handle, updated.Handle)

	_, err = f.svc.UpdateLabel(testutil.Ctx(f.admin), rec.ID, " ")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = f.svc.UpdateLabel(testutil.Ctx(bob), rec.ID, "mine now")
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
}

func TestListings(t *testing.T) {
	f := setup(t)
	other := f.env.Provider(t, f.admin, "Anthropic")
	first := f.create(t, "sk-1111111")
	_, err := f.svc.Create(testutil.Ctx(f.admin), domain.CreateSecretRequest{
		ProviderID: other.ID, Label: "claude", Plaintext: "sk-ant-2222",
	})
	require.NoError(t, err)

	keys, err := f.svc.ListForProvider(testutil.Ctx(f.admin), f.prov.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, first.ID, keys[0].ID)

	all, err := f.svc.ListAll(testutil.Ctx(f.admin))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Anthropic", all[0].ProviderName)
	assert.Equal(t, "sk-ant-", all[0].KeyPrefix)
}

func TestService_WithEncryptedStore(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.Administrator(t, "admin")
	prov := env.Provider(t, admin, "OpenAI")

	enc, err := crypto.NewEncryptor("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	store := secretstore.New(secretstore.NewSQLiteBackend(env.DB), enc, discardLogger())
	svc := NewService(env.Secrets, env.Providers, store, discardLogger())

	rec, err := svc.Create(testutil.Ctx(admin), domain.CreateSecretRequest{
		ProviderID: prov.ID, Label: "prod", Plaintext: "sk-live-secret",
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, env.DB.QueryRow(
		`SELECT COUNT(*) FROM api_keys WHERE secret_handle LIKE '%sk-live%' OR key_prefix = 'sk-live-secret'`).Scan(&n))
	assert.Zero(t, n, "plaintext never lands in application rows")

	got, err := svc.Reveal(testutil.Ctx(admin), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "sk-live-secret", got)
}
