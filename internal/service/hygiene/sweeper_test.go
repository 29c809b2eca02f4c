package hygiene

import (
	"context"
	"errors"
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

func TestSweepOnce_RemovesOrphans(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	admin := env.Administrator(t, "admin")
	bob, _ := env.Member(t, "bob")
	carol, carolRole := env.Member(t, "carol")
	prov := env.Provider(t, admin, "OpenAI")
	key, err := env.Secrets.Create(ctx, &domain.SecretRecord{
		OwnerID: admin.ID, ProviderID: prov.ID, Label: "prod", Handle: domain.SecretHandle(domain.NewID()),
	})
	require.NoError(t, err)
	for _, p := range []domain.ContextPrincipal{bob, carol} {
		_, err := env.Grants.Create(ctx, &domain.ShareGrant{SecretID: key.ID, GranteeID: p.ID, GrantedByID: admin.ID})
		require.NoError(t, err)
	}

	// Out-of-band role removal that skips grant pruning.
	_, err = env.DB.Exec(`DELETE FROM user_roles WHERE id = ?`, carolRole)
	require.NoError(t, err)

	s := NewSweeper(env.Grants, "", discardLogger())
	n, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err := env.Grants.Exists(ctx, key.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSweepOnce_Error(t *testing.T) {
	grants := &testutil.MockGrantRepo{
		DeleteOrphanedFn: func(context.Context) (int64, error) { return 0, errors.New("db locked") },
	}
	s := NewSweeper(grants, "", discardLogger())

	_, err := s.SweepOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db locked")
}

func TestSweeper_StartStop(t *testing.T) {
	grants := &testutil.MockGrantRepo{
		DeleteOrphanedFn: func(context.Context) (int64, error) { return 0, nil },
	}
	s := NewSweeper(grants, "*/5 * * * *", discardLogger())

	assert.True(t, s.Next().IsZero())
	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "second start is a no-op")
	assert.False(t, s.Next().IsZero())

	s.Stop()
	s.Stop()
	assert.True(t, s.Next().IsZero())
}

func TestSweeper_InvalidSchedule(t *testing.T) {
	s := NewSweeper(&testutil.MockGrantRepo{}, "not a schedule", discardLogger())
	require.Error(t, s.Start())
}
