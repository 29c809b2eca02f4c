package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyshelf/internal/domain"
)

// Holding the single write connection in an open transaction must not stall
// reads: they are served by the read pool.
func TestReadsDoNotWaitOnWritePool(t *testing.T) {
	r := setupRepos(t)
	owner := r.principal(t, "alice")
	member := r.principal(t, "bob")
	_, err := r.roles.Create(context.Background(), member.ID, domain.RoleMember)
	require.NoError(t, err)
	prov := r.provider(t, owner.ID, "OpenAI", nil)
	rec := r.secret(t, owner.ID, prov.ID, "prod")
	_, err = r.grants.Create(context.Background(), &domain.ShareGrant{
		SecretID:    rec.ID,
		GranteeID:   member.ID,
		GrantedByID: owner.ID,
	})
	require.NoError(t, err)

	tx, err := r.db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	_, err = tx.Exec(`UPDATE api_keys SET label = 'pending' WHERE id = ?`, rec.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	role, err := r.roles.GetForPrincipal(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, role)

	got, err := r.secrets.FindRevealable(ctx, rec.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, "prod", got.Label, "uncommitted write must not be visible")

	owned, err := r.secrets.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	shared, err := r.grants.ListSharedWith(ctx, member.ID)
	require.NoError(t, err)
	assert.Len(t, shared, 1)

	providers, err := r.providers.List(ctx)
	require.NoError(t, err)
	assert.Len(t, providers, 1)
}

func TestWithReadPool_NilKeepsWritePool(t *testing.T) {
	r := setupRepos(t)
	repo := NewTierRepo(r.db).WithReadPool(nil)
	assert.Same(t, r.db, repo.read)
}
