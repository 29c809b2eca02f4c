package secretstore

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "keyshelf/internal/db"
	"keyshelf/internal/domain"
)

func TestSQLiteBackend(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	b := NewSQLiteBackend(writeDB)
	ctx := context.Background()
	h := domain.SecretHandle("h1")

	require.NoError(t, b.Save(ctx, h, "cafebabe"))
	require.Error(t, b.Save(ctx, h, "deadbeef"), "handles are write-once")

	got, err := b.Load(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, "cafebabe", got)

	require.NoError(t, b.Remove(ctx, h))
	_, err = b.Load(ctx, h)
	require.ErrorIs(t, err, ErrHandleNotFound)
	require.ErrorIs(t, b.Remove(ctx, h), ErrHandleNotFound)
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	s := testStore(t, NewSQLiteBackend(writeDB))
	ctx := context.Background()

	h, err := s.Put(ctx, "sk-live-0001")
	require.NoError(t, err)

	var stored string
	require.NoError(t, writeDB.QueryRow(`SELECT ciphertext FROM vault_secrets WHERE handle = ?`, string(h)).Scan(&stored))
	assert.NotContains(t, stored, "sk-live-0001")

	got, err := s.Get(ctx, h, caller)
	require.NoError(t, err)
	assert.Equal(t, "sk-live-0001", got)
}
