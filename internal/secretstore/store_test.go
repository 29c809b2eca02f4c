package secretstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyshelf/internal/db/crypto"
	"keyshelf/internal/domain"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// mapBackend is an in-memory Backend with an optional injected failure.
type mapBackend struct {
	mu   sync.Mutex
	data map[domain.SecretHandle]string
	fail error
}

func newMapBackend() *mapBackend {
	return &mapBackend{data: make(map[domain.SecretHandle]string)}
}

func (m *mapBackend) Save(_ context.Context, handle domain.SecretHandle, ciphertext string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.data[handle] = ciphertext
	return nil
}

func (m *mapBackend) Load(_ context.Context, handle domain.SecretHandle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", m.fail
	}
	v, ok := m.data[handle]
	if !ok {
		return "", ErrHandleNotFound
	}
	return v, nil
}

func (m *mapBackend) Remove(_ context.Context, handle domain.SecretHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[handle]; !ok {
		return ErrHandleNotFound
	}
	delete(m.data, handle)
	return nil
}

func testStore(t *testing.T, b Backend) *Store {
	t.Helper()
	enc, err := crypto.NewEncryptor(testKey)
	require.NoError(t, err)
	return New(b, enc, nil)
}

var caller = domain.ContextPrincipal{ID: "p1", Email: "p1@example.com"}

func TestStore_PutGet(t *testing.T) {
	b := newMapBackend()
	s := testStore(t, b)
	ctx := context.Background()

	h, err := s.Put(ctx, "sk-abc123")
	require.NoError(t, err)
	assert.NotEmpty(t, h)
	assert.NotContains(t, b.data[h], "sk-abc123", "backend only sees ciphertext")

	got, err := s.Get(ctx, h, caller)
	require.NoError(t, err)
	assert.Equal(t, "sk-abc123", got)

	h2, err := s.Put(ctx, "sk-abc123")
	require.NoError(t, err)
	assert.NotEqual(t, h, h2, "every put issues a fresh handle")
}

func TestStore_GetRequiresCaller(t *testing.T) {
	s := testStore(t, newMapBackend())
	ctx := context.Background()

	h, err := s.Put(ctx, "sk-abc123")
	require.NoError(t, err)

	_, err = s.Get(ctx, h, domain.ContextPrincipal{})
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
}

func TestStore_SwappedCiphertextFails(t *testing.T) {
	b := newMapBackend()
	s := testStore(t, b)
	ctx := context.Background()

	h1, err := s.Put(ctx, "first")
	require.NoError(t, err)
	h2, err := s.Put(ctx, "second")
	require.NoError(t, err)

	b.data[h1], b.data[h2] = b.data[h2], b.data[h1]

	_, err = s.Get(ctx, h1, caller)
	require.Error(t, err)
}

func TestStore_BackendFailure(t *testing.T) {
	b := newMapBackend()
	s := testStore(t, b)
	ctx := context.Background()
	boom := errors.New("backend down")

	h, err := s.Put(ctx, "sk-abc123")
	require.NoError(t, err)

	b.fail = boom
	_, err = s.Put(ctx, "sk-other")
	require.ErrorIs(t, err, boom)

	_, err = s.Get(ctx, h, caller)
	require.ErrorIs(t, err, boom)
}

func TestStore_GetUnknownHandle(t *testing.T) {
	s := testStore(t, newMapBackend())

	_, err := s.Get(context.Background(), "nope", caller)
	require.ErrorIs(t, err, ErrHandleNotFound)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	b := newMapBackend()
	s := testStore(t, b)
	ctx := context.Background()

	h, err := s.Put(ctx, "sk-abc123")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, h))
	require.NoError(t, s.Delete(ctx, h))
	assert.Empty(t, b.data)
}
