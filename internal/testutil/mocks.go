// Package testutil provides shared mock implementations of domain interfaces
// and a real-SQLite fixture for use in tests across the codebase.
package testutil

import (
	"context"
	"sync"

	"keyshelf/internal/domain"
)

// === Secret Store Mock ===

// MockSecretStore implements domain.SecretStore for testing. Without Fn
// overrides it keeps plaintext in memory under sequential handles.
type MockSecretStore struct {
	PutFn    func(ctx context.Context, plaintext string) (domain.SecretHandle, error)
	GetFn    func(ctx context.Context, handle domain.SecretHandle, caller domain.ContextPrincipal) (string, error)
	DeleteFn func(ctx context.Context, handle domain.SecretHandle) error

	mu      sync.Mutex
	values  map[domain.SecretHandle]string
	Gets    int                   // number of Get calls that reached the store
	Deleted []domain.SecretHandle // handles passed to Delete
}

// Put implements the interface method for testing.
func (m *MockSecretStore) Put(ctx context.Context, plaintext string) (domain.SecretHandle, error) {
	if m.PutFn != nil {
		return m.PutFn(ctx, plaintext)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[domain.SecretHandle]string)
	}
	h := domain.SecretHandle(domain.NewID())
	m.values[h] = plaintext
	return h, nil
}

// Get implements the interface method for testing.
func (m *MockSecretStore) Get(ctx context.Context, handle domain.SecretHandle, caller domain.ContextPrincipal) (string, error) {
	m.mu.Lock()
	m.Gets++
	m.mu.Unlock()
	if m.GetFn != nil {
		return m.GetFn(ctx, handle, caller)
	}
	if caller.ID == "" {
		return "", domain.ErrAccessDenied("secret store requires a caller identity")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[handle]
	if !ok {
		return "", domain.ErrNotFound("handle %q not found", handle)
	}
	return v, nil
}

// Delete implements the interface method for testing.
func (m *MockSecretStore) Delete(ctx context.Context, handle domain.SecretHandle) error {
	m.mu.Lock()
	m.Deleted = append(m.Deleted, handle)
	delete(m.values, handle)
	m.mu.Unlock()
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, handle)
	}
	return nil
}

// Len returns the number of values currently held.
func (m *MockSecretStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

// === Grant Repository Mock ===

// MockGrantRepo implements domain.GrantRepository for testing.
type MockGrantRepo struct {
	CreateFn         func(ctx context.Context, g *domain.ShareGrant) (*domain.ShareGrant, error)
	ExistsFn         func(ctx context.Context, secretID, granteeID string) (bool, error)
	DeleteFn         func(ctx context.Context, secretID, granteeID, grantedByID string) (int64, error)
	ListSharedWithFn func(ctx context.Context, granteeID string) ([]domain.SharedSecret, error)
	ListGrantedByFn  func(ctx context.Context, grantedByID string) ([]domain.ShareGrant, error)
	DeleteOrphanedFn func(ctx context.Context) (int64, error)
}

// Create implements the interface method for testing.
func (m *MockGrantRepo) Create(ctx context.Context, g *domain.ShareGrant) (*domain.ShareGrant, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, g)
	}
	panic("unexpected call to MockGrantRepo.Create")
}

// Exists implements the interface method for testing.
func (m *MockGrantRepo) Exists(ctx context.Context, secretID, granteeID string) (bool, error) {
	if m.ExistsFn != nil {
		return m.ExistsFn(ctx, secretID, granteeID)
	}
	panic("unexpected call to MockGrantRepo.Exists")
}

// Delete implements the interface method for testing.
func (m *MockGrantRepo) Delete(ctx context.Context, secretID, granteeID, grantedByID string) (int64, error) {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, secretID, granteeID, grantedByID)
	}
	panic("unexpected call to MockGrantRepo.Delete")
}

// ListSharedWith implements the interface method for testing.
func (m *MockGrantRepo) ListSharedWith(ctx context.Context, granteeID string) ([]domain.SharedSecret, error) {
	if m.ListSharedWithFn != nil {
		return m.ListSharedWithFn(ctx, granteeID)
	}
	panic("unexpected call to MockGrantRepo.ListSharedWith")
}

// ListGrantedBy implements the interface method for testing.
func (m *MockGrantRepo) ListGrantedBy(ctx context.Context, grantedByID string) ([]domain.ShareGrant, error) {
	if m.ListGrantedByFn != nil {
		return m.ListGrantedByFn(ctx, grantedByID)
	}
	panic("unexpected call to MockGrantRepo.ListGrantedBy")
}

// DeleteOrphaned implements the interface method for testing.
func (m *MockGrantRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	if m.DeleteOrphanedFn != nil {
		return m.DeleteOrphanedFn(ctx)
	}
	panic("unexpected call to MockGrantRepo.DeleteOrphaned")
}
