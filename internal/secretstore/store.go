// Package secretstore implements domain.SecretStore: values are sealed with
// AES-256-GCM bound to their handle and persisted through a Backend.
package secretstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"keyshelf/internal/db/crypto"
	"keyshelf/internal/domain"
)

// ErrHandleNotFound is returned by a Backend when no value exists for a handle.
var ErrHandleNotFound = errors.New("secret handle not found")

// Backend is the ciphertext persistence interface used by Store. Backends
// never see plaintext.
type Backend interface {
	Save(ctx context.Context, handle domain.SecretHandle, ciphertext string) error
	Load(ctx context.Context, handle domain.SecretHandle) (string, error)
	Remove(ctx context.Context, handle domain.SecretHandle) error
}

var _ domain.SecretStore = (*Store)(nil)

// Store seals plaintext before handing it to a Backend.
type Store struct {
	backend Backend
	enc     *crypto.Encryptor
	logger  *slog.Logger
}

// New creates a Store over backend using enc for sealing.
func New(backend Backend, enc *crypto.Encryptor, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, enc: enc, logger: logger.With("component", "secretstore")}
}

// Put seals plaintext under a fresh handle.
func (s *Store) Put(ctx context.Context, plaintext string) (domain.SecretHandle, error) {
	handle := domain.SecretHandle(domain.NewID())
	sealed, err := s.enc.Seal(plaintext, []byte(handle))
	if err != nil {
		return "", fmt.Errorf("seal secret: %w", err)
	}
	if err := s.backend.Save(ctx, handle, sealed); err != nil {
		return "", fmt.Errorf("save secret: %w", err)
	}
	return handle, nil
}

// Get opens the value stored under handle. Requests without a caller identity
// are refused before the backend is touched.
func (s *Store) Get(ctx context.Context, handle domain.SecretHandle, caller domain.ContextPrincipal) (string, error) {
	if caller.ID == "" {
		return "", domain.ErrAccessDenied("secret store requires a caller identity")
	}
	sealed, err := s.backend.Load(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("load secret: %w", err)
	}
	plaintext, err := s.enc.Open(sealed, []byte(handle))
	if err != nil {
		s.logger.ErrorContext(ctx, "secret failed integrity check", "handle", string(handle))
		return "", fmt.Errorf("open secret: %w", err)
	}
	return plaintext, nil
}

// Delete removes the value stored under handle. Missing handles are not an error.
func (s *Store) Delete(ctx context.Context, handle domain.SecretHandle) error {
	if err := s.backend.Remove(ctx, handle); err != nil && !errors.Is(err, ErrHandleNotFound) {
		return fmt.Errorf("remove secret: %w", err)
	}
	return nil
}
