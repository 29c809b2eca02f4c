package domain

import "context"

// SecretStore is the narrow capability interface over the encrypted secret
// backend. Implementations live in internal/secretstore; the vault service
// never sees ciphertext or key material.
type SecretStore interface {
	// Put encrypts plaintext and returns a fresh opaque handle.
	Put(ctx context.Context, plaintext string) (SecretHandle, error)
	// Get returns the plaintext for handle on behalf of caller. It denies
	// requests without a caller identity.
	Get(ctx context.Context, handle SecretHandle, caller ContextPrincipal) (string, error)
	// Delete removes a handle. Only used to discard a handle whose record
	// could not be persisted.
	Delete(ctx context.Context, handle SecretHandle) error
}
