// Package vault implements the secret record lifecycle: storing API keys in the
// secret store, revealing them to their owner or grantees, and soft-deleting them.
package vault

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"keyshelf/internal/domain"
)

// errNotRevealable is the single denial returned for every failed reveal so
// callers cannot distinguish missing, deleted, and unshared secrets.
const errNotRevealable = "not authorized to reveal this secret"

// discardTimeout bounds the cleanup of a handle whose record insert failed.
const discardTimeout = 5 * time.Second

// Service provides secret record operations.
type Service struct {
	secrets   domain.SecretRepository
	providers domain.ProviderRepository
	store     domain.SecretStore
	logger    *slog.Logger
}

// NewService creates a new vault Service.
func NewService(secrets domain.SecretRepository, providers domain.ProviderRepository, store domain.SecretStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		secrets:   secrets,
		providers: providers,
		store:     store,
		logger:    logger.With("component", "vault"),
	}
}

// Create stores the plaintext in the secret store and persists a record
// owned by the caller that references it by handle.
func (s *Service) Create(ctx context.Context, req domain.CreateSecretRequest) (*domain.SecretRecord, error) {
	caller, err := domain.CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.providers.GetByID(ctx, req.ProviderID); err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrValidation("provider not found")
		}
		return nil, err
	}

	handle, err := s.store.Put(ctx, req.Plaintext)
	if err != nil {
		s.logger.ErrorContext(ctx, "secret store write failed", "error", err)
		return nil, domain.ErrVaultWrite(err)
	}

	rec, err := s.secrets.Create(ctx, &domain.SecretRecord{
		OwnerID:    caller.ID,
		ProviderID: req.ProviderID,
		Label:      req.Label,
		KeyPrefix:  domain.KeyPrefix(req.Plaintext),
		Handle:     handle,
	})
	if err != nil {
		s.discardHandle(ctx, handle)
		return nil, err
	}

	s.logger.InfoContext(ctx, "secret created",
		"secret_id", rec.ID,
		"provider_id", rec.ProviderID,
		"owner_id", caller.ID,
	)
	return rec, nil
}

// discardHandle removes a handle whose record was never persisted. It runs
// even when ctx is already cancelled or past its deadline.
func (s *Service) discardHandle(ctx context.Context, handle domain.SecretHandle) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	if err := s.store.Delete(cleanupCtx, handle); err != nil {
		s.logger.WarnContext(ctx, "discard orphaned secret handle failed", "error", err)
	}
}

// Reveal returns the plaintext of an active secret the caller owns or has been
// granted. Every authorization failure yields the same AccessDeniedError.
func (s *Service) Reveal(ctx context.Context, secretID string) (string, error) {
	caller, err := domain.CallerFromContext(ctx)
	if err != nil {
		return "", err
	}

	rec, err := s.secrets.FindRevealable(ctx, strings.TrimSpace(secretID), caller.ID)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return "", domain.ErrAccessDenied(errNotRevealable)
		}
		return "", err
	}

	plaintext, err := s.store.Get(ctx, rec.Handle, caller)
	if err != nil {
		s.logger.ErrorContext(ctx, "secret store read failed", "secret_id", rec.ID, "error", err)
		return "", domain.ErrVaultRead(err)
	}

	s.logger.InfoContext(ctx, "secret revealed", "secret_id", rec.ID, "caller_id", caller.ID)
	return plaintext, nil
}

// Delete soft-deletes a secret owned by the caller. The stored value and any
// grants are left in place; they stop resolving because every read filters
// deleted records.
func (s *Service) Delete(ctx context.Context, secretID string) error {
	caller, err := domain.CallerFromContext(ctx)
	if err != nil {
		return err
	}
	if err := s.secrets.SoftDelete(ctx, secretID, caller.ID); err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return domain.ErrAccessDenied("not authorized to delete this secret")
		}
		return err
	}
	s.logger.InfoContext(ctx, "secret deleted", "secret_id", secretID, "owner_id", caller.ID)
	return nil
}

// UpdateLabel renames a secret owned by the caller.
func (s *Service) UpdateLabel(ctx context.Context, secretID, label string) (*domain.SecretRecord, error) {
	caller, err := domain.CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, domain.ErrValidation("label is required")
	}
	rec, err := s.secrets.UpdateLabel(ctx, secretID, caller.ID, label)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrAccessDenied("not authorized to update this secret")
		}
		return nil, err
	}
	return rec, nil
}

// ListForProvider returns the caller's active secrets on an active provider,
// newest first.
func (s *Service) ListForProvider(ctx context.Context, providerID string) ([]domain.SecretRecord, error) {
	caller, err := domain.CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.secrets.ListForProvider(ctx, caller.ID, providerID)
}

// ListAll returns the caller's active secrets with their provider names.
func (s *Service) ListAll(ctx context.Context) ([]domain.SecretWithProvider, error) {
	caller, err := domain.CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.secrets.ListByOwner(ctx, caller.ID)
}
