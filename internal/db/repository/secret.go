package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"keyshelf/internal/domain"
)

var _ domain.SecretRepository = (*SecretRepo)(nil)

// SecretRepo stores secret records in api_keys. Reads go through the
// active_api_keys view.
type SecretRepo struct {
	db   *sql.DB
	read *sql.DB
}

// NewSecretRepo creates a new SecretRepo.
func NewSecretRepo(db *sql.DB) *SecretRepo {
	return &SecretRepo{db: db, read: db}
}

// WithReadPool routes reads outside transactions to read. Writes and
// transactional reads stay on the write pool.
func (r *SecretRepo) WithReadPool(read *sql.DB) *SecretRepo {
	if read != nil {
		r.read = read
	}
	return r
}

const secretColumns = `k.id, k.owner_id, k.provider_id, k.label, k.key_prefix, k.secret_handle, k.created_at, k.updated_at`

// Create inserts a secret record. Handle and prefix must already be set.
func (r *SecretRepo) Create(ctx context.Context, rec *domain.SecretRecord) (*domain.SecretRecord, error) {
	if rec == nil {
		return nil, domain.ErrValidation("secret record is required")
	}
	if rec.Handle == "" {
		return nil, domain.ErrValidation("secret handle is required")
	}
	if rec.ID == "" {
		rec.ID = domain.NewID()
	}
	ts := now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, owner_id, provider_id, label, secret_handle, key_prefix, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.OwnerID, rec.ProviderID, rec.Label, string(rec.Handle), rec.KeyPrefix, ts, ts)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetOwned(ctx, rec.ID, rec.OwnerID)
}

// GetOwned returns an active record owned by ownerID.
func (r *SecretRepo) GetOwned(ctx context.Context, id, ownerID string) (*domain.SecretRecord, error) {
	rec, err := scanSecret(r.read.QueryRowContext(ctx, `
		SELECT `+secretColumns+` FROM active_api_keys k WHERE k.id = ? AND k.owner_id = ?
	`, id, ownerID))
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrNotFound("api key %q not found", id)
		}
		return nil, err
	}
	return rec, nil
}

// FindRevealable resolves the record and the caller's right to it in one read:
// the record must be active and the caller must own it or hold a grant for it.
func (r *SecretRepo) FindRevealable(ctx context.Context, id, callerID string) (*domain.SecretRecord, error) {
	return scanSecret(r.read.QueryRowContext(ctx, `
		SELECT `+secretColumns+`
		FROM active_api_keys k
		WHERE k.id = ?
		  AND (k.owner_id = ? OR EXISTS (
		        SELECT 1 FROM shared_api_keys s
		        WHERE s.api_key_id = k.id AND s.shared_with_principal_id = ?))
	`, id, callerID, callerID))
}

// ListForProvider returns ownerID's active records on an active provider, newest first.
func (r *SecretRepo) ListForProvider(ctx context.Context, ownerID, providerID string) ([]domain.SecretRecord, error) {
	rows, err := r.read.QueryContext(ctx, `
		SELECT `+secretColumns+`
		FROM active_api_keys k
		JOIN active_providers p ON p.id = k.provider_id
		WHERE k.owner_id = ? AND k.provider_id = ?
		ORDER BY k.created_at DESC, k.id DESC
	`, ownerID, providerID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var out []domain.SecretRecord
	for rows.Next() {
		rec, err := scanSecret(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// ListByOwner returns ownerID's active records on active providers with the
// provider name, newest first.
func (r *SecretRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.SecretWithProvider, error) {
	rows, err := r.read.QueryContext(ctx, `
		SELECT `+secretColumns+`, p.name
		FROM active_api_keys k
		JOIN active_providers p ON p.id = k.provider_id
		WHERE k.owner_id = ?
		ORDER BY k.created_at DESC, k.id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var out []domain.SecretWithProvider
	for rows.Next() {
		var (
			s                    domain.SecretWithProvider
			handle               string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.ProviderID, &s.Label, &s.KeyPrefix, &handle,
			&createdAt, &updatedAt, &s.ProviderName); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		s.Handle = domain.SecretHandle(handle)
		s.CreatedAt = parseTime(createdAt)
		s.UpdatedAt = parseTime(updatedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateLabel renames an active record owned by ownerID.
func (r *SecretRepo) UpdateLabel(ctx context.Context, id, ownerID, label string) (*domain.SecretRecord, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE api_keys SET label = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND deleted_at IS NULL
	`, label, now(), id, ownerID)
	if err != nil {
		return nil, mapDBError(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound("api key %q not found", id)
	}
	return r.GetOwned(ctx, id, ownerID)
}

// SoftDelete marks an active record owned by ownerID deleted. The secret store
// entry and any grants are left untouched.
func (r *SecretRepo) SoftDelete(ctx context.Context, id, ownerID string) error {
	ts := now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE api_keys SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND deleted_at IS NULL
	`, ts, ts, id, ownerID)
	if err != nil {
		return mapDBError(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("api key %q not found", id)
	}
	return nil
}

func scanSecret(row scanner) (*domain.SecretRecord, error) {
	var (
		rec                  domain.SecretRecord
		handle               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.ProviderID, &rec.Label, &rec.KeyPrefix, &handle,
		&createdAt, &updatedAt); err != nil {
		return nil, mapDBError(err)
	}
	rec.Handle = domain.SecretHandle(handle)
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}
