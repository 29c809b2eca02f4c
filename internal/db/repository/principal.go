package repository

import (
	"context"
	"database/sql"
	"errors"

	"keyshelf/internal/domain"
)

var _ domain.PrincipalRepository = (*PrincipalRepo)(nil)

// PrincipalRepo stores identities provisioned from the identity provider.
type PrincipalRepo struct {
	db   *sql.DB
	read *sql.DB
}

// NewPrincipalRepo creates a new PrincipalRepo.
func NewPrincipalRepo(db *sql.DB) *PrincipalRepo {
	return &PrincipalRepo{db: db, read: db}
}

// WithReadPool routes reads outside transactions to read. Writes and
// transactional reads stay on the write pool.
func (r *PrincipalRepo) WithReadPool(read *sql.DB) *PrincipalRepo {
	if read != nil {
		r.read = read
	}
	return r
}

const principalColumns = `id, email, display_name, external_id, external_issuer, created_at`

// ResolveOrProvision returns the principal bound to (issuer, external_id),
// creating it on first sight. An existing row with the same email but no
// external binding is not possible, since rows are only created here.
func (r *PrincipalRepo) ResolveOrProvision(ctx context.Context, req domain.ResolveOrProvisionRequest) (*domain.Principal, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := r.getOne(ctx, `SELECT `+principalColumns+` FROM principals
		WHERE external_issuer = ? AND external_id = ?`, req.Issuer, req.ExternalID)
	if err == nil {
		return p, nil
	}
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		return nil, err
	}

	id := domain.NewID()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO principals (id, email, display_name, external_id, external_issuer, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_issuer, external_id) DO NOTHING
	`, id, req.Email, req.DisplayName, req.ExternalID, req.Issuer, now())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict("email %q is bound to another identity", req.Email)
		}
		return nil, mapDBError(err)
	}

	return r.getOne(ctx, `SELECT `+principalColumns+` FROM principals
		WHERE external_issuer = ? AND external_id = ?`, req.Issuer, req.ExternalID)
}

// GetByID returns a principal by ID.
func (r *PrincipalRepo) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	p, err := r.getOne(ctx, `SELECT `+principalColumns+` FROM principals WHERE id = ?`, id)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrNotFound("principal %q not found", id)
		}
		return nil, err
	}
	return p, nil
}

// GetByEmail returns a principal by its lowercased email.
func (r *PrincipalRepo) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	p, err := r.getOne(ctx, `SELECT `+principalColumns+` FROM principals WHERE email = lower(?)`, email)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrNotFound("no user with email %q", email)
		}
		return nil, err
	}
	return p, nil
}

func (r *PrincipalRepo) getOne(ctx context.Context, query string, args ...interface{}) (*domain.Principal, error) {
	var (
		p         domain.Principal
		createdAt string
	)
	err := r.read.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.Email, &p.DisplayName, &p.ExternalID, &p.ExternalIssuer, &createdAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}
