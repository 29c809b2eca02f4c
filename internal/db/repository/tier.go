package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	internaldb "keyshelf/internal/db"
	"keyshelf/internal/domain"
)

var _ domain.TierRepository = (*TierRepo)(nil)

// TierRepo stores tiers.
type TierRepo struct {
	db   *sql.DB
	read *sql.DB
}

// NewTierRepo creates a new TierRepo.
func NewTierRepo(db *sql.DB) *TierRepo {
	return &TierRepo{db: db, read: db}
}

// WithReadPool routes reads outside transactions to read. Writes and
// transactional reads stay on the write pool.
func (r *TierRepo) WithReadPool(read *sql.DB) *TierRepo {
	if read != nil {
		r.read = read
	}
	return r
}

const tierSelect = `SELECT id, owner_id, name, label, description, color, sort_order, created_at, updated_at FROM tiers`

// Create inserts a tier. A name collision yields a DUPLICATE_NAME conflict.
func (r *TierRepo) Create(ctx context.Context, ownerID string, in domain.TierInput) (*domain.Tier, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	id := domain.NewID()
	if err := insertTier(ctx, r.db, id, ownerID, in); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// CreateMany inserts tiers in one transaction; either all are created or none.
func (r *TierRepo) CreateMany(ctx context.Context, ownerID string, in []domain.TierInput) error {
	return internaldb.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for i := range in {
			if err := in[i].Validate(); err != nil {
				return err
			}
			if err := insertTier(ctx, tx, domain.NewID(), ownerID, in[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertTier(ctx context.Context, db execer, id, ownerID string, in domain.TierInput) error {
	ts := now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO tiers (id, owner_id, name, label, description, color, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, ownerID, in.Name, in.Label, in.Description, in.Color, in.SortOrder, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflictKind(domain.ConflictDuplicateName, "tier name %q already exists", in.Name)
		}
		return mapDBError(err)
	}
	return nil
}

// Update replaces the editable fields of a tier.
func (r *TierRepo) Update(ctx context.Context, id string, in domain.TierInput) (*domain.Tier, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tiers SET name = ?, label = ?, description = ?, color = ?, sort_order = ?, updated_at = ?
		WHERE id = ?
	`, in.Name, in.Label, in.Description, in.Color, in.SortOrder, now(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflictKind(domain.ConflictDuplicateName, "tier name %q already exists", in.Name)
		}
		return nil, mapDBError(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound("tier %q not found", id)
	}
	return r.GetByID(ctx, id)
}

// GetByID returns a tier by ID.
func (r *TierRepo) GetByID(ctx context.Context, id string) (*domain.Tier, error) {
	t, err := scanTier(r.read.QueryRowContext(ctx, tierSelect+` WHERE id = ?`, id))
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrNotFound("tier %q not found", id)
		}
		return nil, err
	}
	return t, nil
}

// GetByName returns a tier by its unique name.
func (r *TierRepo) GetByName(ctx context.Context, name string) (*domain.Tier, error) {
	t, err := scanTier(r.read.QueryRowContext(ctx, tierSelect+` WHERE name = ?`, name))
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrNotFound("tier %q not found", name)
		}
		return nil, err
	}
	return t, nil
}

// List returns all tiers by sort order.
func (r *TierRepo) List(ctx context.Context) ([]domain.Tier, error) {
	rows, err := r.read.QueryContext(ctx, tierSelect+` ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()

	var out []domain.Tier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Count returns the number of tiers.
func (r *TierRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.read.QueryRowContext(ctx, `SELECT COUNT(*) FROM tiers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tiers: %w", err)
	}
	return n, nil
}

// DeleteUnreferenced deletes a tier unless an active provider still references
// it. Soft-deleted providers pointing at the tier have their tier_id cleared in
// the same transaction so the foreign key does not block the delete. That is
// the one write a soft-deleted row ever receives: its other columns, its
// deleted_at, and the secrets referencing it are left untouched, and the tier
// it named no longer exists to be referenced.
func (r *TierRepo) DeleteUnreferenced(ctx context.Context, id string) error {
	return internaldb.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var active int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM active_providers WHERE tier_id = ?`, id).Scan(&active); err != nil {
			return fmt.Errorf("count tier references: %w", err)
		}
		if active > 0 {
			return domain.ErrReferentialConflict("tier is referenced by %d active provider(s)", active)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE providers SET tier_id = NULL WHERE tier_id = ? AND deleted_at IS NOT NULL
		`, id); err != nil {
			return fmt.Errorf("detach deleted providers: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM tiers WHERE id = ?`, id)
		if err != nil {
			return mapDBError(err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound("tier %q not found", id)
		}
		return nil
	})
}

func scanTier(row scanner) (*domain.Tier, error) {
	var (
		t                    domain.Tier
		desc                 sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Label, &desc, &t.Color, &t.SortOrder, &createdAt, &updatedAt); err != nil {
		return nil, mapDBError(err)
	}
	t.Description = nullStr(desc)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}
