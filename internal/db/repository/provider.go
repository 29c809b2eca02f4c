package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"keyshelf/internal/domain"
)

var _ domain.ProviderRepository = (*ProviderRepo)(nil)

// ProviderRepo stores providers. Reads go through the active_providers view so
// soft-deleted rows never surface.
type ProviderRepo struct {
	db   *sql.DB
	read *sql.DB
}

// NewProviderRepo creates a new ProviderRepo.
func NewProviderRepo(db *sql.DB) *ProviderRepo {
	return &ProviderRepo{db: db, read: db}
}

// WithReadPool routes reads outside transactions to read. Writes and
// transactional reads stay on the write pool.
func (r *ProviderRepo) WithReadPool(read *sql.DB) *ProviderRepo {
	if read != nil {
		r.read = read
	}
	return r
}

const providerSelect = `
	SELECT p.id, p.owner_id, p.name, p.website_url, p.main_thread_url, p.recharge_url,
	       p.recharge_url_2, p.tier_id, p.remarks, p.requires_daily_login, p.created_at, p.updated_at,
	       t.id, t.owner_id, t.name, t.label, t.description, t.color, t.sort_order, t.created_at, t.updated_at
	FROM active_providers p
	LEFT JOIN tiers t ON t.id = p.tier_id`

// Providers are listed by tier rank, untiered last, then by name.
const providerOrder = ` ORDER BY t.sort_order IS NULL, t.sort_order, p.name, p.id`

// Create inserts a provider owned by ownerID.
func (r *ProviderRepo) Create(ctx context.Context, ownerID string, in domain.ProviderInput) (*domain.Provider, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	id := domain.NewID()
	ts := now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO providers (id, owner_id, name, website_url, main_thread_url, recharge_url,
		                       recharge_url_2, tier_id, remarks, requires_daily_login, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, ownerID, in.Name, in.WebsiteURL, in.MainThreadURL, in.RechargeURL,
		in.RechargeURL2, in.TierID, in.Remarks, boolToInt(in.RequiresDailyLogin), ts, ts)
	if err != nil {
		return nil, mapDBError(err)
	}
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p.Provider, nil
}

// Update replaces the editable fields of an active provider.
func (r *ProviderRepo) Update(ctx context.Context, id string, in domain.ProviderInput) (*domain.Provider, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE providers
		SET name = ?, website_url = ?, main_thread_url = ?, recharge_url = ?, recharge_url_2 = ?,
		    tier_id = ?, remarks = ?, requires_daily_login = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, in.Name, in.WebsiteURL, in.MainThreadURL, in.RechargeURL, in.RechargeURL2,
		in.TierID, in.Remarks, boolToInt(in.RequiresDailyLogin), now(), id)
	if err != nil {
		return nil, mapDBError(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound("provider %q not found", id)
	}
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p.Provider, nil
}

// GetByID returns an active provider with its tier.
func (r *ProviderRepo) GetByID(ctx context.Context, id string) (*domain.ProviderWithTier, error) {
	p, err := scanProvider(r.read.QueryRowContext(ctx, providerSelect+` WHERE p.id = ?`, id))
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrNotFound("provider %q not found", id)
		}
		return nil, err
	}
	return p, nil
}

// List returns every active provider.
func (r *ProviderRepo) List(ctx context.Context) ([]domain.ProviderWithTier, error) {
	return r.list(ctx, providerSelect+providerOrder)
}

// ListByOwner returns the active providers owned by ownerID.
func (r *ProviderRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.ProviderWithTier, error) {
	return r.list(ctx, providerSelect+` WHERE p.owner_id = ?`+providerOrder, ownerID)
}

// ListRequiringDailyLogin returns active providers flagged for daily check-in.
func (r *ProviderRepo) ListRequiringDailyLogin(ctx context.Context) ([]domain.ProviderWithTier, error) {
	return r.list(ctx, providerSelect+` WHERE p.requires_daily_login = 1`+providerOrder)
}

// SoftDelete marks an active provider deleted. Its secret records are left in
// place and drop out of every view with it.
func (r *ProviderRepo) SoftDelete(ctx context.Context, id string) error {
	ts := now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE providers SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, ts, ts, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("provider %q not found", id)
	}
	return nil
}

func (r *ProviderRepo) list(ctx context.Context, query string, args ...interface{}) ([]domain.ProviderWithTier, error) {
	rows, err := r.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var out []domain.ProviderWithTier
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanProvider(row scanner) (*domain.ProviderWithTier, error) {
	var (
		p                          domain.ProviderWithTier
		website, thread, rc1, rc2  sql.NullString
		tierID, remarks            sql.NullString
		dailyLogin                 int64
		createdAt, updatedAt       string
		tID, tOwner, tName, tLabel sql.NullString
		tDesc, tColor              sql.NullString
		tSort                      sql.NullInt64
		tCreatedAt, tUpdatedAt     sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &website, &thread, &rc1,
		&rc2, &tierID, &remarks, &dailyLogin, &createdAt, &updatedAt,
		&tID, &tOwner, &tName, &tLabel, &tDesc, &tColor, &tSort, &tCreatedAt, &tUpdatedAt,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	p.WebsiteURL = nullStr(website)
	p.MainThreadURL = nullStr(thread)
	p.RechargeURL = nullStr(rc1)
	p.RechargeURL2 = nullStr(rc2)
	p.TierID = nullStr(tierID)
	p.Remarks = nullStr(remarks)
	p.RequiresDailyLogin = dailyLogin != 0
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	if tID.Valid {
		p.Tier = &domain.Tier{
			ID:          tID.String,
			OwnerID:     tOwner.String,
			Name:        tName.String,
			Label:       tLabel.String,
			Description: nullStr(tDesc),
			Color:       tColor.String,
			SortOrder:   int(tSort.Int64),
			CreatedAt:   parseTime(tCreatedAt.String),
			UpdatedAt:   parseTime(tUpdatedAt.String),
		}
	}
	return &p, nil
}
