package repository

import (
	"context"
	"database/sql"
	"fmt"

	"keyshelf/internal/domain"
)

var _ domain.GrantRepository = (*GrantRepo)(nil)

// GrantRepo stores share grants in shared_api_keys.
type GrantRepo struct {
	db   *sql.DB
	read *sql.DB
}

// NewGrantRepo creates a new GrantRepo.
func NewGrantRepo(db *sql.DB) *GrantRepo {
	return &GrantRepo{db: db, read: db}
}

// WithReadPool routes reads outside transactions to read. Writes and
// transactional reads stay on the write pool.
func (r *GrantRepo) WithReadPool(read *sql.DB) *GrantRepo {
	if read != nil {
		r.read = read
	}
	return r
}

// Create inserts a grant. The (secret, grantee) unique constraint turns a
// concurrent duplicate into an ALREADY_SHARED conflict.
func (r *GrantRepo) Create(ctx context.Context, g *domain.ShareGrant) (*domain.ShareGrant, error) {
	if g == nil {
		return nil, domain.ErrValidation("grant is required")
	}
	if g.ID == "" {
		g.ID = domain.NewID()
	}
	ts := now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shared_api_keys (id, api_key_id, shared_with_principal_id, shared_by_principal_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, g.ID, g.SecretID, g.GranteeID, g.GrantedByID, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflictKind(domain.ConflictAlreadyShared, "api key is already shared with this user")
		}
		return nil, mapDBError(err)
	}
	out := *g
	out.CreatedAt = parseTime(ts)
	return &out, nil
}

// Exists reports whether a grant exists for the pair.
func (r *GrantRepo) Exists(ctx context.Context, secretID, granteeID string) (bool, error) {
	var n int64
	err := r.read.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM shared_api_keys WHERE api_key_id = ? AND shared_with_principal_id = ?
	`, secretID, granteeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check grant: %w", err)
	}
	return n > 0, nil
}

// Delete removes the grant for the pair if grantedByID created it. It returns
// the number of rows removed; zero is not an error.
func (r *GrantRepo) Delete(ctx context.Context, secretID, granteeID, grantedByID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM shared_api_keys
		WHERE api_key_id = ? AND shared_with_principal_id = ? AND shared_by_principal_id = ?
	`, secretID, granteeID, grantedByID)
	if err != nil {
		return 0, mapDBError(err)
	}
	return rowsAffected(res)
}

// ListSharedWith returns the live secrets shared with granteeID, by tier rank
// (untiered last) and then by share time.
func (r *GrantRepo) ListSharedWith(ctx context.Context, granteeID string) ([]domain.SharedSecret, error) {
	rows, err := r.read.QueryContext(ctx, `
		SELECT api_key_id, api_key_label, key_prefix, key_created_at, provider_id, provider_name,
		       website_url, provider_remarks, tier_id, tier_name, tier_label, tier_color, tier_sort_order,
		       shared_by_principal_id, shared_at
		FROM active_shared_keys
		WHERE shared_with_principal_id = ?
		ORDER BY tier_sort_order IS NULL, tier_sort_order, shared_at, api_key_id
	`, granteeID)
	if err != nil {
		return nil, fmt.Errorf("list shared keys: %w", err)
	}
	defer rows.Close()

	var out []domain.SharedSecret
	for rows.Next() {
		var (
			s                      domain.SharedSecret
			keyCreatedAt, sharedAt string
			website, remarks       sql.NullString
			tierID, tierName       sql.NullString
			tierLabel, tierColor   sql.NullString
			tierSort               sql.NullInt64
		)
		if err := rows.Scan(&s.SecretID, &s.Label, &s.KeyPrefix, &keyCreatedAt, &s.ProviderID, &s.ProviderName,
			&website, &remarks, &tierID, &tierName, &tierLabel, &tierColor, &tierSort,
			&s.SharedBy, &sharedAt); err != nil {
			return nil, fmt.Errorf("scan shared key: %w", err)
		}
		s.KeyCreatedAt = parseTime(keyCreatedAt)
		s.SharedAt = parseTime(sharedAt)
		s.WebsiteURL = nullStr(website)
		s.ProviderRemarks = nullStr(remarks)
		s.TierID = nullStr(tierID)
		s.TierName = nullStr(tierName)
		s.TierLabel = nullStr(tierLabel)
		s.TierColor = nullStr(tierColor)
		s.TierSortOrder = nullInt(tierSort)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListGrantedBy returns the grants created by grantedByID on active records.
func (r *GrantRepo) ListGrantedBy(ctx context.Context, grantedByID string) ([]domain.ShareGrant, error) {
	rows, err := r.read.QueryContext(ctx, `
		SELECT s.id, s.api_key_id, s.shared_with_principal_id, s.shared_by_principal_id, s.created_at
		FROM shared_api_keys s
		JOIN active_api_keys k ON k.id = s.api_key_id
		WHERE s.shared_by_principal_id = ?
		ORDER BY s.created_at, s.id
	`, grantedByID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var out []domain.ShareGrant
	for rows.Next() {
		var (
			g         domain.ShareGrant
			createdAt string
		)
		if err := rows.Scan(&g.ID, &g.SecretID, &g.GranteeID, &g.GrantedByID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		g.CreatedAt = parseTime(createdAt)
		out = append(out, g)
	}
	return out, rows.Err()
}

// DeleteOrphaned removes grants whose grantee no longer holds the member role.
func (r *GrantRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM shared_api_keys
		WHERE shared_with_principal_id NOT IN (
			SELECT principal_id FROM user_roles WHERE role = 'member'
		)
	`)
	if err != nil {
		return 0, mapDBError(err)
	}
	return rowsAffected(res)
}
