package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	internaldb "keyshelf/internal/db"
	"keyshelf/internal/domain"
)

var _ domain.RoleRepository = (*RoleRepo)(nil)

// RoleRepo stores role assignments in user_roles.
type RoleRepo struct {
	db   *sql.DB
	read *sql.DB
}

// NewRoleRepo creates a new RoleRepo.
func NewRoleRepo(db *sql.DB) *RoleRepo {
	return &RoleRepo{db: db, read: db}
}

// WithReadPool routes reads outside transactions to read. Writes and
// transactional reads stay on the write pool.
func (r *RoleRepo) WithReadPool(read *sql.DB) *RoleRepo {
	if read != nil {
		r.read = read
	}
	return r
}

// GetForPrincipal returns the principal's current role, or RoleNone.
func (r *RoleRepo) GetForPrincipal(ctx context.Context, principalID string) (domain.Role, error) {
	var role string
	err := r.read.QueryRowContext(ctx,
		`SELECT role FROM user_roles WHERE principal_id = ?`, principalID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RoleNone, nil
	}
	if err != nil {
		return domain.RoleNone, fmt.Errorf("get role: %w", err)
	}
	return domain.ParseRole(role)
}

// GetByID returns a role assignment by ID.
func (r *RoleRepo) GetByID(ctx context.Context, id string) (*domain.RoleAssignment, error) {
	a, err := scanAssignment(r.read.QueryRowContext(ctx, `
		SELECT id, principal_id, role, created_at, updated_at FROM user_roles WHERE id = ?
	`, id))
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrNotFound("role assignment %q not found", id)
		}
		return nil, err
	}
	return a, nil
}

// CreateFirstAdministrator inserts an administrator assignment only when the
// tenant has no role assignments at all. The conditional insert runs as one
// statement on the single-connection write pool, and the partial unique index
// on administrator rows backs it up, so concurrent callers see exactly one
// success.
func (r *RoleRepo) CreateFirstAdministrator(ctx context.Context, principalID string) (*domain.RoleAssignment, error) {
	id := domain.NewID()
	ts := now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (id, principal_id, role, created_at, updated_at)
		SELECT ?, ?, 'administrator', ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM user_roles)
	`, id, principalID, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflictKind(domain.ConflictAlreadyInitialized, "an administrator already exists")
		}
		return nil, mapDBError(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrConflictKind(domain.ConflictAlreadyInitialized, "an administrator already exists")
	}
	return r.GetByID(ctx, id)
}

// Create inserts a role assignment for a principal that has none.
func (r *RoleRepo) Create(ctx context.Context, principalID string, role domain.Role) (*domain.RoleAssignment, error) {
	if role != domain.RoleMember && role != domain.RoleAdministrator {
		return nil, domain.ErrValidation("cannot assign role %q", role)
	}
	id := domain.NewID()
	ts := now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (id, principal_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, principalID, role.String(), ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflictKind(domain.ConflictRoleAssigned, "user already has a role")
		}
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, id)
}

// DeleteWithGrants removes the assignment and prunes every grant naming the
// principal as grantee, in one transaction.
func (r *RoleRepo) DeleteWithGrants(ctx context.Context, id string) (int64, error) {
	var pruned int64
	err := internaldb.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var principalID string
		err := tx.QueryRowContext(ctx,
			`SELECT principal_id FROM user_roles WHERE id = ?`, id).Scan(&principalID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound("role assignment %q not found", id)
		}
		if err != nil {
			return fmt.Errorf("lookup role: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM shared_api_keys WHERE shared_with_principal_id = ?`, principalID)
		if err != nil {
			return fmt.Errorf("prune grants: %w", err)
		}
		if pruned, err = rowsAffected(res); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete role: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pruned, nil
}

// List returns all role assignments with principal emails, oldest first.
func (r *RoleRepo) List(ctx context.Context) ([]domain.Member, error) {
	return r.listMembers(ctx, `
		SELECT ur.id, ur.principal_id, p.email, ur.role, ur.created_at
		FROM user_roles ur JOIN principals p ON p.id = ur.principal_id
		ORDER BY ur.created_at, ur.id
	`)
}

// ListByRole returns assignments holding role, oldest first.
func (r *RoleRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.Member, error) {
	return r.listMembers(ctx, `
		SELECT ur.id, ur.principal_id, p.email, ur.role, ur.created_at
		FROM user_roles ur JOIN principals p ON p.id = ur.principal_id
		WHERE ur.role = ?
		ORDER BY ur.created_at, ur.id
	`, role.String())
}

func (r *RoleRepo) listMembers(ctx context.Context, query string, args ...interface{}) ([]domain.Member, error) {
	rows, err := r.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		var (
			m         domain.Member
			role      string
			createdAt string
		)
		if err := rows.Scan(&m.RoleID, &m.PrincipalID, &m.Email, &role, &createdAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		if m.Role, err = domain.ParseRole(role); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanAssignment(row scanner) (*domain.RoleAssignment, error) {
	var (
		a                    domain.RoleAssignment
		role                 string
		createdAt, updatedAt string
	)
	if err := row.Scan(&a.ID, &a.PrincipalID, &role, &createdAt, &updatedAt); err != nil {
		return nil, mapDBError(err)
	}
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	a.Role = parsed
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}
