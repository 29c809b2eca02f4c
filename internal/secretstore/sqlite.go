package secretstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	internaldb "keyshelf/internal/db"
	"keyshelf/internal/domain"
)

var _ Backend = (*SQLiteBackend)(nil)

// SQLiteBackend keeps ciphertext in the vault_secrets table of the main database.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend creates a backend over db. The schema comes from the
// embedded migrations.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

// Save inserts ciphertext under handle. Handles are write-once.
func (b *SQLiteBackend) Save(ctx context.Context, handle domain.SecretHandle, ciphertext string) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO vault_secrets (handle, ciphertext, created_at) VALUES (?, ?, ?)
	`, string(handle), ciphertext, internaldb.Now())
	if err != nil {
		return fmt.Errorf("insert vault secret: %w", err)
	}
	return nil
}

// Load returns the ciphertext stored under handle.
func (b *SQLiteBackend) Load(ctx context.Context, handle domain.SecretHandle) (string, error) {
	var ciphertext string
	err := b.db.QueryRowContext(ctx,
		`SELECT ciphertext FROM vault_secrets WHERE handle = ?`, string(handle)).Scan(&ciphertext)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrHandleNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select vault secret: %w", err)
	}
	return ciphertext, nil
}

// Remove deletes the ciphertext stored under handle.
func (b *SQLiteBackend) Remove(ctx context.Context, handle domain.SecretHandle) error {
	res, err := b.db.ExecContext(ctx, `DELETE FROM vault_secrets WHERE handle = ?`, string(handle))
	if err != nil {
		return fmt.Errorf("delete vault secret: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrHandleNotFound
	}
	return nil
}
