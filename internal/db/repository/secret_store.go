package repository

import (
	"context"
	"database/sql"
	"errors"

	"graphable/internal/domain"
)

var _ domain.SecretStoreRepository = (*SecretStoreRepo)(nil)

// SecretStoreRepo keeps sealed secret payloads, one row per version.
type SecretStoreRepo struct {
	db *sql.DB
}

// NewSecretStoreRepo creates a new SecretStoreRepo.
func NewSecretStoreRepo(db *sql.DB) *SecretStoreRepo {
	return &SecretStoreRepo{db: db}
}

// Put stores a new version. Versions are immutable.
func (r *SecretStoreRepo) Put(ctx context.Context, name, version, ciphertext string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO secrets (name, version, ciphertext, created_at) VALUES (?, ?, ?, ?)
	`, name, version, ciphertext, nowUTC())
	return mapDBError(err)
}

// Get returns the sealed payload for name at version, or the latest version
// when version is empty.
func (r *SecretStoreRepo) Get(ctx context.Context, name, version string) (string, string, error) {
	var row *sql.Row
	if version == "" {
		row = r.db.QueryRowContext(ctx, `
			SELECT ciphertext, version FROM secrets WHERE name = ?
			ORDER BY created_at DESC, rowid DESC LIMIT 1
		`, name)
	} else {
		row = r.db.QueryRowContext(ctx, `
			SELECT ciphertext, version FROM secrets WHERE name = ? AND version = ?
		`, name, version)
	}

	var ciphertext, resolved string
	if err := row.Scan(&ciphertext, &resolved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", domain.ErrNotFound("secret %q not found", name)
		}
		return "", "", err
	}
	return ciphertext, resolved, nil
}
