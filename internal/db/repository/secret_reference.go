package repository

import (
	"context"
	"database/sql"
	"errors"

	"graphable/internal/domain"
)

var _ domain.SecretReferenceRepository = (*SecretReferenceRepo)(nil)

// SecretReferenceRepo maps data sources to their secret references.
type SecretReferenceRepo struct {
	db *sql.DB
}

// NewSecretReferenceRepo creates a new SecretReferenceRepo.
func NewSecretReferenceRepo(db *sql.DB) *SecretReferenceRepo {
	return &SecretReferenceRepo{db: db}
}

// Get returns the secret reference for a data source.
func (r *SecretReferenceRepo) Get(ctx context.Context, workspaceID, dataSourceID string) (*domain.SecretReference, error) {
	var ref domain.SecretReference
	err := r.db.QueryRowContext(ctx, `
		SELECT provider, vault_url, secret_name, version
		FROM secret_references WHERE workspace_id = ? AND data_source_id = ?
	`, workspaceID, dataSourceID).Scan(&ref.Provider, &ref.VaultURL, &ref.SecretName, &ref.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("secret reference not found")
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// Put creates or replaces the secret reference for a data source. The data
// source must exist.
func (r *SecretReferenceRepo) Put(ctx context.Context, workspaceID, dataSourceID string, ref domain.SecretReference) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO secret_references (workspace_id, data_source_id, provider, vault_url, secret_name, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(workspace_id, data_source_id) DO UPDATE SET
			provider = excluded.provider,
			vault_url = excluded.vault_url,
			secret_name = excluded.secret_name,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, workspaceID, dataSourceID, ref.Provider, ref.VaultURL, ref.SecretName, ref.Version, nowUTC())
	if err != nil && errorsContain(err, "FOREIGN KEY constraint failed") {
		return domain.ErrNotFound("data source %q not found", dataSourceID)
	}
	return mapDBError(err)
}

// Delete removes the secret reference for a data source.
func (r *SecretReferenceRepo) Delete(ctx context.Context, workspaceID, dataSourceID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM secret_references WHERE workspace_id = ? AND data_source_id = ?
	`, workspaceID, dataSourceID)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("secret reference not found")
	}
	return nil
}
