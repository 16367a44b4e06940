package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"graphable/internal/domain"
)

var _ domain.DataSourceRepository = (*DataSourceRepo)(nil)

// DataSourceRepo stores data source records.
type DataSourceRepo struct {
	db *sql.DB
}

// NewDataSourceRepo creates a new DataSourceRepo.
func NewDataSourceRepo(db *sql.DB) *DataSourceRepo {
	return &DataSourceRepo{db: db}
}

// Save creates or updates a data source.
func (r *DataSourceRepo) Save(ctx context.Context, ds *domain.DataSource) (*domain.DataSource, error) {
	if ds == nil {
		return nil, domain.ErrValidation("data source is required")
	}
	if ds.ID == "" {
		ds.ID = domain.NewID()
	}
	now := nowUTC()
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = now
	}
	ds.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO data_sources (id, workspace_id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			updated_at = excluded.updated_at
		WHERE data_sources.workspace_id = excluded.workspace_id
	`, ds.ID, ds.WorkspaceID, ds.Name, ds.Description, ds.CreatedAt, ds.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.Get(ctx, ds.WorkspaceID, ds.ID)
}

// Get returns a data source by workspace and ID.
func (r *DataSourceRepo) Get(ctx context.Context, workspaceID, id string) (*domain.DataSource, error) {
	var ds domain.DataSource
	err := r.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, description, created_at, updated_at
		FROM data_sources WHERE workspace_id = ? AND id = ?
	`, workspaceID, id).Scan(&ds.ID, &ds.WorkspaceID, &ds.Name, &ds.Description, &ds.CreatedAt, &ds.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("data source %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// List returns a page of data sources ordered by name.
func (r *DataSourceRepo) List(ctx context.Context, workspaceID string, page domain.PageRequest) ([]domain.DataSource, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM data_sources WHERE workspace_id = ?`, workspaceID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, description, created_at, updated_at
		FROM data_sources WHERE workspace_id = ?
		ORDER BY name
		LIMIT ? OFFSET ?
	`, workspaceID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.DataSource
	for rows.Next() {
		var ds domain.DataSource
		if err := rows.Scan(&ds.ID, &ds.WorkspaceID, &ds.Name, &ds.Description, &ds.CreatedAt, &ds.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, ds)
	}
	return out, total, rows.Err()
}

// Delete removes a data source and, through the foreign key, its secret
// reference.
func (r *DataSourceRepo) Delete(ctx context.Context, workspaceID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM data_sources WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound("data source %q not found", id)
	}
	return nil
}
