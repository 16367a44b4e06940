// Package repository implements domain repository interfaces using SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"graphable/internal/domain"
)

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &domain.ConflictError{Message: "resource already exists"}
	}
	return err
}

func errorsContain(err error, substr string) bool {
	return err != nil && strings.Contains(err.Error(), substr)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// docTable stores workspace-scoped JSON documents keyed by id.
type docTable struct {
	db    *sql.DB
	table string
	kind  string
}

type docRow struct {
	definition string
	createdAt  time.Time
	updatedAt  time.Time
}

func (t docTable) upsert(ctx context.Context, id, workspaceID, name, definition string, createdAt, updatedAt time.Time) error {
	//nolint:gosec // table name is a package constant
	_, err := t.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, workspace_id, name, definition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			definition = excluded.definition,
			updated_at = excluded.updated_at
		WHERE %s.workspace_id = excluded.workspace_id
	`, t.table, t.table), id, workspaceID, name, definition, createdAt, updatedAt)
	return mapDBError(err)
}

func (t docTable) get(ctx context.Context, workspaceID, id string) (*docRow, error) {
	var row docRow
	//nolint:gosec // table name is a package constant
	err := t.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT definition, created_at, updated_at FROM %s WHERE workspace_id = ? AND id = ?
	`, t.table), workspaceID, id).Scan(&row.definition, &row.createdAt, &row.updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("%s %q not found", t.kind, id)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (t docTable) list(ctx context.Context, workspaceID string, page domain.PageRequest) ([]docRow, int64, error) {
	var total int64
	//nolint:gosec // table name is a package constant
	if err := t.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE workspace_id = ?`, t.table), workspaceID).Scan(&total); err != nil {
		return nil, 0, err
	}

	//nolint:gosec // table name is a package constant
	rows, err := t.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT definition, created_at, updated_at FROM %s
		WHERE workspace_id = ?
		ORDER BY name
		LIMIT ? OFFSET ?
	`, t.table), workspaceID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close() //nolint:errcheck

	var out []docRow
	for rows.Next() {
		var row docRow
		if err := rows.Scan(&row.definition, &row.createdAt, &row.updatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

func (t docTable) delete(ctx context.Context, workspaceID, id string) error {
	//nolint:gosec // table name is a package constant
	res, err := t.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE workspace_id = ? AND id = ?`, t.table), workspaceID, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound("%s %q not found", t.kind, id)
	}
	return nil
}
