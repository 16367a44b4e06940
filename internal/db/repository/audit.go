package repository

import (
	"context"
	"database/sql"
	"strings"

	"graphable/internal/domain"
)

var _ domain.AuditRepository = (*AuditRepo)(nil)

// AuditRepo records execution audit entries.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Insert appends an entry.
func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = nowUTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, principal_name, workspace_id, action, target, status,
		                       error_message, duration_ms, rows_returned, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.PrincipalName, e.WorkspaceID, e.Action, e.Target, e.Status,
		e.ErrorMessage, e.DurationMs, e.RowsReturned, e.CreatedAt)
	return mapDBError(err)
}

// List returns matching entries, newest first.
func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	var (
		conds []string
		args  []any
	)
	if filter.WorkspaceID != nil {
		conds = append(conds, "workspace_id = ?")
		args = append(args, *filter.WorkspaceID)
	}
	if filter.Action != nil {
		conds = append(conds, "action = ?")
		args = append(args, *filter.Action)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, principal_name, workspace_id, action, target, status,
		       error_message, duration_ms, rows_returned, created_at
		FROM audit_log`+where+`
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, append(args, filter.Page.Limit(), filter.Page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e        domain.AuditEntry
			errMsg   sql.NullString
			duration sql.NullInt64
			returned sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.PrincipalName, &e.WorkspaceID, &e.Action, &e.Target, &e.Status,
			&errMsg, &duration, &returned, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if errMsg.Valid {
			e.ErrorMessage = &errMsg.String
		}
		if duration.Valid {
			e.DurationMs = &duration.Int64
		}
		if returned.Valid {
			e.RowsReturned = &returned.Int64
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
