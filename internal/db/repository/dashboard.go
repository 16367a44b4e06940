package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"graphable/internal/domain"
)

var _ domain.DashboardRepository = (*DashboardRepo)(nil)

// DashboardRepo stores dashboard definitions as JSON documents.
type DashboardRepo struct {
	docs docTable
}

// NewDashboardRepo creates a new DashboardRepo.
func NewDashboardRepo(db *sql.DB) *DashboardRepo {
	return &DashboardRepo{docs: docTable{db: db, table: "dashboards", kind: "dashboard"}}
}

// Save creates or replaces a dashboard.
func (r *DashboardRepo) Save(ctx context.Context, d *domain.Dashboard) (*domain.Dashboard, error) {
	if d == nil {
		return nil, domain.ErrValidation("dashboard is required")
	}
	if d.ID == "" {
		d.ID = domain.NewID()
	}
	now := nowUTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	def, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal dashboard: %w", err)
	}
	if err := r.docs.upsert(ctx, d.ID, d.WorkspaceID, d.Name, string(def), d.CreatedAt, d.UpdatedAt); err != nil {
		return nil, err
	}
	return r.Get(ctx, d.WorkspaceID, d.ID)
}

// Get returns a dashboard by workspace and ID.
func (r *DashboardRepo) Get(ctx context.Context, workspaceID, id string) (*domain.Dashboard, error) {
	row, err := r.docs.get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	return decodeDashboard(workspaceID, row)
}

// List returns a page of dashboards ordered by name.
func (r *DashboardRepo) List(ctx context.Context, workspaceID string, page domain.PageRequest) ([]domain.Dashboard, int64, error) {
	rows, total, err := r.docs.list(ctx, workspaceID, page)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Dashboard, 0, len(rows))
	for i := range rows {
		d, err := decodeDashboard(workspaceID, &rows[i])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, nil
}

// Delete removes a dashboard.
func (r *DashboardRepo) Delete(ctx context.Context, workspaceID, id string) error {
	return r.docs.delete(ctx, workspaceID, id)
}

func decodeDashboard(workspaceID string, row *docRow) (*domain.Dashboard, error) {
	var d domain.Dashboard
	if err := json.Unmarshal([]byte(row.definition), &d); err != nil {
		return nil, fmt.Errorf("unmarshal dashboard: %w", err)
	}
	d.WorkspaceID = workspaceID
	d.CreatedAt = row.createdAt
	d.UpdatedAt = row.updatedAt
	return &d, nil
}
