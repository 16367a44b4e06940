package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"graphable/internal/domain"
)

var _ domain.GraphRepository = (*GraphRepo)(nil)

// GraphRepo stores graph definitions as JSON documents.
type GraphRepo struct {
	docs docTable
}

// NewGraphRepo creates a new GraphRepo.
func NewGraphRepo(db *sql.DB) *GraphRepo {
	return &GraphRepo{docs: docTable{db: db, table: "graphs", kind: "graph"}}
}

// Save creates or replaces a graph. A missing ID is generated.
func (r *GraphRepo) Save(ctx context.Context, g *domain.Graph) (*domain.Graph, error) {
	if g == nil {
		return nil, domain.ErrValidation("graph is required")
	}
	if g.ID == "" {
		g.ID = domain.NewID()
	}
	now := nowUTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	def, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("marshal graph: %w", err)
	}
	if err := r.docs.upsert(ctx, g.ID, g.WorkspaceID, g.Name, string(def), g.CreatedAt, g.UpdatedAt); err != nil {
		return nil, err
	}
	return r.Get(ctx, g.WorkspaceID, g.ID)
}

// Get returns a graph by workspace and ID.
func (r *GraphRepo) Get(ctx context.Context, workspaceID, id string) (*domain.Graph, error) {
	row, err := r.docs.get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	return decodeGraph(workspaceID, row)
}

// List returns a page of graphs ordered by name.
func (r *GraphRepo) List(ctx context.Context, workspaceID string, page domain.PageRequest) ([]domain.Graph, int64, error) {
	rows, total, err := r.docs.list(ctx, workspaceID, page)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Graph, 0, len(rows))
	for i := range rows {
		g, err := decodeGraph(workspaceID, &rows[i])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *g)
	}
	return out, total, nil
}

// Delete removes a graph.
func (r *GraphRepo) Delete(ctx context.Context, workspaceID, id string) error {
	return r.docs.delete(ctx, workspaceID, id)
}

func decodeGraph(workspaceID string, row *docRow) (*domain.Graph, error) {
	var g domain.Graph
	if err := json.Unmarshal([]byte(row.definition), &g); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}
	g.WorkspaceID = workspaceID
	g.CreatedAt = row.createdAt
	g.UpdatedAt = row.updatedAt
	return &g, nil
}
