package graph

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"graphable/internal/domain"
)

// ExecuteDashboard runs every tile of a dashboard concurrently. A failing
// tile carries its error message and no data; it never fails the call.
// global overrides the dashboard's stored parameters, and each tile's own
// parameters override both.
func (s *Service) ExecuteDashboard(ctx context.Context, workspaceID, dashboardID string, global map[string]any) (*domain.DashboardResult, error) {
	start := time.Now()
	res, err := s.executeDashboard(ctx, workspaceID, dashboardID, global)
	rows := 0
	if res != nil {
		for _, t := range res.Tiles {
			rows += len(t.Data)
		}
	}
	s.audit.Record(ctx, domain.ActionExecuteDashboard, workspaceID, dashboardID, start, rows, err)
	return res, err
}

func (s *Service) executeDashboard(ctx context.Context, workspaceID, dashboardID string, global map[string]any) (*domain.DashboardResult, error) {
	d, err := s.dashboards.Get(ctx, workspaceID, dashboardID)
	if err != nil {
		return nil, err
	}
	d.WorkspaceID = workspaceID

	merged := *d
	merged.Parameters = make(map[string]any, len(d.Parameters)+len(global))
	for k, v := range d.Parameters {
		merged.Parameters[k] = v
	}
	for k, v := range global {
		merged.Parameters[k] = v
	}

	tiles := make([]domain.TileResult, len(d.Tiles))
	var g errgroup.Group
	if s.cfg.DashboardConcurrency > 0 {
		g.SetLimit(s.cfg.DashboardConcurrency)
	}
	for i, tile := range d.Tiles {
		g.Go(func() error {
			tiles[i] = s.runTile(ctx, &merged, tile)
			return nil
		})
	}
	_ = g.Wait()

	return &domain.DashboardResult{Dashboard: d, Tiles: tiles}, nil
}

func (s *Service) runTile(ctx context.Context, d *domain.Dashboard, tile domain.Tile) (out domain.TileResult) {
	out = domain.TileResult{TileID: tile.ID, GraphRef: tile.GraphRef, Position: tile.Position}

	defer func() {
		if r := recover(); r != nil {
			s.tileFailed(d, tile, fmt.Errorf("tile panicked: %v", r), &out)
		}
	}()

	res, err := s.executeStored(ctx, d.WorkspaceID, tile.GraphRef, d.TileParameters(tile))
	if err != nil {
		s.tileFailed(d, tile, err, &out)
		return out
	}
	out.Data = res.Data
	out.Columns = res.Columns
	return out
}

func (s *Service) tileFailed(d *domain.Dashboard, tile domain.Tile, err error, out *domain.TileResult) {
	s.logger.Warn("dashboard tile failed",
		"dashboard", d.ID,
		"graph", tile.GraphRef,
		"position", tile.Position,
		"error", err,
	)
	out.Data = nil
	out.Columns = nil
	out.Error = err.Error()
}
