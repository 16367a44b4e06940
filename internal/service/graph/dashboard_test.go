package graph

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphable/internal/domain"
	"graphable/internal/testutil"
)

func TestExecuteDashboard_IsolatesTileFailures(t *testing.T) {
	f := newFixture(t, func(_ context.Context, _ domain.ExecuteRequest) (*domain.PagedResult, error) {
		return testutil.Rows([]string{"d", "v"}, map[string]any{"d": "2024-01-01", "v": int64(7)}), nil
	})
	f.graphs["ok"] = &domain.Graph{ID: "ok", Name: "ok", Query: "SELECT d, v FROM t", DataSourceRef: "ds1"}
	f.dashboards["dash"] = &domain.Dashboard{
		ID:   "dash",
		Name: "ops",
		Tiles: []domain.Tile{
			{ID: "t1", GraphRef: "ok", Position: domain.Position{X: 0, Y: 0, W: 6, H: 4}},
			{ID: "t2", GraphRef: "deleted", Position: domain.Position{X: 6, Y: 0, W: 6, H: 4}},
		},
	}

	res, err := f.svc.ExecuteDashboard(context.Background(), "ws1", "dash", nil)
	require.NoError(t, err)
	require.Len(t, res.Tiles, 2)
	assert.Equal(t, "ops", res.Dashboard.Name)

	good, bad := res.Tiles[0], res.Tiles[1]
	assert.Equal(t, "ok", good.GraphRef)
	assert.Empty(t, good.Error)
	assert.Len(t, good.Data, 1)

	assert.Equal(t, "deleted", bad.GraphRef)
	assert.Nil(t, bad.Data)
	assert.NotEmpty(t, bad.Error)
	assert.Equal(t, domain.Position{X: 6, Y: 0, W: 6, H: 4}, bad.Position)

	assert.True(t, f.audit.HasAction(domain.ActionExecuteDashboard))
}

func TestExecuteDashboard_ExecutionErrorStaysOnTile(t *testing.T) {
	f := newFixture(t, func(_ context.Context, req domain.ExecuteRequest) (*domain.PagedResult, error) {
		if req.DataSourceID == "broken" {
			return nil, domain.ErrExecution(errors.New("connection refused"), "connect to data source broken")
		}
		return testutil.Rows([]string{"n"}, map[string]any{"n": int64(1)}), nil
	})
	f.graphs["a"] = &domain.Graph{ID: "a", Name: "a", Query: "SELECT 1 AS n", DataSourceRef: "ds1"}
	f.graphs["b"] = &domain.Graph{ID: "b", Name: "b", Query: "SELECT 1 AS n", DataSourceRef: "broken"}
	f.dashboards["dash"] = &domain.Dashboard{ID: "dash", Name: "d", Tiles: []domain.Tile{{GraphRef: "b"}, {GraphRef: "a"}}}

	res, err := f.svc.ExecuteDashboard(context.Background(), "ws1", "dash", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Tiles[0].Error, "connection refused")
	assert.Empty(t, res.Tiles[1].Error)
	assert.Len(t, res.Tiles[1].Data, 1)
}

func TestExecuteDashboard_ParameterPrecedence(t *testing.T) {
	f := newFixture(t, func(_ context.Context, _ domain.ExecuteRequest) (*domain.PagedResult, error) {
		return testutil.Rows([]string{"n"}), nil
	})
	region := []domain.ParameterDefinition{{Name: "region", Type: domain.ParamString}}
	f.graphs["g"] = &domain.Graph{ID: "g", Name: "g", Query: "SELECT n FROM t WHERE region = :region", DataSourceRef: "ds1", Parameters: region}
	f.dashboards["dash"] = &domain.Dashboard{
		ID:         "dash",
		Name:       "d",
		Parameters: map[string]any{"region": "stored"},
		Tiles: []domain.Tile{
			{ID: "plain", GraphRef: "g"},
			{ID: "override", GraphRef: "g", Parameters: map[string]any{"region": "tile"}},
		},
	}
	f.svc.cfg.DashboardConcurrency = 1

	_, err := f.svc.ExecuteDashboard(context.Background(), "ws1", "dash", map[string]any{"region": "global"})
	require.NoError(t, err)

	var values []any
	for _, r := range f.executor.Requests() {
		values = append(values, r.Params...)
	}
	assert.ElementsMatch(t, []any{"global", "tile"}, values)
}

func TestExecuteDashboard_RunsTilesConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	f := newFixture(t, func(_ context.Context, _ domain.ExecuteRequest) (*domain.PagedResult, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return testutil.Rows([]string{"n"}), nil
	})
	f.graphs["g"] = &domain.Graph{ID: "g", Name: "g", Query: "SELECT 1 AS n", DataSourceRef: "ds1"}
	tiles := make([]domain.Tile, 4)
	for i := range tiles {
		tiles[i] = domain.Tile{GraphRef: "g"}
	}
	f.dashboards["dash"] = &domain.Dashboard{ID: "dash", Name: "d", Tiles: tiles}

	res, err := f.svc.ExecuteDashboard(context.Background(), "ws1", "dash", nil)
	require.NoError(t, err)
	assert.Len(t, res.Tiles, 4)
	assert.Greater(t, peak.Load(), int32(1))
}

func TestExecuteDashboard_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.ExecuteDashboard(context.Background(), "ws1", "missing", nil)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}
