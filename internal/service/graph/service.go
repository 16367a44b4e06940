// Package graph executes graphs, ad-hoc graph previews and dashboards.
package graph

import (
	"context"
	"log/slog"
	"time"

	"graphable/internal/cache"
	"graphable/internal/domain"
	"graphable/internal/expression"
	"graphable/internal/params"
	"graphable/internal/resultset"
	"graphable/internal/service/auditutil"
	"graphable/internal/sqlrewrite"
)

// DefaultMaxRows caps the rows fetched for one query definition.
const DefaultMaxRows = 10000

// Config tunes execution limits. Zero values take defaults; a zero
// DashboardConcurrency runs every tile at once.
type Config struct {
	MaxRows              int
	DashboardConcurrency int
}

// Service runs graph definitions against their data sources.
type Service struct {
	graphs     domain.GraphRepository
	dashboards domain.DashboardRepository
	executor   domain.QueryExecutor
	evaluator  *expression.Evaluator
	audit      auditutil.Recorder
	results    *cache.TTLCache[string, *domain.QueryResult]
	cfg        Config
	logger     *slog.Logger
}

// NewService creates a graph Service.
func NewService(graphs domain.GraphRepository, dashboards domain.DashboardRepository, executor domain.QueryExecutor, audit domain.AuditRepository, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	return &Service{
		graphs:     graphs,
		dashboards: dashboards,
		executor:   executor,
		evaluator:  expression.NewEvaluator(logger),
		audit:      auditutil.NewRecorder(audit, logger),
		cfg:        cfg,
		logger:     logger,
	}
}

// SetResultCache enables caching for graphs whose cache policy asks for it.
func (s *Service) SetResultCache(c *cache.TTLCache[string, *domain.QueryResult]) {
	s.results = c
}

// ExecuteGraph runs a stored graph with the provided parameters.
func (s *Service) ExecuteGraph(ctx context.Context, workspaceID, graphID string, provided map[string]any) (*domain.QueryResult, error) {
	start := time.Now()
	res, err := s.executeStored(ctx, workspaceID, graphID, provided)
	s.audit.Record(ctx, domain.ActionExecuteGraph, workspaceID, graphID, start, rowCount(res), err)
	return res, err
}

// ExecuteQuery runs an unsaved graph definition. Results are never cached.
func (s *Service) ExecuteQuery(ctx context.Context, workspaceID string, g *domain.Graph, provided map[string]any) (*domain.QueryResult, error) {
	start := time.Now()
	var (
		res *domain.QueryResult
		err error
	)
	if g == nil {
		err = domain.ErrValidation("graph definition is required")
	} else {
		preview := *g
		preview.WorkspaceID = workspaceID
		preview.CachePolicy = nil
		res, err = s.run(ctx, &preview, provided)
	}
	s.audit.Record(ctx, domain.ActionExecuteQuery, workspaceID, "", start, rowCount(res), err)
	return res, err
}

func (s *Service) executeStored(ctx context.Context, workspaceID, graphID string, provided map[string]any) (*domain.QueryResult, error) {
	g, err := s.graphs.Get(ctx, workspaceID, graphID)
	if err != nil {
		return nil, err
	}
	g.WorkspaceID = workspaceID
	return s.run(ctx, g, provided)
}

// run validates parameters, executes every definition of g and combines the
// visible results.
func (s *Service) run(ctx context.Context, g *domain.Graph, provided map[string]any) (*domain.QueryResult, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	schema := g.ParameterSchema()
	if err := params.ValidateParameters(schema, provided); err != nil {
		return nil, err
	}
	effective := params.WithDefaults(schema, provided)

	key, cacheable := s.cacheKey(g, effective)
	if cacheable {
		if res, ok := s.results.Get(key); ok {
			return res, nil
		}
	}

	var (
		res *domain.QueryResult
		err error
	)
	if g.IsLegacy() {
		res, err = s.runSQL(ctx, g, legacyDefinition(g, schema), schema, effective)
	} else {
		res, err = s.runDefinitions(ctx, g, schema, effective)
	}
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.results.SetWithTTL(key, res, cacheTTL(g.CachePolicy))
	}
	return res, nil
}

func (s *Service) runDefinitions(ctx context.Context, g *domain.Graph, schema []domain.ParameterDefinition, effective map[string]any) (*domain.QueryResult, error) {
	results := make(map[string]*domain.QueryResult, len(g.Queries))
	var expressions []domain.QueryDefinition

	for _, q := range g.Queries {
		switch q.Kind {
		case domain.QueryKindSQL:
			res, err := s.runSQL(ctx, g, q, schema, effective)
			if err != nil {
				return nil, err
			}
			results[q.RefID] = res
		case domain.QueryKindExpression:
			expressions = append(expressions, q)
		default:
			return nil, domain.ErrValidation("query %s: unknown kind %q", q.RefID, q.Kind)
		}
	}

	ordered, err := expression.Order(expressions)
	if err != nil {
		return nil, err
	}
	for _, q := range ordered {
		res, err := s.evaluator.Evaluate(q, results)
		if err != nil {
			return nil, err
		}
		results[q.RefID] = res
	}

	return resultset.Combine(results, g.Queries), nil
}

// runSQL prepares one SQL definition (validate, time range, bind) and runs
// it as a single page capped at MaxRows.
func (s *Service) runSQL(ctx context.Context, g *domain.Graph, q domain.QueryDefinition, schema []domain.ParameterDefinition, effective map[string]any) (*domain.QueryResult, error) {
	text := q.Text
	if err := sqlrewrite.ValidateQuery(text); err != nil {
		return nil, err
	}
	if g.TimeRangeEnabled() {
		injected, err := sqlrewrite.InjectTimeRange(text, g.TimeRange)
		if err != nil {
			return nil, err
		}
		text = injected
	}
	bound := params.Bind(sqlrewrite.StripComments(text), schema, effective)

	dataSource := q.DataSourceRef
	if dataSource == "" {
		dataSource = g.DataSourceRef
	}
	if dataSource == "" {
		return nil, domain.ErrValidation("query %s has no data source", q.RefID)
	}

	page, err := s.executor.Execute(ctx, domain.ExecuteRequest{
		DataSourceID: dataSource,
		WorkspaceID:  g.WorkspaceID,
		SQL:          bound.Query,
		Page:         1,
		PageSize:     s.cfg.MaxRows,
		Params:       bound.Values,
	})
	if err != nil {
		return nil, err
	}
	return &domain.QueryResult{Data: page.Rows, Columns: page.Columns}, nil
}

func legacyDefinition(g *domain.Graph, schema []domain.ParameterDefinition) domain.QueryDefinition {
	return domain.QueryDefinition{
		Kind:          domain.QueryKindSQL,
		RefID:         "A",
		Text:          g.Query,
		DataSourceRef: g.DataSourceRef,
		Parameters:    schema,
	}
}

func rowCount(res *domain.QueryResult) int {
	if res == nil {
		return 0
	}
	return len(res.Data)
}
