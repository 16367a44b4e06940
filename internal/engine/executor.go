// Package engine runs user queries against workspace PostgreSQL data sources.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"graphable/internal/domain"
	"graphable/internal/sqlrewrite"
)

// Default limits for Executor.
const (
	DefaultQueryConnectTimeout    = 30 * time.Second
	DefaultMetadataConnectTimeout = 5 * time.Second
	DefaultPageSize               = 100
	DefaultMaxPageSize            = 10000
)

// ExecutorConfig tunes connection and paging limits. Zero values take the
// defaults above.
type ExecutorConfig struct {
	QueryConnectTimeout    time.Duration
	MetadataConnectTimeout time.Duration
	MaxPageSize            int
}

// Executor runs one page of a query per call on a short-lived connection.
type Executor struct {
	resolver domain.ConnectionResolver
	opener   Opener
	cfg      ExecutorConfig
	logger   *slog.Logger
}

var _ domain.QueryExecutor = (*Executor)(nil)

// NewExecutor creates an Executor. A nil opener uses PgxOpener.
func NewExecutor(resolver domain.ConnectionResolver, opener Opener, cfg ExecutorConfig, logger *slog.Logger) *Executor {
	if opener == nil {
		opener = PgxOpener{}
	}
	if cfg.QueryConnectTimeout <= 0 {
		cfg.QueryConnectTimeout = DefaultQueryConnectTimeout
	}
	if cfg.MetadataConnectTimeout <= 0 {
		cfg.MetadataConnectTimeout = DefaultMetadataConnectTimeout
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = DefaultMaxPageSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{resolver: resolver, opener: opener, cfg: cfg, logger: logger}
}

// Execute validates req.SQL, resolves the data source, opens a connection,
// runs the requested page and closes the connection.
func (e *Executor) Execute(ctx context.Context, req domain.ExecuteRequest) (*domain.PagedResult, error) {
	if req.RequireAdmin {
		p, ok := domain.PrincipalFromContext(ctx)
		if !ok || !p.IsAdmin {
			return nil, domain.ErrAccessDenied("admin privileges required")
		}
	}
	if err := sqlrewrite.ValidateQuery(req.SQL); err != nil {
		return nil, err
	}

	page, pageSize := e.normalizePage(req.Page, req.PageSize)

	connCfg, err := e.resolver.Resolve(ctx, req.DataSourceID, req.WorkspaceID)
	if err != nil {
		return nil, err
	}

	timeout := e.cfg.QueryConnectTimeout
	if req.Metadata {
		timeout = e.cfg.MetadataConnectTimeout
	}
	db, err := e.opener.Open(ctx, *connCfg, timeout)
	if err != nil {
		return nil, domain.ErrExecution(err, "connect to data source %s", req.DataSourceID)
	}
	defer func() { _ = db.Close() }()

	return e.run(ctx, db, req.SQL, page, pageSize, req.Params)
}

func (e *Executor) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > e.cfg.MaxPageSize {
		pageSize = e.cfg.MaxPageSize
	}
	return page, pageSize
}

// run executes sql on db. Statements other than SELECT run unpaginated and
// report the affected row count.
func (e *Executor) run(ctx context.Context, db *sql.DB, query string, page, pageSize int, params []any) (*domain.PagedResult, error) {
	if !sqlrewrite.IsSelect(query) {
		res, err := db.ExecContext(ctx, query, params...)
		if err != nil {
			return nil, domain.ErrExecution(err, "execute statement")
		}
		affected, _ := res.RowsAffected()
		return &domain.PagedResult{
			Rows:       []map[string]any{},
			Columns:    []string{},
			TotalCount: affected,
			Page:       1,
			PageSize:   pageSize,
			TotalPages: 1,
		}, nil
	}

	inner := sqlrewrite.Embeddable(query)

	total, countErr := e.count(ctx, db, inner, params)
	if countErr != nil {
		e.logger.Debug("count query failed, estimating total", "error", countErr)
	}

	paged, args := paginate(inner, page, pageSize, params)
	rows, err := db.QueryContext(ctx, paged, args...)
	if err != nil {
		return nil, domain.ErrExecution(err, "execute query")
	}
	defer func() { _ = rows.Close() }()

	fields, data, err := scanRows(rows)
	if err != nil {
		return nil, domain.ErrExecution(err, "read results")
	}

	var first map[string]any
	if len(data) > 0 {
		first = data[0]
	}
	columns := resolveColumns(fields, first)

	if countErr != nil {
		total = estimateTotal(page, pageSize, len(data))
	}
	return &domain.PagedResult{
		Rows:       data,
		Columns:    columns,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: domain.TotalPages(total, pageSize),
	}, nil
}

func (e *Executor) count(ctx context.Context, db *sql.DB, inner string, params []any) (int64, error) {
	var total int64
	err := db.QueryRowContext(ctx, CountQuery(inner), params...).Scan(&total)
	return total, err
}

// CountQuery wraps inner to count its rows.
func CountQuery(inner string) string {
	return "SELECT COUNT(*) AS total FROM (" + inner + ") AS count_subquery"
}

// paginate appends LIMIT/OFFSET placeholders numbered after params. A query
// that already limits itself is wrapped in a subquery first.
func paginate(inner string, page, pageSize int, params []any) (string, []any) {
	n := len(params)
	clause := fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
	q := inner + clause
	if sqlrewrite.HasLimitOrOffset(inner) {
		q = "SELECT * FROM (" + inner + ") AS paginated_query" + clause
	}
	args := make([]any, 0, n+2)
	args = append(args, params...)
	args = append(args, pageSize, (page-1)*pageSize)
	return q, args
}

// estimateTotal guesses a row count when counting failed: a full page implies
// at least one more row.
func estimateTotal(page, pageSize, rows int) int64 {
	if rows >= pageSize {
		return int64(page*pageSize + 1)
	}
	return int64((page-1)*pageSize + rows)
}
