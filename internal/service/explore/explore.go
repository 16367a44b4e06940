// Package explore browses the catalog of a data source and runs ad-hoc
// admin queries against it.
package explore

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"graphable/internal/coerce"
	"graphable/internal/domain"
	"graphable/internal/service/auditutil"
)

// metadataPageSize bounds one catalog listing.
const metadataPageSize = 1000

const (
	schemasSQL = `SELECT schema_name FROM information_schema.schemata ` +
		`WHERE schema_name NOT IN ('pg_catalog', 'information_schema') ` +
		`AND schema_name NOT LIKE 'pg_toast%' ORDER BY schema_name`
	tablesSQL = `SELECT table_schema, table_name, table_type FROM information_schema.tables ` +
		`WHERE table_schema = $1 ORDER BY table_name`
	columnsSQL = `SELECT column_name, data_type, is_nullable, ordinal_position FROM information_schema.columns ` +
		`WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`
)

// Service exposes catalog browsing. Every call needs an admin principal;
// the executor enforces it.
type Service struct {
	executor domain.QueryExecutor
	audit    auditutil.Recorder
}

// NewService creates an exploration Service.
func NewService(executor domain.QueryExecutor, audit domain.AuditRepository, logger *slog.Logger) *Service {
	return &Service{executor: executor, audit: auditutil.NewRecorder(audit, logger)}
}

// ListSchemas returns the user schemas of a data source.
func (s *Service) ListSchemas(ctx context.Context, workspaceID, dataSourceID string) ([]domain.SchemaInfo, error) {
	res, err := s.metadata(ctx, workspaceID, dataSourceID, schemasSQL)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SchemaInfo, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, domain.SchemaInfo{Name: coerce.String(r["schema_name"])})
	}
	return out, nil
}

// ListTables returns the tables and views of one schema.
func (s *Service) ListTables(ctx context.Context, workspaceID, dataSourceID, schema string) ([]domain.TableInfo, error) {
	if schema == "" {
		return nil, domain.ErrValidation("schema is required")
	}
	res, err := s.metadata(ctx, workspaceID, dataSourceID, tablesSQL, schema)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TableInfo, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, domain.TableInfo{
			Schema: coerce.String(r["table_schema"]),
			Name:   coerce.String(r["table_name"]),
			Type:   coerce.String(r["table_type"]),
		})
	}
	return out, nil
}

// ListColumns returns the columns of one table in ordinal order.
func (s *Service) ListColumns(ctx context.Context, workspaceID, dataSourceID, schema, table string) ([]domain.ColumnInfo, error) {
	if schema == "" || table == "" {
		return nil, domain.ErrValidation("schema and table are required")
	}
	res, err := s.metadata(ctx, workspaceID, dataSourceID, columnsSQL, schema, table)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ColumnInfo, 0, len(res.Rows))
	for _, r := range res.Rows {
		pos, _ := coerce.Float(r["ordinal_position"])
		out = append(out, domain.ColumnInfo{
			Name:     coerce.String(r["column_name"]),
			DataType: coerce.String(r["data_type"]),
			Nullable: strings.EqualFold(coerce.String(r["is_nullable"]), "YES"),
			Position: int(pos),
		})
	}
	return out, nil
}

// RunQuery executes an ad-hoc SELECT and returns one page of rows.
func (s *Service) RunQuery(ctx context.Context, workspaceID, dataSourceID, sql string, page, pageSize int) (*domain.PagedResult, error) {
	start := time.Now()
	res, err := s.runQuery(ctx, workspaceID, dataSourceID, sql, page, pageSize)
	rows := 0
	if res != nil {
		rows = len(res.Rows)
	}
	s.audit.Record(ctx, domain.ActionExploreQuery, workspaceID, dataSourceID, start, rows, err)
	return res, err
}

func (s *Service) runQuery(ctx context.Context, workspaceID, dataSourceID, sql string, page, pageSize int) (*domain.PagedResult, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, domain.ErrValidation("sql query is required")
	}
	return s.executor.Execute(ctx, domain.ExecuteRequest{
		DataSourceID: dataSourceID,
		WorkspaceID:  workspaceID,
		SQL:          sql,
		Page:         page,
		PageSize:     pageSize,
		RequireAdmin: true,
	})
}

func (s *Service) metadata(ctx context.Context, workspaceID, dataSourceID, sql string, args ...any) (*domain.PagedResult, error) {
	return s.executor.Execute(ctx, domain.ExecuteRequest{
		DataSourceID: dataSourceID,
		WorkspaceID:  workspaceID,
		SQL:          sql,
		Page:         1,
		PageSize:     metadataPageSize,
		Params:       args,
		RequireAdmin: true,
		Metadata:     true,
	})
}
