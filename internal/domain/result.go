package domain

// QueryResult is the columnar result of one query, expression or graph.
type QueryResult struct {
	Data    []map[string]any `json:"data"`
	Columns []string         `json:"columns"`
}

// BoundQuery is SQL text with positional placeholders and their values.
type BoundQuery struct {
	Query  string
	Values []any
}

// ExecuteRequest describes one call to the query executor.
type ExecuteRequest struct {
	DataSourceID string
	WorkspaceID  string
	SQL          string
	Page         int
	PageSize     int
	Params       []any
	RequireAdmin bool
	Metadata     bool // browsing call; uses the short connect timeout
}

// PagedResult is the executor's output for one page of rows.
type PagedResult struct {
	Rows       []map[string]any `json:"rows"`
	Columns    []string         `json:"columns"`
	TotalCount int64            `json:"totalCount"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

// TileResult is the outcome of one dashboard tile. On failure Data is nil and
// Error carries the message.
type TileResult struct {
	TileID   string           `json:"tileId,omitempty"`
	GraphRef string           `json:"graphRef"`
	Position Position         `json:"position"`
	Data     []map[string]any `json:"data"`
	Columns  []string         `json:"columns"`
	Error    string           `json:"error,omitempty"`
}

// DashboardResult bundles a dashboard with the results of all its tiles.
type DashboardResult struct {
	Dashboard *Dashboard   `json:"dashboard"`
	Tiles     []TileResult `json:"tiles"`
}

// SchemaInfo names a schema visible on a data source.
type SchemaInfo struct {
	Name string `json:"name"`
}

// TableInfo names a table or view visible on a data source.
type TableInfo struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
	Nullable bool   `json:"nullable"`
	Position int    `json:"position"`
}
