package domain

import "time"

// Audit actions recorded by the execution services.
const (
	ActionExecuteGraph     = "EXECUTE_GRAPH"
	ActionExecuteQuery     = "EXECUTE_QUERY"
	ActionExecuteDashboard = "EXECUTE_DASHBOARD"
	ActionExploreQuery     = "EXPLORE_QUERY"
)

// AuditEntry represents a single audit log record.
type AuditEntry struct {
	ID            string
	PrincipalName string
	WorkspaceID   string
	Action        string
	Target        string
	Status        string // "SUCCESS", "ERROR"
	ErrorMessage  *string
	DurationMs    *int64
	RowsReturned  *int64
	CreatedAt     time.Time
}

// AuditFilter narrows an audit log listing.
type AuditFilter struct {
	WorkspaceID *string
	Action      *string
	Status      *string
	Page        PageRequest
}
