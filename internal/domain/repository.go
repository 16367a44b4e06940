package domain

import "context"

// GraphRepository stores graph definitions. Implementations re-read the
// stored document on every call and keep no state of their own.
type GraphRepository interface {
	Save(ctx context.Context, g *Graph) (*Graph, error)
	Get(ctx context.Context, workspaceID, id string) (*Graph, error)
	List(ctx context.Context, workspaceID string, page PageRequest) ([]Graph, int64, error)
	Delete(ctx context.Context, workspaceID, id string) error
}

// DashboardRepository stores dashboard definitions.
type DashboardRepository interface {
	Save(ctx context.Context, d *Dashboard) (*Dashboard, error)
	Get(ctx context.Context, workspaceID, id string) (*Dashboard, error)
	List(ctx context.Context, workspaceID string, page PageRequest) ([]Dashboard, int64, error)
	Delete(ctx context.Context, workspaceID, id string) error
}

// DataSourceRepository stores data source records.
type DataSourceRepository interface {
	Save(ctx context.Context, ds *DataSource) (*DataSource, error)
	Get(ctx context.Context, workspaceID, id string) (*DataSource, error)
	List(ctx context.Context, workspaceID string, page PageRequest) ([]DataSource, int64, error)
	Delete(ctx context.Context, workspaceID, id string) error
}

// SecretReferenceRepository maps a data source to its secret reference.
type SecretReferenceRepository interface {
	Get(ctx context.Context, workspaceID, dataSourceID string) (*SecretReference, error)
	Put(ctx context.Context, workspaceID, dataSourceID string, ref SecretReference) error
	Delete(ctx context.Context, workspaceID, dataSourceID string) error
}

// AuditRepository records execution audit entries.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, int64, error)
}

// SecretStoreRepository holds sealed secret payloads for the local provider.
// Get with an empty version returns the most recently written version.
type SecretStoreRepository interface {
	Put(ctx context.Context, name, version, ciphertext string) error
	Get(ctx context.Context, name, version string) (ciphertext, resolvedVersion string, err error)
}
