package domain

import "context"

// SecretProvider fetches a secret payload. Implementations must be safe for
// concurrent use.
type SecretProvider interface {
	GetSecret(ctx context.Context, ref SecretReference) (string, error)
}

// SecretWriter stores a secret payload and returns the version written.
// Implemented by secrets.LocalProvider.
type SecretWriter interface {
	PutSecret(ctx context.Context, ref SecretReference, payload string) (string, error)
}

// ConnectionResolver turns a data source into live connection parameters.
// Implemented by connection.Resolver.
type ConnectionResolver interface {
	Resolve(ctx context.Context, dataSourceID, workspaceID string) (*ConnectionConfig, error)
}

// QueryExecutor runs one page of a query against a data source.
// Implemented by engine.Executor.
type QueryExecutor interface {
	Execute(ctx context.Context, req ExecuteRequest) (*PagedResult, error)
}
