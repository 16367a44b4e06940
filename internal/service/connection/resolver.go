// Package connection resolves data sources to live connection parameters and
// manages the secrets behind them.
package connection

import (
	"context"
	"log/slog"

	"graphable/internal/domain"
)

// Resolver turns a data source into connection parameters by way of its
// secret reference and the secret provider.
type Resolver struct {
	refs     domain.SecretReferenceRepository
	provider domain.SecretProvider
	logger   *slog.Logger
}

var _ domain.ConnectionResolver = (*Resolver)(nil)

// NewResolver creates a Resolver. provider is typically a cached router.
func NewResolver(refs domain.SecretReferenceRepository, provider domain.SecretProvider, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{refs: refs, provider: provider, logger: logger}
}

// Resolve looks up the data source's secret reference, fetches the payload
// and parses it.
func (r *Resolver) Resolve(ctx context.Context, dataSourceID, workspaceID string) (*domain.ConnectionConfig, error) {
	ref, err := r.refs.Get(ctx, workspaceID, dataSourceID)
	if err != nil {
		return nil, err
	}
	payload, err := r.provider.GetSecret(ctx, *ref)
	if err != nil {
		return nil, err
	}
	cfg, err := ParsePayload(payload)
	if err != nil {
		r.logger.Warn("invalid connection secret",
			"data_source", dataSourceID,
			"workspace", workspaceID,
			"provider", ref.Provider,
		)
		return nil, err
	}
	return cfg, nil
}
