package connection

import (
	"context"
	"log/slog"

	"graphable/internal/domain"
	"graphable/internal/validation"
)

// CachePrimer accepts freshly written payloads.
type CachePrimer interface {
	Prime(ref domain.SecretReference, payload string)
}

// SecretService writes data source credentials and their references.
type SecretService struct {
	dataSources domain.DataSourceRepository
	refs        domain.SecretReferenceRepository
	writer      domain.SecretWriter
	primer      CachePrimer
	logger      *slog.Logger
}

// NewSecretService creates a SecretService. writer stores payloads for the
// local provider; primer may be nil.
func NewSecretService(dataSources domain.DataSourceRepository, refs domain.SecretReferenceRepository, writer domain.SecretWriter, primer CachePrimer, logger *slog.Logger) *SecretService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SecretService{dataSources: dataSources, refs: refs, writer: writer, primer: primer, logger: logger}
}

// PutSecret creates or rotates the data source's credentials in the local
// store. The payload is validated before it is written, the reference is
// pointed at the new version and the cache is primed.
func (s *SecretService) PutSecret(ctx context.Context, workspaceID, dataSourceID, payload string) (*domain.SecretReference, error) {
	if _, err := s.dataSources.Get(ctx, workspaceID, dataSourceID); err != nil {
		return nil, err
	}
	if _, err := ParsePayload(payload); err != nil {
		return nil, err
	}

	ref := domain.SecretReference{
		Provider:   domain.SecretProviderLocal,
		SecretName: LocalSecretName(workspaceID, dataSourceID),
	}
	version, err := s.writer.PutSecret(ctx, ref, payload)
	if err != nil {
		return nil, err
	}
	ref.Version = version

	if err := s.refs.Put(ctx, workspaceID, dataSourceID, ref); err != nil {
		return nil, err
	}
	if s.primer != nil {
		s.primer.Prime(ref, payload)
	}
	s.logger.Info("data source secret rotated", "workspace", workspaceID, "data_source", dataSourceID, "version", version)
	return &ref, nil
}

// SetReference points the data source at a secret held by an external
// provider.
func (s *SecretService) SetReference(ctx context.Context, workspaceID, dataSourceID string, ref domain.SecretReference) error {
	if err := validation.Struct(ref); err != nil {
		return err
	}
	if _, err := s.dataSources.Get(ctx, workspaceID, dataSourceID); err != nil {
		return err
	}
	return s.refs.Put(ctx, workspaceID, dataSourceID, ref)
}

// LocalSecretName is the local store name used for a data source.
func LocalSecretName(workspaceID, dataSourceID string) string {
	return "ws/" + workspaceID + "/ds/" + dataSourceID
}
