package secrets

import (
	"context"

	"graphable/internal/db/crypto"
	"graphable/internal/domain"
)

// LocalProvider keeps payloads sealed in the metadata store.
type LocalProvider struct {
	store  domain.SecretStoreRepository
	sealer *crypto.Sealer
}

var (
	_ domain.SecretProvider = (*LocalProvider)(nil)
	_ domain.SecretWriter   = (*LocalProvider)(nil)
)

// NewLocalProvider creates a LocalProvider.
func NewLocalProvider(store domain.SecretStoreRepository, sealer *crypto.Sealer) *LocalProvider {
	return &LocalProvider{store: store, sealer: sealer}
}

// GetSecret returns the payload at ref.Version, or the latest version.
func (p *LocalProvider) GetSecret(ctx context.Context, ref domain.SecretReference) (string, error) {
	sealed, version, err := p.store.Get(ctx, ref.SecretName, ref.Version)
	if err != nil {
		return "", err
	}
	payload, err := p.sealer.Open(sealed, sealBinding(ref.SecretName, version))
	if err != nil {
		return "", domain.ErrExecution(err, "open secret %q", ref.SecretName)
	}
	return payload, nil
}

// PutSecret stores payload as a new version and returns the version. An
// empty ref.Version gets a generated one.
func (p *LocalProvider) PutSecret(ctx context.Context, ref domain.SecretReference, payload string) (string, error) {
	version := ref.Version
	if version == "" {
		version = domain.NewID()
	}
	sealed, err := p.sealer.Seal(payload, sealBinding(ref.SecretName, version))
	if err != nil {
		return "", err
	}
	if err := p.store.Put(ctx, ref.SecretName, version, sealed); err != nil {
		return "", err
	}
	return version, nil
}

func sealBinding(name, version string) string {
	return name + "|" + version
}
