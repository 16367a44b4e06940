package secrets

import (
	"context"

	"graphable/internal/cache"
	"graphable/internal/domain"
)

// CachedProvider serves payloads from a TTL cache in front of another
// provider. Entries are keyed by SecretReference.CacheKey.
type CachedProvider struct {
	next  domain.SecretProvider
	cache *cache.TTLCache[string, string]
}

var _ domain.SecretProvider = (*CachedProvider)(nil)

// NewCachedProvider wraps next with c.
func NewCachedProvider(next domain.SecretProvider, c *cache.TTLCache[string, string]) *CachedProvider {
	return &CachedProvider{next: next, cache: c}
}

// GetSecret returns a cached payload or fetches and caches it. Failures are
// not cached.
func (p *CachedProvider) GetSecret(ctx context.Context, ref domain.SecretReference) (string, error) {
	key := ref.CacheKey()
	if v, ok := p.cache.Get(key); ok {
		return v, nil
	}
	v, err := p.next.GetSecret(ctx, ref)
	if err != nil {
		return "", err
	}
	p.cache.Set(key, v)
	return v, nil
}

// Prime stores payload for ref without consulting the backend, so a freshly
// written secret is served without a round trip.
func (p *CachedProvider) Prime(ref domain.SecretReference, payload string) {
	p.cache.Set(ref.CacheKey(), payload)
}

// Invalidate drops ref's entry.
func (p *CachedProvider) Invalidate(ref domain.SecretReference) {
	p.cache.Delete(ref.CacheKey())
}
