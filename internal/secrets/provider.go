// Package secrets fetches connection payloads from the configured secret
// backends.
package secrets

import (
	"context"

	"graphable/internal/domain"
)

// Router dispatches a reference to the provider registered for its
// Provider field.
type Router struct {
	providers map[string]domain.SecretProvider
}

var _ domain.SecretProvider = (*Router)(nil)

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{providers: make(map[string]domain.SecretProvider)}
}

// Register installs p for the named provider, replacing any previous one.
func (r *Router) Register(name string, p domain.SecretProvider) {
	r.providers[name] = p
}

// Registered reports whether a provider is installed under name.
func (r *Router) Registered(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// GetSecret fetches ref's payload from its provider.
func (r *Router) GetSecret(ctx context.Context, ref domain.SecretReference) (string, error) {
	p, ok := r.providers[ref.Provider]
	if !ok {
		return "", domain.ErrValidation("secret provider %q is not configured", ref.Provider)
	}
	return p.GetSecret(ctx, ref)
}
