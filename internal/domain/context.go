package domain

import "context"

type principalKey struct{}

// ContextPrincipal carries the authenticated identity through request context.
type ContextPrincipal struct {
	Name      string
	IsAdmin   bool
	Type      string // "user" or "service_principal"
	Workspace string // workspace the token was issued for; empty for admins
}

// CanAccessWorkspace reports whether the principal may act on the workspace.
func (p ContextPrincipal) CanAccessWorkspace(workspaceID string) bool {
	return p.IsAdmin || (p.Workspace != "" && p.Workspace == workspaceID)
}

// WithPrincipal stores a ContextPrincipal in the context.
func WithPrincipal(ctx context.Context, p ContextPrincipal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the ContextPrincipal from the context.
func PrincipalFromContext(ctx context.Context) (ContextPrincipal, bool) {
	p, ok := ctx.Value(principalKey{}).(ContextPrincipal)
	return p, ok
}
