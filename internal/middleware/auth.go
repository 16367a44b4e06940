package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"graphable/internal/domain"
)

// DefaultWorkspaceClaim names the claim carrying the caller's workspace.
const DefaultWorkspaceClaim = "workspace"

// adminRole grants access to every workspace and to exploration.
const adminRole = "admin"

// AuthConfig configures Authenticate.
type AuthConfig struct {
	Validator      TokenValidator
	WorkspaceClaim string
	Logger         *slog.Logger
}

// Authenticate verifies the bearer token and stores the resulting
// domain.ContextPrincipal in the request context. Requests without a valid
// token get 401.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	claim := cfg.WorkspaceClaim
	if claim == "" {
		claim = DefaultWorkspaceClaim
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			claims, err := cfg.Validator.Validate(r.Context(), token)
			if err != nil {
				logger.Debug("token rejected", "error", err, "request_id", RequestIDFromContext(r.Context()))
				writeUnauthorized(w, "invalid bearer token")
				return
			}
			if claims.Subject == "" {
				writeUnauthorized(w, "token has no subject")
				return
			}
			ctx := domain.WithPrincipal(r.Context(), principalFromClaims(claims, claim))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevelopmentPrincipal stores a fixed admin principal on every request. It
// stands in for Authenticate when no token validator is configured and must
// never be used in production.
func DevelopmentPrincipal(next http.Handler) http.Handler {
	dev := domain.ContextPrincipal{Name: "dev", IsAdmin: true, Type: "user"}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), dev)))
	})
}

func principalFromClaims(c *Claims, workspaceClaim string) domain.ContextPrincipal {
	p := domain.ContextPrincipal{
		Name:      c.Subject,
		IsAdmin:   c.Bool("admin") || c.HasRole(adminRole),
		Type:      "user",
		Workspace: c.String(workspaceClaim),
	}
	if c.String("typ") == "service_principal" {
		p.Type = "service_principal"
	}
	return p
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    http.StatusUnauthorized,
		"message": "unauthorized: " + msg,
	})
}
