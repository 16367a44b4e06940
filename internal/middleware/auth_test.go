package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphable/internal/domain"
)

type stubValidator struct {
	claims *Claims
	err    error
}

func (v *stubValidator) Validate(_ context.Context, _ string) (*Claims, error) {
	return v.claims, v.err
}

func capture() (http.Handler, *domain.ContextPrincipal) {
	var got domain.ContextPrincipal
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = domain.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}), &got
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		validator  *stubValidator
		claim      string
		wantStatus int
		want       domain.ContextPrincipal
	}{
		{
			name:       "workspace member",
			header:     "Bearer tok",
			validator:  &stubValidator{claims: &Claims{Subject: "alice", Raw: map[string]any{"workspace": "ws1"}}},
			wantStatus: http.StatusNoContent,
			want:       domain.ContextPrincipal{Name: "alice", Type: "user", Workspace: "ws1"},
		},
		{
			name:       "custom claim and admin role",
			header:     "bearer tok",
			claim:      "tenant",
			validator:  &stubValidator{claims: &Claims{Subject: "ops", Raw: map[string]any{"tenant": "t9", "roles": []any{"admin"}}}},
			wantStatus: http.StatusNoContent,
			want:       domain.ContextPrincipal{Name: "ops", Type: "user", Workspace: "t9", IsAdmin: true},
		},
		{
			name:       "service principal",
			header:     "Bearer tok",
			validator:  &stubValidator{claims: &Claims{Subject: "etl", Raw: map[string]any{"typ": "service_principal", "admin": true}}},
			wantStatus: http.StatusNoContent,
			want:       domain.ContextPrincipal{Name: "etl", Type: "service_principal", IsAdmin: true},
		},
		{
			name:       "missing header",
			validator:  &stubValidator{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic auth is not accepted",
			header:     "Basic dXNlcjpwYXNz",
			validator:  &stubValidator{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			header:     "Bearer tok",
			validator:  &stubValidator{err: errors.New("bad signature")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no subject",
			header:     "Bearer tok",
			validator:  &stubValidator{claims: &Claims{Raw: map[string]any{}}},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, got := capture()
			h := Authenticate(AuthConfig{Validator: tt.validator, WorkspaceClaim: tt.claim})(next)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				var body map[string]any
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.InDelta(t, 401, body["code"], 0.001)
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
				return
			}
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestAuthenticate_WithHS256Token(t *testing.T) {
	v, err := NewHS256Validator(testSecret, "")
	require.NoError(t, err)
	next, got := capture()
	h := Authenticate(AuthConfig{Validator: v})(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, testSecret, map[string]any{"sub": "bob", "workspace": "ws2"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "bob", got.Name)
	assert.True(t, got.CanAccessWorkspace("ws2"))
	assert.False(t, got.CanAccessWorkspace("ws1"))
}

func TestDevelopmentPrincipal(t *testing.T) {
	next, got := capture()
	rec := httptest.NewRecorder()
	DevelopmentPrincipal(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, got.IsAdmin)
	assert.True(t, got.CanAccessWorkspace("any"))
}
