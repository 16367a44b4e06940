package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphable/internal/config"
	"graphable/internal/declarative"
	"graphable/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	cfg.MetaDBPath = filepath.Join(t.TempDir(), "meta.sqlite")
	cfg.Auth.JWTSecret = "app-test-secret"
	return cfg
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func bearer(t *testing.T, secret, workspace string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       "alice",
		"workspace": workspace,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + s
}

func TestNew_ServesImportedGraphs(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	a := newApp(t, cfg)

	doc, err := declarative.Parse([]byte("workspace: sales\ngraphs:\n  - {id: revenue, name: Revenue, query: SELECT 1}\n"))
	require.NoError(t, err)
	_, err = a.Services.Declarative.Apply(ctx, doc)
	require.NoError(t, err)

	h, err := a.Handler(ctx)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		auth   string
		status int
	}{
		{name: "health is public", path: "/healthz", status: http.StatusOK},
		{name: "api needs a token", path: "/v1/workspaces/sales/graphs/revenue", status: http.StatusUnauthorized},
		{name: "scoped token", path: "/v1/workspaces/sales/graphs/revenue", auth: bearer(t, cfg.Auth.JWTSecret, "sales"), status: http.StatusOK},
		{name: "other workspace", path: "/v1/workspaces/ops/graphs/revenue", auth: bearer(t, cfg.Auth.JWTSecret, "sales"), status: http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestNew_SecretsReachTheResolver(t *testing.T) {
	ctx := context.Background()
	a := newApp(t, testConfig(t))

	_, err := a.Repos.DataSources.Save(ctx, &domain.DataSource{ID: "wh", WorkspaceID: "sales", Name: "Warehouse"})
	require.NoError(t, err)
	ref, err := a.Services.Secrets.PutSecret(ctx, "sales", "wh", `{"host":"db","database":"app","user":"u","password":"p"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.SecretProviderLocal, ref.Provider)

	stored, err := a.Repos.SecretRefs.Get(ctx, "sales", "wh")
	require.NoError(t, err)
	assert.Equal(t, *ref, *stored)
}

func TestHandler_DevelopmentWithoutAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = ""
	a := newApp(t, cfg)

	h, err := a.Handler(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/workspaces/any/graphs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_ProductionRequiresAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = ""
	cfg.Env = "production"
	a := newApp(t, cfg)

	_, err := a.Handler(context.Background())
	assert.ErrorIs(t, err, errNoAuth)
}

func TestNew_BadEncryptionKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.EncryptionKey = "short"
	_, err := New(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "encryption key")
}

func TestServeListener_GracefulShutdown(t *testing.T) {
	a := newApp(t, testConfig(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.ServeListener(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
