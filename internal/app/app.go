// Package app wires configuration, storage, secret providers and services
// into a runnable Graphable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"graphable/internal/api"
	"graphable/internal/cache"
	"graphable/internal/config"
	"graphable/internal/db"
	"graphable/internal/db/crypto"
	"graphable/internal/db/repository"
	"graphable/internal/declarative"
	"graphable/internal/domain"
	"graphable/internal/engine"
	"graphable/internal/middleware"
	"graphable/internal/secrets"
	"graphable/internal/service/connection"
	"graphable/internal/service/explore"
	"graphable/internal/service/graph"
)

// Repositories groups the metadata store repositories.
type Repositories struct {
	Graphs      *repository.GraphRepo
	Dashboards  *repository.DashboardRepo
	DataSources *repository.DataSourceRepo
	SecretRefs  *repository.SecretReferenceRepo
	SecretStore *repository.SecretStoreRepo
	Audit       *repository.AuditRepo
}

// Services groups the application services.
type Services struct {
	Graphs      *graph.Service
	Explore     *explore.Service
	Secrets     *connection.SecretService
	Declarative *declarative.Applier
}

// App is the fully wired application. Close releases everything New opened.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *db.Store
	Repos    Repositories
	Services Services
	Executor *engine.Executor

	sweeper *cache.Sweeper
}

// New opens and migrates the metadata store and wires every service. The
// cache sweeper is not started; call Start for long-running processes.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := db.Open(cfg.MetaDBPath, 0)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	if err := db.Migrate(store.Write); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate metadata store: %w", err)
	}

	a, err := wire(ctx, cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func wire(ctx context.Context, cfg *config.Config, store *db.Store, logger *slog.Logger) (*App, error) {
	repos := Repositories{
		Graphs:      repository.NewGraphRepo(store.Write),
		Dashboards:  repository.NewDashboardRepo(store.Write),
		DataSources: repository.NewDataSourceRepo(store.Write),
		SecretRefs:  repository.NewSecretReferenceRepo(store.Write),
		SecretStore: repository.NewSecretStoreRepo(store.Write),
		Audit:       repository.NewAuditRepo(store.Write),
	}

	// === Secret providers ===
	sealer, err := crypto.NewSealer(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	local := secrets.NewLocalProvider(repos.SecretStore, sealer)

	router := secrets.NewRouter()
	router.Register(domain.SecretProviderLocal, local)
	router.Register(domain.SecretProviderEnv, secrets.NewEnvProvider(os.LookupEnv))
	if err := registerObjectProviders(ctx, router, cfg.Secrets, logger); err != nil {
		return nil, err
	}

	secretCache, err := cache.New[string, string](cfg.Secrets.CacheSize, cfg.Secrets.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("secret cache: %w", err)
	}
	cached := secrets.NewCachedProvider(router, secretCache)

	// === Execution ===
	resolver := connection.NewResolver(repos.SecretRefs, cached, logger.With("component", "resolver"))
	executor := engine.NewExecutor(resolver, engine.PgxOpener{}, engine.ExecutorConfig{
		QueryConnectTimeout:    cfg.Execution.QueryConnectTimeout,
		MetadataConnectTimeout: cfg.Execution.MetadataConnectTimeout,
		MaxPageSize:            cfg.Execution.MaxPageSize,
	}, logger.With("component", "executor"))

	graphs := graph.NewService(repos.Graphs, repos.Dashboards, executor, repos.Audit, graph.Config{
		MaxRows:              cfg.Execution.MaxRows,
		DashboardConcurrency: cfg.Execution.DashboardConcurrency,
	}, logger.With("component", "graph"))

	sweeper := cache.NewSweeper(logger.With("component", "cache-sweeper"))
	if err := sweeper.Register("secrets", cfg.Secrets.CacheSweep, secretCache); err != nil {
		return nil, fmt.Errorf("schedule secret cache sweep: %w", err)
	}
	if cfg.Execution.ResultCacheSize > 0 {
		results, err := cache.New[string, *domain.QueryResult](cfg.Execution.ResultCacheSize, graph.DefaultResultTTL)
		if err != nil {
			return nil, fmt.Errorf("result cache: %w", err)
		}
		graphs.SetResultCache(results)
		if err := sweeper.Register("results", cfg.Secrets.CacheSweep, results); err != nil {
			return nil, fmt.Errorf("schedule result cache sweep: %w", err)
		}
	}

	secretSvc := connection.NewSecretService(repos.DataSources, repos.SecretRefs, local, cached, logger.With("component", "secrets"))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Repos:    repos,
		Executor: executor,
		Services: Services{
			Graphs:      graphs,
			Explore:     explore.NewService(executor, repos.Audit, logger.With("component", "explore")),
			Secrets:     secretSvc,
			Declarative: declarative.NewApplier(repos.DataSources, repos.Graphs, repos.Dashboards, repos.SecretRefs, secretSvc, logger.With("component", "declarative")),
		},
		sweeper: sweeper,
	}, nil
}

// registerObjectProviders adds the object-store secret providers that have
// configuration.
func registerObjectProviders(ctx context.Context, router *secrets.Router, cfg config.SecretsConfig, logger *slog.Logger) error {
	if cfg.S3Enabled() {
		router.Register(domain.SecretProviderS3, secrets.NewObjectProvider("s3", secrets.NewS3Fetcher(secrets.S3Config{
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
			KeyID:    cfg.S3.KeyID,
			Secret:   cfg.S3.Secret,
		})))
		logger.Info("secret provider enabled", "provider", domain.SecretProviderS3)
	}
	if cfg.AzureEnabled() {
		f, err := secrets.NewAzureBlobFetcher(cfg.Azure.AccountName, cfg.Azure.AccountKey)
		if err != nil {
			return fmt.Errorf("azure secret provider: %w", err)
		}
		router.Register(domain.SecretProviderAzure, secrets.NewObjectProvider("az", f))
		logger.Info("secret provider enabled", "provider", domain.SecretProviderAzure)
	}
	if cfg.GCS.Enabled {
		f, err := secrets.NewGCSFetcher(ctx, cfg.GCS.CredentialsFile)
		if err != nil {
			return fmt.Errorf("gcs secret provider: %w", err)
		}
		router.Register(domain.SecretProviderGCS, secrets.NewObjectProvider("gs", f))
		logger.Info("secret provider enabled", "provider", domain.SecretProviderGCS)
	}
	return nil
}

// Start begins background cache sweeping.
func (a *App) Start() {
	a.sweeper.Start()
}

// Close stops background work and closes the metadata store.
func (a *App) Close() error {
	a.sweeper.Stop()
	return a.Store.Close()
}

// Handler builds the HTTP API with authentication, rate limiting and CORS
// taken from the configuration.
func (a *App) Handler(ctx context.Context) (http.Handler, error) {
	cfg := a.Config

	validator, err := tokenValidator(ctx, cfg.Auth)
	if err != nil {
		return nil, err
	}
	authenticate := middleware.DevelopmentPrincipal
	switch {
	case validator != nil:
		authenticate = middleware.Authenticate(middleware.AuthConfig{
			Validator:      validator,
			WorkspaceClaim: cfg.Auth.WorkspaceClaim,
			Logger:         a.Logger.With("component", "auth"),
		})
	case cfg.IsProduction():
		return nil, errNoAuth
	default:
		a.Logger.Warn("authentication disabled; every request runs as an admin")
	}

	var limit func(http.Handler) http.Handler
	if cfg.RateLimit.RPS > 0 {
		limit, err = middleware.RateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RPS,
			Burst:             cfg.RateLimit.Burst,
		})
		if err != nil {
			return nil, err
		}
	}

	h := api.NewHandler(api.Deps{
		Graphs:      a.Services.Graphs,
		Explore:     a.Services.Explore,
		Secrets:     a.Services.Secrets,
		GraphRepo:   a.Repos.Graphs,
		Dashboards:  a.Repos.Dashboards,
		DataSources: a.Repos.DataSources,
		Audit:       a.Repos.Audit,
		Logger:      a.Logger.With("component", "api"),
	})
	return api.NewRouter(h, api.RouterConfig{
		Authenticate:   authenticate,
		RateLimit:      limit,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         a.Logger,
	}), nil
}

// tokenValidator picks OIDC when an issuer or JWKS URL is configured and a
// shared HS256 secret otherwise. It returns nil when auth is disabled.
func tokenValidator(ctx context.Context, cfg config.AuthConfig) (middleware.TokenValidator, error) {
	switch {
	case cfg.JWKSURL != "":
		return middleware.NewOIDCValidatorFromJWKS(ctx, cfg.JWKSURL, cfg.IssuerURL, cfg.Audience, cfg.AllowedIssuers), nil
	case cfg.IssuerURL != "":
		v, err := middleware.NewOIDCValidator(ctx, cfg.IssuerURL, cfg.Audience, cfg.AllowedIssuers)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		return v, nil
	case cfg.JWTSecret != "":
		v, err := middleware.NewHS256Validator(cfg.JWTSecret, cfg.Audience)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, nil
	}
}

// errNoAuth is returned by Handler when a production server has no token
// validator.
var errNoAuth = errors.New("authentication is required in production")
