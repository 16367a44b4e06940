// Package config loads server and CLI configuration from defaults, an
// optional YAML file, GRAPHABLE_ environment variables and flags.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable the loader reads. Nested
// keys use a double underscore: GRAPHABLE_RATE_LIMIT__RPS sets rate_limit.rps.
const EnvPrefix = "GRAPHABLE_"

// InsecureEncryptionKey is the development default. It is rejected in
// production.
const InsecureEncryptionKey = "0000000000000000000000000000000000000000000000000000000000000000"

// AuthConfig configures bearer-token authentication.
type AuthConfig struct {
	JWTSecret      string   `koanf:"jwt_secret"`
	IssuerURL      string   `koanf:"issuer_url"`
	JWKSURL        string   `koanf:"jwks_url"`
	Audience       string   `koanf:"audience"`
	AllowedIssuers []string `koanf:"allowed_issuers"`
	WorkspaceClaim string   `koanf:"workspace_claim"`
}

// OIDCEnabled reports whether an external identity provider is configured.
func (a AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != "" || a.JWKSURL != ""
}

// Enabled reports whether any token validator is configured.
func (a AuthConfig) Enabled() bool {
	return a.OIDCEnabled() || a.JWTSecret != ""
}

// RateLimitConfig configures the per-client limiter.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// ExecutionConfig tunes query execution.
type ExecutionConfig struct {
	QueryConnectTimeout    time.Duration `koanf:"query_connect_timeout"`
	MetadataConnectTimeout time.Duration `koanf:"metadata_connect_timeout"`
	MaxRows                int           `koanf:"max_rows"`
	MaxPageSize            int           `koanf:"max_page_size"`
	// DashboardConcurrency caps concurrently running tiles; 0 is unbounded.
	DashboardConcurrency int `koanf:"dashboard_concurrency"`
	ResultCacheSize      int `koanf:"result_cache_size"`
}

// S3Config locates payloads for the aws-s3 secret provider.
type S3Config struct {
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`
	KeyID    string `koanf:"key_id"`
	Secret   string `koanf:"secret"`
}

// AzureConfig holds shared-key credentials for the azure-blob provider.
type AzureConfig struct {
	AccountName string `koanf:"account_name"`
	AccountKey  string `koanf:"account_key"`
}

// GCSConfig configures the gcs provider. An empty credentials file uses
// application default credentials.
type GCSConfig struct {
	Enabled         bool   `koanf:"enabled"`
	CredentialsFile string `koanf:"credentials_file"`
}

// SecretsConfig configures secret resolution and caching.
type SecretsConfig struct {
	CacheTTL   time.Duration `koanf:"cache_ttl"`
	CacheSize  int           `koanf:"cache_size"`
	CacheSweep string        `koanf:"cache_sweep"`
	S3         S3Config      `koanf:"s3"`
	Azure      AzureConfig   `koanf:"azure"`
	GCS        GCSConfig     `koanf:"gcs"`
}

// Config is the full application configuration.
type Config struct {
	ListenAddr    string          `koanf:"listen_addr"`
	MetaDBPath    string          `koanf:"meta_db_path"`
	EncryptionKey string          `koanf:"encryption_key"`
	LogLevel      string          `koanf:"log_level"`
	Env           string          `koanf:"env"`
	TLSCertFile   string          `koanf:"tls_cert_file"`
	TLSKeyFile    string          `koanf:"tls_key_file"`
	RateLimit     RateLimitConfig `koanf:"rate_limit"`
	CORS          CORSConfig      `koanf:"cors"`
	Auth          AuthConfig      `koanf:"auth"`
	Execution     ExecutionConfig `koanf:"execution"`
	Secrets       SecretsConfig   `koanf:"secrets"`

	// Warnings collects non-fatal findings for the caller to log once a
	// logger exists.
	Warnings []string `koanf:"-"`
}

func defaults() map[string]any {
	return map[string]any{
		"listen_addr":                        ":8080",
		"meta_db_path":                       "graphable_meta.sqlite",
		"encryption_key":                     InsecureEncryptionKey,
		"log_level":                          "info",
		"env":                                "development",
		"rate_limit.rps":                     100.0,
		"rate_limit.burst":                   200,
		"cors.allowed_origins":               []string{"*"},
		"auth.workspace_claim":               "workspace",
		"execution.query_connect_timeout":    30 * time.Second,
		"execution.metadata_connect_timeout": 5 * time.Second,
		"execution.max_rows":                 10000,
		"execution.max_page_size":            10000,
		"execution.dashboard_concurrency":    0,
		"execution.result_cache_size":        256,
		"secrets.cache_ttl":                  5 * time.Minute,
		"secrets.cache_size":                 1024,
		"secrets.cache_sweep":                "@every 1m",
	}
}

// Load merges, in increasing precedence: defaults, the YAML file at path
// (skipped when empty), environment variables and flags that were set
// explicitly. Flag names use kebab case for the snake case keys.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// flagKey maps "rate-limit.rps" style flag names onto config keys.
func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func (c *Config) validate() error {
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("tls_cert_file and tls_key_file must be set together")
	}
	if c.Auth.IssuerURL != "" && c.Auth.Audience == "" {
		return fmt.Errorf("auth.audience is required when auth.issuer_url is set")
	}
	if c.Secrets.CacheTTL <= 0 {
		return fmt.Errorf("secrets.cache_ttl must be positive")
	}
	if (c.Secrets.Azure.AccountName == "") != (c.Secrets.Azure.AccountKey == "") {
		return fmt.Errorf("secrets.azure.account_name and account_key must be set together")
	}
	if c.Execution.DashboardConcurrency < 0 {
		return fmt.Errorf("execution.dashboard_concurrency must not be negative")
	}

	if c.EncryptionKey == InsecureEncryptionKey {
		c.Warnings = append(c.Warnings, "encryption_key not set; using the insecure development key")
	}
	if !c.Auth.Enabled() {
		c.Warnings = append(c.Warnings, "no authentication configured; set auth.jwt_secret or auth.issuer_url")
	}

	if !c.IsProduction() {
		return nil
	}
	if c.EncryptionKey == InsecureEncryptionKey {
		return fmt.Errorf("encryption_key must be set in production")
	}
	for _, o := range c.CORS.AllowedOrigins {
		if o == "*" {
			return fmt.Errorf("cors wildcard (*) is not allowed in production")
		}
	}
	if !c.Auth.OIDCEnabled() {
		return fmt.Errorf("auth.issuer_url or auth.jwks_url must be set in production")
	}
	return nil
}

// IsProduction reports whether env is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// SlogLevel maps LogLevel onto a slog level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// S3Enabled reports whether the aws-s3 provider has a region to talk to.
func (s SecretsConfig) S3Enabled() bool {
	return s.S3.Region != ""
}

// AzureEnabled reports whether azure-blob credentials are configured.
func (s SecretsConfig) AzureEnabled() bool {
	return s.Azure.AccountName != ""
}
