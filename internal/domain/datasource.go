package domain

import (
	"log/slog"
	"strings"
	"time"
)

// DataSource is a logical PostgreSQL connection owned by a workspace. It never
// carries credentials; those live behind its SecretReference.
type DataSource struct {
	ID          string    `json:"id" yaml:"id"`
	WorkspaceID string    `json:"workspaceId" yaml:"-"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"-"`
}

// Secret provider identifiers.
const (
	SecretProviderLocal = "local"
	SecretProviderEnv   = "env"
	SecretProviderS3    = "aws-s3"
	SecretProviderAzure = "azure-blob"
	SecretProviderGCS   = "gcs"
)

// SecretReference points at a credential payload held by a secret provider.
type SecretReference struct {
	Provider   string `json:"provider" yaml:"provider" validate:"required,oneof=local env aws-s3 azure-blob gcs"`
	VaultURL   string `json:"vaultUrl" yaml:"vaultUrl"`
	SecretName string `json:"secretName" yaml:"secretName" validate:"required"`
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`
}

// CacheKey identifies the referenced payload for caching.
func (r SecretReference) CacheKey() string {
	return strings.Join([]string{r.Provider, r.VaultURL, r.SecretName, r.Version}, "|")
}

// SSLConfig enables TLS on a connection. A nil *SSLConfig disables TLS.
type SSLConfig struct {
	RejectUnauthorized bool `json:"rejectUnauthorized"`
}

// ConnectionConfig holds live connection parameters resolved from a secret.
// It is kept in memory only for the lifetime of one connection.
type ConnectionConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
	Database string `validate:"required"`
	User     string `validate:"required"`
	Password string
	SSL      *SSLConfig
}

// LogValue keeps the password out of log output.
func (c ConnectionConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", c.Host),
		slog.Int("port", c.Port),
		slog.String("database", c.Database),
		slog.String("user", c.User),
		slog.Bool("ssl", c.SSL != nil),
	)
}
