package engine

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"graphable/internal/domain"
)

// Opener opens a single-connection database handle for a resolved data source.
type Opener interface {
	Open(ctx context.Context, cfg domain.ConnectionConfig, connectTimeout time.Duration) (*sql.DB, error)
}

// PgxOpener connects to PostgreSQL through pgx's database/sql driver.
type PgxOpener struct{}

var _ Opener = PgxOpener{}

// Open builds a pgx connection config, applies the connect timeout and TLS
// settings, and verifies the connection.
func (PgxOpener) Open(ctx context.Context, cfg domain.ConnectionConfig, connectTimeout time.Duration) (*sql.DB, error) {
	connCfg, err := pgx.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection config: %w", err)
	}
	connCfg.ConnectTimeout = connectTimeout
	connCfg.TLSConfig = TLSConfig(cfg)
	connCfg.Fallbacks = nil

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ConnString renders cfg as a postgres URL with TLS disabled; TLS is applied
// separately through TLSConfig.
func ConnString(cfg domain.ConnectionConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// TLSConfig returns the client TLS settings for cfg, or nil when TLS is off.
func TLSConfig(cfg domain.ConnectionConfig) *tls.Config {
	if cfg.SSL == nil {
		return nil
	}
	return &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: !cfg.SSL.RejectUnauthorized, //nolint:gosec // user-controlled per data source
		MinVersion:         tls.VersionTLS12,
	}
}
