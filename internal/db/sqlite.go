// Package db opens the SQLite metadata store and applies its migrations.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

const (
	busyTimeoutMs   = "5000"
	defaultReadConn = 4
	pingTimeout     = 5 * time.Second
)

// Store pairs a single-connection writer with a pooled reader over the same
// SQLite file. Repositories write through Write and may read through either.
type Store struct {
	Write *sql.DB
	Read  *sql.DB
}

// Open opens the metadata store at path. readConns bounds the reader pool;
// zero uses the default.
func Open(path string, readConns int) (*Store, error) {
	if path == "" {
		return nil, errors.New("metadata store path is required")
	}
	if readConns <= 0 {
		readConns = defaultReadConn
	}

	w, err := openPool(dsn(path, true), 1)
	if err != nil {
		return nil, fmt.Errorf("open metadata writer: %w", err)
	}
	r, err := openPool(dsn(path, false), readConns)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("open metadata reader: %w", err)
	}
	return &Store{Write: w, Read: r}, nil
}

// Close closes both pools.
func (s *Store) Close() error {
	return errors.Join(s.Read.Close(), s.Write.Close())
}

func openPool(dsn string, conns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// dsn enables WAL, foreign keys and a busy timeout. The writer also takes
// its write lock when a transaction begins.
func dsn(path string, writer bool) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", busyTimeoutMs)
	q.Set("_synchronous", "NORMAL")
	q.Set("_foreign_keys", "on")
	if writer {
		q.Set("_txlock", "immediate")
	}
	return path + "?" + q.Encode()
}
