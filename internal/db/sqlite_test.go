package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	w := dsn("/tmp/meta.sqlite", true)
	assert.True(t, strings.HasPrefix(w, "/tmp/meta.sqlite?"))
	assert.Contains(t, w, "_journal_mode=WAL")
	assert.Contains(t, w, "_foreign_keys=on")
	assert.Contains(t, w, "_txlock=immediate")

	r := dsn("/tmp/meta.sqlite", false)
	assert.Contains(t, r, "_busy_timeout=5000")
	assert.NotContains(t, r, "_txlock")
}

func TestOpen(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "meta.sqlite"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, 1, s.Write.Stats().MaxOpenConnections)
	assert.Equal(t, defaultReadConn, s.Read.Stats().MaxOpenConnections)

	var mode string
	require.NoError(t, s.Write.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("", 0)
	require.Error(t, err)
}

func TestMigrate(t *testing.T) {
	s := OpenTestStore(t)

	for _, table := range []string{"data_sources", "secret_references", "secrets", "graphs", "dashboards", "audit_log"} {
		var name string
		err := s.Read.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	require.NoError(t, Migrate(s.Write), "migrations are idempotent")
}
