// Package sqlite implements core.KV as a single table in a SQLite file.
//
// The database runs in embedded mode through ncruces/go-sqlite3 (a wasm
// build of SQLite, no cgo) with WAL enabled so a reader process never
// blocks on the writer.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/introspection"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/aretw0/moss/pkg/core"
)

// DefaultFileName is the database file created inside a data dir.
const DefaultFileName = "moss.db"

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// KV implements core.KV on a SQLite database.
type KV struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	conn   *sql.DB // nil once closed
	writes int
}

// ErrClosed is returned by operations on a closed KV.
var ErrClosed = errors.New("sqlite store is closed")

func (k *KV) db() (*sql.DB, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.conn == nil {
		return nil, ErrClosed
	}
	return k.conn, nil
}

// Open creates or opens the database at path. Use ":memory:" for a
// throwaway database. The caller must call Close.
func Open(path string, logger *slog.Logger) (*KV, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", core.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	connStr := "file:" + path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps pragmas and in-memory databases consistent.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	kv := &KV{conn: conn, path: path, logger: logger}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Debug("sqlite store opened", "path", path)
	return kv, nil
}

// Get implements core.KV.
func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	conn, err := k.db()
	if err != nil {
		return "", false, err
	}
	var value string
	err = conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements core.KV.
func (k *KV) Set(ctx context.Context, key, value string) error {
	conn, err := k.db()
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	k.mu.Lock()
	k.writes++
	k.mu.Unlock()
	return nil
}

// Clear implements core.KV.
func (k *KV) Clear(ctx context.Context) error {
	conn, err := k.db()
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("failed to clear: %w", err)
	}
	return nil
}

// Close checkpoints the WAL and closes the database.
func (k *KV) Close() error {
	k.mu.Lock()
	conn := k.conn
	k.conn = nil
	k.mu.Unlock()
	if conn == nil {
		return nil
	}

	if _, err := conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		k.logger.Warn("failed to checkpoint WAL", "error", err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// KVState exposes internal state for observability.
type KVState struct {
	Path   string `json:"path"`
	Keys   int    `json:"keys"`
	Writes int    `json:"writes"`
}

// State implements introspection.Introspectable.
func (k *KV) State() any {
	k.mu.Lock()
	st := KVState{Path: k.path, Writes: k.writes}
	conn := k.conn
	k.mu.Unlock()
	if conn != nil {
		_ = conn.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&st.Keys)
	}
	return st
}

// ComponentType implements introspection.Component.
func (k *KV) ComponentType() string { return "sqlite" }

var _ core.KV = (*KV)(nil)
var _ introspection.Introspectable = (*KV)(nil)
var _ introspection.Component = (*KV)(nil)
