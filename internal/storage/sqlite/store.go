// Package sqlite implements the storage contract using SQLite.
//
// This is the zero-install driver: the schema is created automatically
// on open and the database is a single file (or in-memory for tests).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"

	"github.com/apqllyqn/lead-disposition/internal/storage"
)

// Verify interface satisfaction at compile time.
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	queries
	db     *sql.DB
	path   string
	closed atomic.Bool
}

// setupWASMCache configures WASM compilation caching so the embedded
// SQLite build is compiled once per machine instead of on every start.
// Falls back to an in-memory cache when the cache dir cannot be created.
func setupWASMCache() {
	var cache wazero.CompilationCache
	if userCache, err := os.UserCacheDir(); err == nil {
		dir := filepath.Join(userCache, "lead-disposition", "wasm")
		if c, err := wazero.NewCompilationCacheWithDir(dir); err == nil {
			cache = c
		}
	}
	if cache == nil {
		cache = wazero.NewCompilationCache()
	}
	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
}

func init() {
	setupWASMCache()
}

// New opens (and if necessary creates) a SQLite-backed store at path.
// Use ":memory:" for an ephemeral database.
func New(ctx context.Context, path string) (*Store, error) {
	var connStr string
	switch {
	case path == ":memory:":
		// Shared cache so every pooled connection sees the same data.
		// WAL does not work for shared in-memory databases.
		connStr = "file:dispmem?mode=memory&cache=shared&_pragma=journal_mode(DELETE)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"
	case strings.HasPrefix(path, "file:"):
		connStr = path
		if !strings.Contains(path, "_pragma=foreign_keys") {
			connStr += "&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"
		}
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		connStr = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: path}
	s.queries.db = db

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying connection pool. Safe to call twice.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// RunInTransaction executes fn within a single database transaction.
//
// The transaction uses BEGIN IMMEDIATE to acquire the write lock early,
// preventing deadlocks when multiple goroutines compete for it. BUSY
// errors during begin are retried with exponential backoff.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx storage.Tx) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for transaction: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := beginImmediate(ctx, conn); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Background context so rollback completes even when ctx is
			// already cancelled.
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	tx := &txStore{}
	tx.queries.db = conn

	if err := fn(tx); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// beginImmediate starts an IMMEDIATE transaction, retrying SQLITE_BUSY
// with exponential backoff for up to two seconds.
func beginImmediate(ctx context.Context, conn *sql.Conn) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxElapsedTime = 2 * time.Second
	return backoff.Retry(func() error {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err == nil {
			return nil
		}
		if strings.Contains(err.Error(), "busy") || strings.Contains(err.Error(), "locked") {
			return err // retryable
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}

// txStore exposes the row-level operations over a single connection
// holding an open transaction.
type txStore struct {
	queries
}

var _ storage.Tx = (*txStore)(nil)

// dbtx is the common surface of *sql.DB and *sql.Conn that the shared
// query methods run against.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every SQL operation; it is embedded both by Store
// (auto-commit over *sql.DB) and by txStore (inside a transaction over
// a dedicated *sql.Conn).
type queries struct {
	db dbtx
}
