// Package postgres implements the storage contract on PostgreSQL.
//
// This is the production driver: the disposition tables share one
// database with the intake queue, and concurrent bridge workers rely on
// row locks (FOR UPDATE SKIP LOCKED) for the job claim.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/apqllyqn/lead-disposition/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on PostgreSQL.
type Store struct {
	queries
	db     *sql.DB
	closed atomic.Bool
}

// New opens a PostgreSQL-backed store and ensures the schema exists.
// The dsn is a standard postgres connection string.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
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

// RunInTransaction executes fn within a single database transaction,
// rolling back on error or panic.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx storage.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	tx := &txStore{}
	tx.queries.db = sqlTx

	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// txStore exposes the row-level operations inside an open transaction.
type txStore struct {
	queries
}

var _ storage.Tx = (*txStore)(nil)

// dbtx is the common surface of *sql.DB and *sql.Tx the shared query
// methods run against.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every SQL operation, embedded both by Store
// (auto-commit) and txStore (transactional).
type queries struct {
	db dbtx
}
