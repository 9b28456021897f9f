// Package store is the persistence engine for the scheduling backend: seven
// tenant-partitioned tables over modernc.org/sqlite, exposed as a narrow
// repository API plus the conditional-write and transaction primitives the
// Capacity Ledger and Booking Engine compose into cross-entity atomicity.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/session-scheduler/internal/persistence/sqlite"
	"github.com/example/session-scheduler/internal/persistence/sqlite/migration"
)

// Engine owns the database connection and the schema migration bootstrap.
type Engine struct {
	pool   *sqlite.ConnectionPool
	helper *sqlite.QueryHelper
	mapper *sqlite.ErrorMapper
}

// Open connects to dsn, runs pending migrations from migrationDir, and
// returns a ready Engine. Passing ":memory:" for dsn is the idiom used by
// tests.
func Open(ctx context.Context, dsn, migrationDir string) (*Engine, error) {
	cfg := migration.DefaultSQLiteConfig(dsn)
	if dsn == ":memory:" {
		cfg = migration.InMemoryTestSQLiteConfig()
	}

	pool, err := sqlite.NewConnectionPool(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	scanner := migration.NewFileScanner()
	executor := migration.NewSQLiteExecutor(pool.DB())
	manager := migration.NewMigrationManager(scanner, executor, migrationDir)
	if err := manager.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Engine{
		pool:   pool,
		helper: sqlite.NewQueryHelper(pool),
		mapper: sqlite.NewErrorMapper(),
	}, nil
}

// Close releases the underlying connection.
func (e *Engine) Close() error {
	return e.pool.Close()
}

// RunTx executes fn inside a single database transaction, committing on a
// nil return and rolling back otherwise. This is the primitive the Booking
// Engine uses to compose a booking insert and a capacity-ledger update into
// one atomic unit (spec.md §4.4/§4.5).
func (e *Engine) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return e.pool.WithTransaction(ctx, fn)
}

// RunReadOnlyTx executes fn inside a read-only transaction, giving a
// multi-statement read a single consistent snapshot instead of letting each
// statement see a separately-committed state. BatchGetSessionSummaries uses
// this so a chunked batch read can't observe a summary row mutated by a
// booking that commits between two chunks.
func (e *Engine) RunReadOnlyTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return e.pool.WithReadOnlyTransaction(ctx, fn)
}

// Repository bundles all entity access over a single Engine.
type Repository struct {
	engine *Engine
}

// NewRepository builds a Repository over engine.
func NewRepository(engine *Engine) *Repository {
	return &Repository{engine: engine}
}

// RunTx delegates to the underlying Engine's transaction wrapper so callers
// only need to depend on Repository.
func (r *Repository) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return r.engine.RunTx(ctx, fn)
}

// RunReadOnlyTx delegates to the underlying Engine's read-only transaction
// wrapper so callers only need to depend on Repository.
func (r *Repository) RunReadOnlyTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return r.engine.RunReadOnlyTx(ctx, fn)
}
