package testfixtures

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/example/session-scheduler/internal/store"
)

// migrationDir resolves the repository's migrations directory relative to
// this source file, so tests can run regardless of the invoking package's
// working directory.
func migrationDir() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")
}

// NewStoreRepository opens an in-memory store migrated to the current
// schema, for repository-layer integration tests, mirroring the teacher's
// temporary-SQLite-per-test harness.
func NewStoreRepository(tb testing.TB) *store.Repository {
	tb.Helper()

	engine, err := store.Open(context.Background(), ":memory:", migrationDir())
	if err != nil {
		tb.Fatalf("open store: %v", err)
	}
	tb.Cleanup(func() { _ = engine.Close() })

	return store.NewRepository(engine)
}
