package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/medilink/internal/persistence"
	"github.com/example/medilink/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Identities persistence.IdentityRepository
	Records    persistence.RecordRepository
	Alerts     persistence.AlertRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "medilink.db")

	pool, err := sqlite.NewConnectionPool(path)
	if err != nil {
		tb.Fatalf("failed to open sqlite pool: %v", err)
	}
	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		pool.Close()
		tb.Fatalf("failed to run migrations: %v", err)
	}

	harness := &SQLiteHarness{
		Identities: sqlite.NewIdentityRepository(pool),
		Records:    sqlite.NewRecordRepository(pool),
		Alerts:     sqlite.NewAlertRepository(pool),
		cleanup: func() {
			pool.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}
