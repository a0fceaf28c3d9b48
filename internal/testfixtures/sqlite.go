package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/room-booking/internal/persistence/sqlite"
)

// NewSQLiteStore opens a migrated SQLite store on a temporary file. The store
// is closed automatically when the test finishes.
func NewSQLiteStore(tb testing.TB) *sqlite.Store {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "booking.db")
	store, err := sqlite.OpenStore(context.Background(), sqlite.DefaultConfig(path), QuietLogger())
	if err != nil {
		tb.Fatalf("failed to open sqlite store: %v", err)
	}

	tb.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// QuietLogger discards everything below error level.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
