// Package sqlite implements persistence.Store on SQLite through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store persists rooms and meetings in SQLite. Writers hold the per-room lock
// and run inside BEGIN IMMEDIATE transactions.
type Store struct {
	pool   *ConnectionPool
	locks  *persistence.RoomLocks
	retry  *persistence.RetryHelper
	logger *slog.Logger
}

var _ persistence.Store = (*Store)(nil)

// New wraps an open pool.
func New(pool *ConnectionPool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:   pool,
		locks:  persistence.NewRoomLocks(),
		retry:  persistence.NewRetryHelper(persistence.DefaultRetryConfig(), isRetryable),
		logger: logger.With("component", "sqlite_store"),
	}
}

// OpenStore opens the database, applies migrations and returns a ready store.
func OpenStore(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	pool, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	store := New(pool, logger)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	manager := migration.NewManager(s.pool.DB(), migration.DialectSQLite, migrationFiles, "migrations", s.logger)
	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// timeLayout is fixed width and always UTC so text comparison matches
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", value, err)
	}
	return t, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
