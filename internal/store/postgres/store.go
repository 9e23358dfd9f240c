// Package postgres stores allocations in PostgreSQL through pgx's
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/alexshd/apportion"
	"github.com/alexshd/apportion/internal/store"
)

var _ store.Store = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/apportion?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const ddl = `CREATE TABLE IF NOT EXISTS allocations (
	key TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	seats INTEGER NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store persists allocations keyed by name.
type Store struct {
	db *sql.DB
}

// NewStore connects using dsn (falls back to defaultDSN) and ensures the
// allocations table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newStore(ctx, db)
}

func newStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create allocations table: %w", err)
	}
	return &Store{db: db}, nil
}

// Driver returns store.DriverPostgres.
func (s *Store) Driver() store.Driver { return store.DriverPostgres }

// Save upserts the allocation under key.
func (s *Store) Save(ctx context.Context, key string, a apportion.Allocation) error {
	if err := store.CheckKey(key); err != nil {
		return err
	}
	data, err := store.Encode(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO allocations(key, payload, seats, saved_at) VALUES($1, $2, $3, now())
		 ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, seats = EXCLUDED.seats, saved_at = now()`,
		key, string(data), a.Total())
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Load returns the allocation saved under key.
func (s *Store) Load(ctx context.Context, key string) (apportion.Allocation, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM allocations WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return store.Decode(data)
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
