// Package sqlite stores allocations in a single SQLite table as JSON blobs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/alexshd/apportion"
	"github.com/alexshd/apportion/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store persists allocations keyed by name.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "apportion.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS allocations (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		seats INTEGER NOT NULL,
		saved_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create allocations table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Driver returns store.DriverSQLite.
func (s *Store) Driver() store.Driver { return store.DriverSQLite }

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
		`INSERT INTO allocations(key,payload,seats,saved_at) VALUES(?,?,?,?)
		 ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, seats=excluded.seats, saved_at=excluded.saved_at`,
		key, data, a.Total(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Load returns the allocation saved under key.
func (s *Store) Load(ctx context.Context, key string) (apportion.Allocation, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM allocations WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return store.Decode(data)
}

// Keys lists saved keys in order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM allocations ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("select keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
