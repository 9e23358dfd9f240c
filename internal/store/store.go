// Package store persists seat allocations for later comparison runs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alexshd/apportion"
)

// Driver identifies a concrete storage backend.
type Driver string

const (
	DriverFile     Driver = "file"     // one JSON file per key (default)
	DriverMemory   Driver = "memory"   // process memory (tests)
	DriverSQLite   Driver = "sqlite"   // embedded SQLite database
	DriverPostgres Driver = "postgres" // PostgreSQL via pgx
	DriverS3       Driver = "s3"       // S3 / MinIO compatible bucket
)

// ErrNotFound is returned by Load for an unknown key.
var ErrNotFound = errors.New("allocation not found")

// Store saves and loads allocations by key. Save overwrites.
type Store interface {
	Save(ctx context.Context, key string, a apportion.Allocation) error
	Load(ctx context.Context, key string) (apportion.Allocation, error)
	Close() error
	Driver() Driver
}

// ParseDriver validates a driver name.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(s); d {
	case DriverFile, DriverMemory, DriverSQLite, DriverPostgres, DriverS3:
		return d, nil
	default:
		return "", fmt.Errorf("unknown store driver %q", s)
	}
}

// Encode serializes an allocation as a JSON object, keys sorted.
func Encode(a apportion.Allocation) ([]byte, error) {
	if len(a) == 0 {
		return nil, fmt.Errorf("%w: empty allocation", apportion.ErrInvalidInput)
	}
	return json.Marshal(map[string]int(a))
}

// Decode parses a JSON object written by Encode (or by the original
// --save option). Every region must hold at least one seat.
func Decode(data []byte) (apportion.Allocation, error) {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode allocation: %w", err)
	}
	a := apportion.Allocation(m)
	if err := a.Validate(a.Total()); err != nil {
		return nil, err
	}
	return a, nil
}

// CheckKey rejects empty keys.
func CheckKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty store key", apportion.ErrInvalidInput)
	}
	return nil
}
