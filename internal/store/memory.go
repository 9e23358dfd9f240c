package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexshd/apportion"
)

// Memory keeps encoded allocations in process memory. Intended for tests.
type Memory struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{objs: make(map[string][]byte)} }

// Driver returns DriverMemory.
func (m *Memory) Driver() Driver { return DriverMemory }

// Save stores a copy of a under key.
func (m *Memory) Save(_ context.Context, key string, a apportion.Allocation) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	data, err := Encode(a)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objs[key] = data
	m.mu.Unlock()
	return nil
}

// Load returns the allocation saved under key.
func (m *Memory) Load(_ context.Context, key string) (apportion.Allocation, error) {
	m.mu.RLock()
	data, ok := m.objs[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return Decode(data)
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
