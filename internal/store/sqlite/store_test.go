package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alexshd/apportion"
	"github.com/alexshd/apportion/internal/store"
)

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "runs.db")

	s, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = s.Close() }()

	if s.Driver() != store.DriverSQLite || s.Path() != path {
		t.Errorf("driver=%s path=%s", s.Driver(), s.Path())
	}

	first := apportion.Allocation{"A": 2, "B": 4}
	second := apportion.Allocation{"A": 3, "B": 3}
	if err := s.Save(ctx, "run-1", first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, "run-0", second); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(first, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// Upsert replaces.
	if err := s.Save(ctx, "run-1", second); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = s.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(second, got); diff != "" {
		t.Errorf("overwrite mismatch (-want +got):\n%s", diff)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if diff := cmp.Diff([]string{"run-0", "run-1"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Load(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Save(ctx, "", first); !errors.Is(err, apportion.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

// TestStore_Reopen keeps data across connections.
func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Save(ctx, "k", apportion.Allocation{"A": 1, "B": 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()
	if _, err := s.Load(ctx, "k"); err != nil {
		t.Errorf("load after reopen: %v", err)
	}
}
