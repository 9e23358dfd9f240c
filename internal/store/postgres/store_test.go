package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alexshd/apportion"
	"github.com/alexshd/apportion/internal/store"
)

func TestNewStore_OpenError(t *testing.T) {
	openMu.Lock()
	orig := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("boom") }
	openMu.Unlock()
	defer func() {
		openMu.Lock()
		sqlOpen = orig
		openMu.Unlock()
	}()

	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatal("expected open error")
	}
}

func TestNewStore_PingError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Unreachable port; the cancelled context fails the ping immediately.
	if _, err := NewStore(ctx, "postgres://127.0.0.1:1/none?sslmode=disable&connect_timeout=1"); err == nil {
		t.Fatal("expected ping error")
	}
}

// TestStore_Integration runs against a live database when
// APPORTION_TEST_POSTGRES_DSN is set.
func TestStore_Integration(t *testing.T) {
	dsn := os.Getenv("APPORTION_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("APPORTION_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	s, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() {
		_, _ = s.DB().ExecContext(ctx, `DELETE FROM allocations WHERE key LIKE 'test-%'`)
		_ = s.Close()
	}()

	if s.Driver() != store.DriverPostgres {
		t.Errorf("driver = %s", s.Driver())
	}

	want := apportion.Allocation{"A": 2, "B": 5}
	if err := s.Save(ctx, "test-run", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx, "test-run")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Load(ctx, "test-missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
