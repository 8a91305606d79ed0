package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/securevault/storage"
)

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	dsn := os.Getenv("SECUREVAULT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SECUREVAULT_TEST_POSTGRES_DSN not set; skipping PostgreSQL tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("could not connect to postgres: %v", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("could not ensure schema: %v", err)
	}

	pool.Exec(ctx, "DELETE FROM local_entries") //nolint:errcheck

	return NewStore(pool), func() {
		pool.Exec(ctx, "DELETE FROM local_entries") //nolint:errcheck
		pool.Close()
	}
}

func TestPostgresStore(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()

	t.Run("SetGet", func(t *testing.T) {
		if err := s.Set("app-secure-k", "sealed"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := s.Get("app-secure-k")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != "sealed" {
			t.Errorf("expected sealed, got %q", got)
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		s.Set("app-secure-k", "sealed-2")
		got, _ := s.Get("app-secure-k")
		if got != "sealed-2" {
			t.Errorf("expected overwrite, got %q", got)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		if _, err := s.Get("missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("KeysTreatsPrefixLiterally", func(t *testing.T) {
		s.Set("app_secure-x", "v")
		s.Set("app-secure-a", "v")
		keys, err := s.Keys("app-secure-")
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		if len(keys) != 2 || keys[0] != "app-secure-a" || keys[1] != "app-secure-k" {
			t.Errorf("unexpected keys %v", keys)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Delete("app-secure-k"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := s.Delete("app-secure-k"); err != nil {
			t.Errorf("deleting a missing key should succeed: %v", err)
		}
	})
}
