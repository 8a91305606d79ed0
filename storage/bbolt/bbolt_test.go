package bbolt

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmcleod/securevault/storage"
	"go.etcd.io/bbolt"
)

func newTestDB(t *testing.T) *bbolt.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault-test.db")
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBBoltStore(t *testing.T) {
	s, err := NewStore(newTestDB(t), "")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

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

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := s.Get("missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Keys", func(t *testing.T) {
		s.Set("app-secure-a", "x")
		s.Set("zzz", "x")
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
		if _, err := s.Get("app-secure-k"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

func TestBBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	s, err := NewStoreFromFile(path, nil)
	if err != nil {
		t.Fatalf("NewStoreFromFile failed: %v", err)
	}
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := NewStoreFromFile(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get("k")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got != "v" {
		t.Errorf("expected v, got %q", got)
	}
}
