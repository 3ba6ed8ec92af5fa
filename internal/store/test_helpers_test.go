package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with fixed metadata.
func createTestRun(id string) Run {
	return Run{
		ID:        id,
		Version:   "1.0.0",
		Platform:  "linux/amd64",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// recordRun writes a committed run with the given results, keyed by name.
func recordRun(t *testing.T, s *Store, id string, results map[string]bool, order ...string) Run {
	t.Helper()
	ctx := context.Background()

	tx, err := s.BeginRun(ctx, createTestRun(id))
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	for _, name := range order {
		if err := tx.WriteResult(ctx, name, "", results[name]); err != nil {
			tx.Rollback()
			t.Fatalf("WriteResult(%q) failed: %v", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	return tx.Run()
}
