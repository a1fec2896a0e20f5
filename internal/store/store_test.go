package store

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(Config{Path: filepath.Join(dir, "test.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Files.FindByStatus(FileStatusPending, 10); err != nil {
		t.Fatalf("querying a fresh migrated schema failed: %v", err)
	}
}

func TestOpen_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s1, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	s1.Close()

	s2, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("second Open() on an already-migrated db error = %v", err)
	}
	s2.Close()
}

func TestChunk(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	got := chunk(items, 3)
	want := [][]int{{1, 2, 3}, {4, 5, 6}, {7}}
	if len(got) != len(want) {
		t.Fatalf("chunk() produced %d batches, want %d", len(got), len(want))
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("batch %d len = %d, want %d", i, len(got[i]), len(want[i]))
		}
	}
}

func TestChunk_Empty(t *testing.T) {
	if got := chunk([]int{}, 3); len(got) != 0 {
		t.Fatalf("chunk(empty) = %v, want no batches", got)
	}
}
