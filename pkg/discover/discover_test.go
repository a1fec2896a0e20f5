package discover

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestWalk_VisitsRegularFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mkv"))
	writeFile(t, filepath.Join(root, "sub", "b.mkv"))

	var found []string
	err := Walk(Config{Root: root}, func(path string, size int64) error {
		found = append(found, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	sort.Strings(found)
	if len(found) != 2 {
		t.Fatalf("Walk() visited %v, want 2 files", found)
	}
}

func TestWalk_ExcludesGlobPattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mkv"))
	writeFile(t, filepath.Join(root, "b.tmp"))

	var found []string
	err := Walk(Config{Root: root, Exclude: []string{"*.tmp"}}, func(path string, size int64) error {
		found = append(found, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(found) != 1 || filepath.Base(found[0]) != "a.mkv" {
		t.Fatalf("Walk() = %v, want only a.mkv", found)
	}
}

func TestWalk_ExcludesDirectorySubtree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.mkv"))
	writeFile(t, filepath.Join(root, ".git", "HEAD"))
	writeFile(t, filepath.Join(root, ".git", "objects", "blob"))

	var found []string
	err := Walk(Config{Root: root, Exclude: []string{".git/**"}}, func(path string, size int64) error {
		found = append(found, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(found) != 1 || filepath.Base(found[0]) != "keep.mkv" {
		t.Fatalf("Walk() = %v, want only keep.mkv (entire .git subtree pruned)", found)
	}
}

func TestWalk_PropagatesVisitError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mkv"))

	sentinel := os.ErrPermission
	err := Walk(Config{Root: root}, func(path string, size int64) error {
		return sentinel
	})
	if err == nil {
		t.Fatal("Walk() should propagate a visit error")
	}
}
