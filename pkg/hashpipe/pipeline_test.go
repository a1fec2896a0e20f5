package hashpipe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kraklabs/anidbclient/internal/errs"
	"github.com/kraklabs/anidbclient/pkg/hashpipe/hasher"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestPipeline_SingleFileTwoAlgorithms(t *testing.T) {
	path := writeTemp(t, "test content")
	pl, err := newPipeline([]string{hasher.ED2K, hasher.CRC32}, Config{})
	if err != nil {
		t.Fatalf("newPipeline: %v", err)
	}
	res, err := pl.Run(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Hashes[hasher.ED2K] != "a69899814931280e2f527219ad6ac754" {
		t.Errorf("ED2K = %s, want a69899814931280e2f527219ad6ac754", res.Hashes[hasher.ED2K])
	}
	if res.Hashes[hasher.CRC32] != "57f4675d" {
		t.Errorf("CRC32 = %s, want 57f4675d", res.Hashes[hasher.CRC32])
	}
	if len(res.Hashes) != 2 {
		t.Errorf("len(Hashes) = %d, want 2", len(res.Hashes))
	}
}

func TestPipeline_Determinism(t *testing.T) {
	path := writeTemp(t, "the quick brown fox jumps over the lazy dog, twice over for good measure")
	algos := []string{hasher.ED2K, hasher.MD5, hasher.SHA1, hasher.TTH}

	pl1, _ := newPipeline(algos, Config{})
	r1, err := pl1.Run(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Run 1: %v", err)
	}

	pl2, _ := newPipeline(algos, Config{})
	r2, err := pl2.Run(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Run 2: %v", err)
	}

	for _, a := range algos {
		if r1.Hashes[a] != r2.Hashes[a] {
			t.Errorf("%s not deterministic: %s != %s", a, r1.Hashes[a], r2.Hashes[a])
		}
	}
}

func TestPipeline_SingleAlgorithmMatchesSetMember(t *testing.T) {
	path := writeTemp(t, "pipeline consistency across algorithm sets")

	alone, _ := newPipeline([]string{hasher.SHA1}, Config{})
	rAlone, err := alone.Run(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Run alone: %v", err)
	}

	inSet, _ := newPipeline([]string{hasher.MD5, hasher.SHA1, hasher.CRC32}, Config{})
	rSet, err := inSet.Run(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Run in set: %v", err)
	}

	if rAlone.Hashes[hasher.SHA1] != rSet.Hashes[hasher.SHA1] {
		t.Errorf("SHA1 alone = %s, in set = %s, want equal", rAlone.Hashes[hasher.SHA1], rSet.Hashes[hasher.SHA1])
	}
}

func TestPipeline_FileNotFound(t *testing.T) {
	pl, _ := newPipeline([]string{hasher.CRC32}, Config{})
	_, err := pl.Run(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	if err == nil {
		t.Fatal("want error for missing file")
	}
	e, ok := errs.As(err)
	if !ok || e.Kind != errs.IoFileNotFound {
		t.Errorf("err = %v, want errs.IoFileNotFound", err)
	}
}

func TestPipeline_FileTooLarge(t *testing.T) {
	path := writeTemp(t, "0123456789")
	pl, _ := newPipeline([]string{hasher.CRC32}, Config{MaxFileSize: 5})
	_, err := pl.Run(context.Background(), path, nil)
	if err == nil {
		t.Fatal("want error for oversize file")
	}
	e, ok := errs.As(err)
	if !ok || e.Category() != errs.CategoryValidation {
		t.Errorf("err = %v, want a Validation error", err)
	}
}

func TestPipeline_EmptyFile(t *testing.T) {
	path := writeTemp(t, "")
	pl, _ := newPipeline([]string{hasher.MD5, hasher.CRC32}, Config{})
	res, err := pl.Run(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Hashes[hasher.CRC32] != "00000000" {
		t.Errorf("CRC32(empty) = %s, want 00000000", res.Hashes[hasher.CRC32])
	}
}

func TestPipeline_Reuse(t *testing.T) {
	pathA := writeTemp(t, "a")
	pathB := writeTemp(t, "abc")

	pl, _ := newPipeline([]string{hasher.MD5}, Config{})
	r1, err := pl.Run(context.Background(), pathA, nil)
	if err != nil {
		t.Fatalf("Run 1: %v", err)
	}
	pl.reset()
	r2, err := pl.Run(context.Background(), pathB, nil)
	if err != nil {
		t.Fatalf("Run 2: %v", err)
	}
	if r1.Hashes[hasher.MD5] == r2.Hashes[hasher.MD5] {
		t.Error("reused pipeline did not reset hasher state between runs")
	}
}
