package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kraklabs/anidbclient/pkg/hashpipe"
	"github.com/kraklabs/anidbclient/pkg/hashpipe/hasher"
)

func writeTempFile(t *testing.T, dir, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestCategorize(t *testing.T) {
	cases := []struct {
		size int64
		want SizeCategory
	}{
		{0, Small},
		{100*mib - 1, Small},
		{100 * mib, Medium},
		{1*gib - 1, Medium},
		{1 * gib, Large},
		{10*gib - 1, Large},
		{10 * gib, Huge},
	}
	for _, c := range cases {
		if got := Categorize(c.size); got != c.want {
			t.Errorf("Categorize(%d) = %v, want %v", c.size, got, c.want)
		}
	}
}

func TestScheduler_RunSucceedsAndReportsProgress(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeTempFile(t, dir, "a.txt", "hello"),
		writeTempFile(t, dir, "b.txt", "world!!"),
	}

	pool := hashpipe.NewPool(hashpipe.PoolConfig{})
	sched := NewScheduler(Config{
		Algorithms: []string{hasher.MD5},
		Pool:       pool,
	})

	progressCh := make(chan Progress, 10)
	summary, err := sched.Run(context.Background(), paths, progressCh)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Total != 2 || summary.Successful != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want total=2 successful=2 failed=0", summary)
	}

	var lastProgress Progress
	for {
		select {
		case p := <-progressCh:
			lastProgress = p
			continue
		default:
		}
		break
	}
	if lastProgress.Completed != 2 || lastProgress.Total != 2 {
		t.Errorf("final progress = %+v, want completed=2 total=2", lastProgress)
	}
}

func TestScheduler_MissingFileIsImmediateFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeTempFile(t, dir, "good.txt", "content")
	missing := filepath.Join(dir, "does-not-exist.txt")

	pool := hashpipe.NewPool(hashpipe.PoolConfig{})
	sched := NewScheduler(Config{
		Algorithms: []string{hasher.CRC32},
		Pool:       pool,
	})

	summary, err := sched.Run(context.Background(), []string{good, missing}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Total != 2 || summary.Successful != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want total=2 successful=1 failed=1", summary)
	}
}

func TestScheduler_ContinueOnErrorFalseStopsEarly(t *testing.T) {
	dir := t.TempDir()
	missing1 := filepath.Join(dir, "missing1.txt")
	missing2 := filepath.Join(dir, "missing2.txt")
	good := writeTempFile(t, dir, "good.txt", "content")

	pool := hashpipe.NewPool(hashpipe.PoolConfig{})
	sched := NewScheduler(Config{
		Algorithms:         []string{hasher.CRC32},
		Pool:               pool,
		ContinueOnError:    false,
		ContinueOnErrorSet: true,
	})

	// Pre-pass failures always get recorded up front regardless of
	// ContinueOnError, since they happen before any concurrent work starts.
	summary, _ := sched.Run(context.Background(), []string{missing1, missing2, good}, nil)
	if summary.Failed < 2 {
		t.Fatalf("summary = %+v, want at least the two pre-pass failures recorded", summary)
	}
}

func TestScheduler_RunPreservesInputOrder(t *testing.T) {
	dir := t.TempDir()
	// Sizes are chosen so preStat's (category, size) sort would
	// reorder them if that order leaked into the results. big.txt is
	// sparse (truncated, not written) so the test stays cheap.
	big := filepath.Join(dir, "big.txt")
	bigFile, err := os.Create(big)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := bigFile.Truncate(150 * mib); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	bigFile.Close()

	missing := filepath.Join(dir, "missing.txt")
	small := writeTempFile(t, dir, "small.txt", "x")

	paths := []string{big, missing, small}

	pool := hashpipe.NewPool(hashpipe.PoolConfig{})
	sched := NewScheduler(Config{
		Algorithms: []string{hasher.CRC32},
		Pool:       pool,
	})

	summary, err := sched.Run(context.Background(), paths, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(summary.Results) != len(paths) {
		t.Fatalf("len(Results) = %d, want %d", len(summary.Results), len(paths))
	}
	for i, want := range paths {
		if got := summary.Results[i].Path; got != want {
			t.Errorf("Results[%d].Path = %q, want %q (input order not preserved)", i, got, want)
		}
	}
	if summary.Results[1].Ok {
		t.Error("Results[1] (missing file) should not be Ok")
	}
}

func TestConfig_Defaults(t *testing.T) {
	var c Config
	if c.baseConcurrency() != 4 {
		t.Errorf("baseConcurrency() = %d, want 4", c.baseConcurrency())
	}
	if c.warningThreshold() != 0.8 {
		t.Errorf("warningThreshold() = %v, want 0.8", c.warningThreshold())
	}
	if !c.continueOnError() {
		t.Error("continueOnError() default should be true")
	}
}
