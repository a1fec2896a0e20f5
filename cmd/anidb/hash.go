package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/anidbclient/internal/errs"
	"github.com/kraklabs/anidbclient/internal/store"
	"github.com/kraklabs/anidbclient/pkg/batch"
	"github.com/kraklabs/anidbclient/pkg/discover"
	"github.com/kraklabs/anidbclient/pkg/hashpipe"
)

// hashCommand implements `anidb hash [--algo a,b,c] [--concurrency n] path...`.
// A directory path is swept with pkg/discover; a file path is hashed
// directly. Results are persisted to the store as hashed files.
func hashCommand(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	algo := fs.String("algo", "", "comma-separated algorithm set (default: hashing.default_algorithms from config)")
	concurrency := fs.Int("concurrency", 0, "base concurrency (default: 4, adaptive)")
	if err := fs.Parse(args); err != nil {
		return errs.Wrap(errs.ValidationInvalidConfiguration, "parse hash flags", err)
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return errs.New(errs.ValidationMissingField, "hash: at least one path is required")
	}

	cfgPath, err := configPath(globals.ConfigPath)
	if err != nil {
		return err
	}
	cfg := loadConfig(cfgPath)

	algorithms := cfg.Hashing.DefaultAlgorithms
	if *algo != "" {
		algorithms = strings.Split(*algo, ",")
	}

	st, err := openStore(cfgPath)
	if err != nil {
		return err
	}
	defer st.Close()

	expanded, err := expandPaths(paths, cfg.Discovery.Exclude)
	if err != nil {
		return err
	}

	pool := hashpipe.NewPool(hashpipe.PoolConfig{})
	sched := batch.NewScheduler(batch.Config{
		BaseConcurrency: *concurrency,
		Algorithms:      algorithms,
		Pool:            pool,
	})

	var bar *progressbar.ProgressBar
	progressCh := make(chan batch.Progress, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progressCh {
			if globals.Quiet {
				continue
			}
			if bar == nil {
				bar = progressbar.Default(int64(p.Total), "hashing")
			}
			bar.Set(p.Completed)
		}
	}()

	summary, err := sched.Run(context.Background(), expanded, progressCh)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	if err := persistHashResults(st, summary, algorithms); err != nil {
		return err
	}

	fmt.Printf("hashed %d/%d files (%d failed)\n", summary.Successful, summary.Total, summary.Failed)
	for _, r := range summary.Results {
		if !r.Ok {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", r.Path, r.Err)
		}
	}
	if summary.Failed > 0 && summary.Successful == 0 {
		return errs.Newf(errs.IoFileNotFound, "all %d files failed to hash", summary.Failed)
	}
	return nil
}

// expandPaths walks any directory argument with pkg/discover and
// passes file arguments through unchanged.
func expandPaths(paths []string, exclude []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errs.Wrap(errs.IoFileNotFound, "stat "+p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		if err := discover.Walk(discover.Config{Root: p, Exclude: exclude}, func(path string, size int64) error {
			out = append(out, path)
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// persistHashResults upserts a files row plus one hashes row per
// algorithm for every successful result in summary.
func persistHashResults(st *store.Store, summary *batch.Summary, algorithms []string) error {
	for _, r := range summary.Results {
		if !r.Ok || r.Res == nil {
			continue
		}
		if err := st.Files.BatchInsert([]store.File{{Path: r.Path, Size: r.Res.Size, Status: store.FileStatusHashed}}); err != nil {
			return err
		}
		f, err := st.Files.FindByPath(r.Path)
		if err != nil {
			return err
		}
		for _, algo := range algorithms {
			value, ok := r.Res.Hashes[algo]
			if !ok {
				continue
			}
			if err := st.Hashes.Upsert(store.Hash{FileID: f.ID, Algorithm: algo, HashValue: value}); err != nil {
				return err
			}
		}
	}
	return nil
}
