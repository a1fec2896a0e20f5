package main

import (
	"context"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/anidbclient/internal/errs"
	"github.com/kraklabs/anidbclient/pkg/sync"
)

// syncCommand implements `anidb sync [--limit n]` and `anidb sync gc
// [--max-age duration]`, draining or housekeeping the persistent
// sync_queue, per SPEC_FULL.md §11's clear_completed(max_age_ms)
// supplement.
func syncCommand(args []string, globals GlobalFlags) error {
	if len(args) > 0 && args[0] == "gc" {
		return syncGC(args[1:], globals)
	}

	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "maximum number of tasks to process")
	if err := fs.Parse(args); err != nil {
		return errs.Wrap(errs.ValidationInvalidConfiguration, "parse sync flags", err)
	}

	cfgPath, err := configPath(globals.ConfigPath)
	if err != nil {
		return err
	}
	cfg := loadConfig(cfgPath)

	st, err := openStore(cfgPath)
	if err != nil {
		return err
	}
	defer st.Close()

	client := newClient(cfg)
	if err := client.Connect(context.Background()); err != nil {
		return err
	}
	defer client.Disconnect()

	svc := sync.NewService(client, st, credReader(cfgPath))
	summary, err := svc.ProcessQueue(context.Background(), *limit, sync.Options{})
	if err != nil {
		return err
	}

	fmt.Printf("processed=%d succeeded=%d already_in_list=%d failed=%d\n",
		summary.Processed, summary.Succeeded, summary.AlreadyInList, summary.Failed)
	return nil
}

func syncGC(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("sync gc", flag.ContinueOnError)
	maxAge := fs.Duration("max-age", 30*24*time.Hour, "delete completed tasks older than this")
	if err := fs.Parse(args); err != nil {
		return errs.Wrap(errs.ValidationInvalidConfiguration, "parse sync gc flags", err)
	}

	cfgPath, err := configPath(globals.ConfigPath)
	if err != nil {
		return err
	}
	st, err := openStore(cfgPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SyncQueue.ClearCompleted(time.Now().UnixMilli(), maxAge.Milliseconds()); err != nil {
		return err
	}
	fmt.Println("cleared completed sync_queue tasks older than", maxAge)
	return nil
}
