// Package main implements the anidb CLI: a thin orchestrator wiring
// internal/store, pkg/proto, pkg/hashpipe, pkg/batch, pkg/identify and
// pkg/sync behind a flat subcommand dispatcher.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kraklabs/anidbclient/internal/config"
	"github.com/kraklabs/anidbclient/internal/credentials"
	"github.com/kraklabs/anidbclient/internal/errs"
	"github.com/kraklabs/anidbclient/internal/store"
	"github.com/kraklabs/anidbclient/pkg/proto"
	"github.com/kraklabs/anidbclient/pkg/proto/transport"
)

// Build-time variables set by ldflags.
var (
	version    = "dev"
	buildTime  = "unknown"
	commitHash = "unknown"
)

// exitCode classifies err into the CLI's exit codes: 0 success, 1 user
// error, 2 remote error, 3 internal.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	e, ok := errs.As(err)
	if !ok {
		return 3
	}
	switch e.Category() {
	case errs.CategoryIo, errs.CategoryValidation:
		return 1
	case errs.CategoryProtocol:
		return 2
	default:
		return 3
	}
}

// configPath resolves --config, falling back to config.DefaultPath().
func configPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return config.DefaultPath()
}

// loadConfig loads the config file at path, falling back to
// config.Default() if none exists yet (every subcommand except
// `config init` should still run against sane defaults).
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Default()
	}
	return cfg
}

// openStore opens the sqlite database under the config directory,
// defaulting to <config dir>/anidb.db.
func openStore(cfgPath string) (*store.Store, error) {
	dbPath := filepath.Join(filepath.Dir(cfgPath), "anidb.db")
	return store.Open(store.Config{Path: dbPath})
}

// newClient builds an unconnected proto.Client from cfg.Server.
func newClient(cfg *config.Config) *proto.Client {
	return proto.New(proto.Config{
		Transport: transport.Config{
			Server:         cfg.Server.Host,
			Port:           cfg.Server.Port,
			ConnectTimeout: time.Duration(cfg.Server.ConnectTimeout) * time.Second,
		},
		MaxRetries:     cfg.Server.MaxRetries,
		RetryDelay:     time.Duration(cfg.Server.RetryDelayMs) * time.Millisecond,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		ClientName:     "anidbclient",
		ClientVersion:  "1",
	})
}

func credReader(cfgPath string) credentials.ReadWriter {
	return credentials.NewConfigFileStore(cfgPath)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(3)
}

func dieWithErr(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitCode(err))
}
