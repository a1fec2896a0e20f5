package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// GlobalFlags holds the flags accepted before the subcommand name,
// following vjache-cie/cmd/cie's GlobalFlags-plus-SetInterspersed(false)
// pattern so each subcommand's own flags pass through untouched.
type GlobalFlags struct {
	ConfigPath string
	Quiet      bool
}

func main() {
	var globals GlobalFlags
	flag.StringVar(&globals.ConfigPath, "config", "", "path to config.yaml (default ~/.anidb/config.yaml)")
	flag.BoolVarP(&globals.Quiet, "quiet", "q", false, "suppress progress output")
	flag.SetInterspersed(false)
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		printUsage()
	case "hash":
		os.Exit(exitCode(hashCommand(cmdArgs, globals)))
	case "identify":
		os.Exit(exitCode(identifyCommand(cmdArgs, globals)))
	case "sync":
		os.Exit(exitCode(syncCommand(cmdArgs, globals)))
	case "auth":
		os.Exit(exitCode(authCommand(cmdArgs, globals)))
	case "config":
		os.Exit(exitCode(configCommand(cmdArgs, globals)))
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("anidb version %s (built %s, commit %s)\n", version, buildTime, commitHash)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `anidb - AniDB file identification client

Usage:
  anidb [global flags] <command> [command flags]

Commands:
  hash       compute hash algorithms over one or more files
  identify   identify a file against AniDB, using the local cache first
  sync       drain the persistent sync queue (mylist add/del) against AniDB
  auth       login | logout | status
  config     init | get <key> | set <key> <value> | list
  version    print version information
  help       print this message

Global flags:
  --config string   path to config.yaml (default ~/.anidb/config.yaml)
  -q, --quiet        suppress progress output`)
}
