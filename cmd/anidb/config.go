package main

import (
	"fmt"

	"github.com/kraklabs/anidbclient/internal/config"
	"github.com/kraklabs/anidbclient/internal/errs"
)

// configCommand implements `anidb config init|get <key>|set <key>
// <value>|list`.
func configCommand(args []string, globals GlobalFlags) error {
	if len(args) == 0 {
		return errs.New(errs.ValidationMissingField, "config: expected init, get, set, or list")
	}

	path, err := configPath(globals.ConfigPath)
	if err != nil {
		return err
	}

	switch args[0] {
	case "init":
		_, err := config.Init(path)
		if err != nil {
			return err
		}
		fmt.Println("wrote", path)
		return nil
	case "get":
		if len(args) != 2 {
			return errs.New(errs.ValidationMissingField, "config get: expected exactly one key")
		}
		cfg := loadConfig(path)
		value, err := config.Get(cfg, args[1])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	case "set":
		if len(args) != 3 {
			return errs.New(errs.ValidationMissingField, "config set: expected a key and a value")
		}
		cfg := loadConfig(path)
		if err := config.Set(cfg, args[1], args[2]); err != nil {
			return err
		}
		return config.Save(path, cfg)
	case "list":
		cfg := loadConfig(path)
		for _, line := range config.List(cfg) {
			fmt.Println(line)
		}
		return nil
	default:
		return errs.Newf(errs.ValidationInvalidConfiguration, "config: unknown subcommand %q", args[0])
	}
}
