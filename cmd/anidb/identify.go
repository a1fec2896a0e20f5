package main

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/anidbclient/internal/errs"
	"github.com/kraklabs/anidbclient/pkg/hashpipe"
	"github.com/kraklabs/anidbclient/pkg/identify"
)

// identifyCommand implements `anidb identify [--fid n] [--no-cache]
// [--offline] path`.
func identifyCommand(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("identify", flag.ContinueOnError)
	fid := fs.Int64("fid", 0, "identify by AniDB file id instead of a local path")
	noCache := fs.Bool("no-cache", false, "skip the local cache and always go to the network")
	offline := fs.Bool("offline", false, "enqueue a deferred retry instead of failing on a network error")
	if err := fs.Parse(args); err != nil {
		return errs.Wrap(errs.ValidationInvalidConfiguration, "parse identify flags", err)
	}
	paths := fs.Args()
	if *fid == 0 && len(paths) != 1 {
		return errs.New(errs.ValidationMissingField, "identify: exactly one path is required unless --fid is set")
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

	creds, err := credReader(cfgPath).Read()
	if err != nil {
		return err
	}
	if _, err := client.Authenticate(context.Background(), creds.Username, creds.Password); err != nil {
		return err
	}

	pool := hashpipe.NewPool(hashpipe.PoolConfig{})
	svc := identify.NewService(pool, client, st)

	src := identify.Source{}
	if *fid != 0 {
		src.Fid = *fid
	} else {
		src.Path = paths[0]
	}

	res, err := svc.Identify(context.Background(), src, identify.Options{
		UseCache:    !*noCache,
		OfflineMode: *offline,
	})
	if err != nil {
		return err
	}

	printIdentifyResult(res)
	return nil
}

func printIdentifyResult(res *identify.Result) {
	switch res.ResultSource {
	case identify.SourceCache:
		fmt.Printf("from cache (age %s)\n", res.Age.Round(1e9))
	case identify.SourceNetwork:
		fmt.Printf("from network (%s)\n", res.ResponseTime.Round(1e6))
	case identify.SourceQueued:
		fmt.Println("network unavailable, queued for a later sync pass")
		return
	}
	fmt.Printf("anime=%d episode=%d (%s) group=%s [%s] quality=%s codec=%s\n",
		res.AnimeID, res.EpisodeID, res.EpisodeNumber, res.GroupName, res.GroupShort, res.Quality, res.Codec)
	if res.Titles.Romaji != "" || res.Titles.English != "" {
		fmt.Printf("title: %s / %s\n", res.Titles.Romaji, res.Titles.English)
	}
}
