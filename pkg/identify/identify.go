// Package identify implements the identification service: resolve a
// file (by path, fid, or (ed2k,size)) to anime/episode/group metadata,
// preferring a fresh cache entry over a network round trip.
//
// Grounded on pkg/agent/agent.go's InitializeDHT/InitializeSWIMAndGossip
// composition-of-subsystems style: a service struct holding references
// to its collaborators, constructed once, exposing one primary verb.
package identify

import (
	"context"
	"time"

	"github.com/kraklabs/anidbclient/internal/blob"
	"github.com/kraklabs/anidbclient/internal/errs"
	"github.com/kraklabs/anidbclient/internal/store"
	"github.com/kraklabs/anidbclient/pkg/hashpipe"
	"github.com/kraklabs/anidbclient/pkg/hashpipe/hasher"
	"github.com/kraklabs/anidbclient/pkg/proto"
)

const defaultCacheTTL = 7 * 24 * time.Hour

// Source is a discriminated identification source, per spec §4.9.
type Source struct {
	Path string // source = path
	Fid  int64  // source = fid (nonzero selects this variant)
	Ed2k string // source = (ed2k, size)
	Size int64
}

// Options tunes one Identify call.
type Options struct {
	UseCache    bool
	WithProgress chan<- hashpipe.HashProgress
	CacheTTL    time.Duration
	OfflineMode bool
}

func (o Options) cacheTTL() time.Duration {
	if o.CacheTTL <= 0 {
		return defaultCacheTTL
	}
	return o.CacheTTL
}

// ResultSource discriminates where a Result came from.
type ResultSource int

const (
	SourceCache ResultSource = iota
	SourceNetwork
	SourceQueued
)

// Result is the combined, cache-or-network identification outcome.
type Result struct {
	ResultSource  ResultSource
	Age           time.Duration // set when ResultSource == SourceCache
	ResponseTime  time.Duration // set when ResultSource == SourceNetwork
	FileID        int64
	AnimeID       int64
	EpisodeID     int64
	EpisodeNumber string
	Titles        store.Titles
	GroupName     string
	GroupShort    string
	Quality       string
	Codec         string
	Ed2k          string
	Size          int64
}

// Service composes the hashing pipeline, the protocol client, and the
// store into the identify(source, options) operation.
type Service struct {
	Pool   *hashpipe.Pool
	Client *proto.Client
	Store  *store.Store
}

// NewService constructs a Service from its three collaborators.
func NewService(pool *hashpipe.Pool, client *proto.Client, st *store.Store) *Service {
	return &Service{Pool: pool, Client: client, Store: st}
}

// Identify resolves src per spec §4.9's four-step pseudocode.
func (s *Service) Identify(ctx context.Context, src Source, opts Options) (*Result, error) {
	ed2k, size, fileID, err := s.resolveHash(ctx, src, opts)
	if err != nil {
		return nil, err
	}

	if opts.UseCache && ed2k != "" {
		if res, ok := s.lookupCache(ed2k, size); ok {
			return res, nil
		}
	}

	res, err := s.identifyOverNetwork(ctx, src, ed2k, size, fileID, opts.cacheTTL())
	if err != nil {
		if opts.OfflineMode && isNetworkError(err) {
			// A deferred task needs a local file id; a fid or
			// (ed2k,size) source has none and is reported Queued
			// without one.
			if fileID != 0 {
				if qerr := s.enqueueDeferred(fileID); qerr != nil {
					return nil, qerr
				}
			}
			return &Result{ResultSource: SourceQueued}, nil
		}
		return nil, err
	}
	return res, nil
}

// resolveHash fills in (ed2k, size, fileID) for a path source by
// running an ED2K-only pipeline pass; for a fid or (ed2k,size) source
// it passes the given values through unchanged.
func (s *Service) resolveHash(ctx context.Context, src Source, opts Options) (ed2k string, size int64, fileID int64, err error) {
	if src.Path == "" {
		return src.Ed2k, src.Size, 0, nil
	}

	pl, err := s.Pool.Acquire([]string{hasher.ED2K})
	if err != nil {
		return "", 0, 0, err
	}
	res, runErr := pl.Run(ctx, src.Path, opts.WithProgress)
	if runErr != nil {
		s.Pool.Discard([]string{hasher.ED2K})
		return "", 0, 0, runErr
	}
	s.Pool.Release([]string{hasher.ED2K}, pl)

	f, lookupErr := s.Store.Files.FindByPath(src.Path)
	if lookupErr == nil {
		fileID = f.ID
	}
	return res.Hashes[hasher.ED2K], res.Size, fileID, nil
}

func (s *Service) lookupCache(ed2k string, size int64) (*Result, bool) {
	res, err := s.Store.IdentResults.FindByHashAndSize(ed2k, size)
	if err != nil {
		return nil, false
	}
	now := time.Now().UnixMilli()
	if res.ExpiresAt < now {
		return nil, false
	}

	var titles store.Titles
	if len(res.Titles) > 0 {
		_ = blob.Unmarshal(res.Titles, &titles)
	}

	age := time.Duration(now-res.FetchedAt) * time.Millisecond
	return &Result{
		ResultSource:  SourceCache,
		Age:           age,
		FileID:        res.FileID,
		AnimeID:       res.AnimeID,
		EpisodeID:     res.EpisodeID,
		EpisodeNumber: res.EpisodeNumber,
		Titles:        titles,
		GroupName:     res.GroupName,
		GroupShort:    res.GroupShort,
		Quality:       res.Quality,
		Codec:         res.Codec,
		Ed2k:          ed2k,
		Size:          size,
	}, true
}

// identifyOverNetwork issues FILE, then ANIME/EPISODE/GROUP for the ids
// FILE returned, and upserts the combined result into the store with
// the given cache lifetime.
func (s *Service) identifyOverNetwork(ctx context.Context, src Source, ed2k string, size int64, fileID int64, ttl time.Duration) (*Result, error) {
	start := time.Now()

	file, err := s.Client.File(ctx, src.Fid, size, ed2k)
	if err != nil {
		return nil, err
	}

	var titles store.Titles
	if anime, aerr := s.Client.Anime(ctx, file.AnimeID); aerr == nil {
		titles = store.Titles{Romaji: anime.RomajiName, Kanji: anime.KanjiName, English: anime.EnglishName}
	}
	// Episode/Group would enrich EpisodeNumber/GroupName/GroupShort,
	// which FILE already supplies directly; their replies are discarded
	// and failures here are not fatal.
	_, _ = s.Client.Episode(ctx, file.EpisodeID)
	_, _ = s.Client.Group(ctx, file.GroupID)

	elapsed := time.Since(start)
	now := time.Now().UnixMilli()

	titlesBlob, _ := blob.Marshal(titles)
	record := store.IdentResult{
		FileID:        fileID,
		Ed2kHash:      file.Ed2k,
		FileSize:      file.Size,
		AniDBFileID:   file.FileID,
		AnimeID:       file.AnimeID,
		EpisodeID:     file.EpisodeID,
		EpisodeNumber: file.EpisodeNumber,
		Titles:        titlesBlob,
		GroupName:     file.GroupName,
		GroupShort:    file.GroupShort,
		Quality:       file.Quality,
		Codec:         file.Codec,
		FetchedAt:     now,
		ExpiresAt:     now + ttl.Milliseconds(),
	}
	if err := s.Store.IdentResults.Upsert(record); err != nil {
		return nil, err
	}
	if fileID != 0 {
		_ = s.Store.Files.UpdateStatus([]int64{fileID}, store.FileStatusIdentified)
	}

	return &Result{
		ResultSource:  SourceNetwork,
		ResponseTime:  elapsed,
		FileID:        fileID,
		AnimeID:       file.AnimeID,
		EpisodeID:     file.EpisodeID,
		EpisodeNumber: file.EpisodeNumber,
		Titles:        titles,
		GroupName:     file.GroupName,
		GroupShort:    file.GroupShort,
		Quality:       file.Quality,
		Codec:         file.Codec,
		Ed2k:          file.Ed2k,
		Size:          file.Size,
	}, nil
}

// enqueueDeferred records an identify_deferred sync task for fileID,
// per SPEC_FULL.md §11's offline-mode supplement. The sync service's
// ProcessQueue skips tasks of this operation, and no code in this
// module drains them.
func (s *Service) enqueueDeferred(fileID int64) error {
	if fileID == 0 {
		return errs.New(errs.ValidationMissingField, "cannot enqueue a deferred identification without a file id")
	}
	_, err := s.Store.SyncQueue.Enqueue(store.SyncTask{
		FileID:      fileID,
		Operation:   store.SyncOpIdentifyDeferred,
		ScheduledAt: time.Now().UnixMilli(),
	})
	return err
}

func isNetworkError(err error) bool {
	e, ok := errs.As(err)
	return ok && e.Category() == errs.CategoryProtocol
}
