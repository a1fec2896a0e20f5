// Package discover supplies the minimal filesystem discovery iterator
// spec §1 names ("the core consumes a discovery iterator") but never
// specifies: a filepath.WalkDir sweep honoring glob exclude patterns.
//
// Grounded on vjache-cie's IndexingConfig.Exclude []string field and
// its ExcludeGlobs-matching use in cmd/cie/index.go, adapted from
// source-file indexing to media-file discovery.
package discover

import (
	"io/fs"
	"path/filepath"

	"github.com/kraklabs/anidbclient/internal/errs"
)

// Config tunes a Walk call.
type Config struct {
	// Root is the directory to sweep.
	Root string
	// Exclude is a list of glob patterns (matched against the path
	// relative to Root) that should be skipped. A pattern ending in
	// "/**" excludes an entire directory subtree.
	Exclude []string
}

// Walk sweeps cfg.Root and calls visit for every regular file not
// matched by an exclude pattern. Returning an error from visit stops
// the walk and propagates that error.
func Walk(cfg Config, visit func(path string, size int64) error) error {
	return filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errs.Wrap(errs.IoPermission, "walk failed: "+path, err)
		}

		rel, relErr := filepath.Rel(cfg.Root, path)
		if relErr != nil {
			rel = path
		}

		if d.IsDir() {
			if path != cfg.Root && matchesAny(cfg.Exclude, rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAny(cfg.Exclude, rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return errs.Wrap(errs.IoPermission, "stat failed: "+path, err)
		}
		return visit(path, info.Size())
	})
}

// matchesAny reports whether rel matches any of patterns. A pattern
// ending in "/**" matches a directory (isDir) whose relative path
// equals the prefix before "/**", or any file beneath it (handled by
// SkipDir once the directory itself matches). Other patterns are
// matched with filepath.Match against both the full relative path and
// its base name, so "*.tmp" excludes every .tmp file regardless of depth.
func matchesAny(patterns []string, rel string, isDir bool) bool {
	for _, p := range patterns {
		if prefix, ok := dirGlobPrefix(p); ok {
			if isDir && (rel == prefix || matchGlob(prefix, rel)) {
				return true
			}
			continue
		}
		if matchGlob(p, rel) || matchGlob(p, filepath.Base(rel)) {
			return true
		}
	}
	return false
}

func dirGlobPrefix(pattern string) (string, bool) {
	const suffix = "/**"
	if len(pattern) > len(suffix) && pattern[len(pattern)-len(suffix):] == suffix {
		return pattern[:len(pattern)-len(suffix)], true
	}
	return "", false
}

func matchGlob(pattern, name string) bool {
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}
