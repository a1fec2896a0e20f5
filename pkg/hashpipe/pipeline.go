// Package hashpipe implements the streaming multi-hash pipeline: a
// chunked file reader driving a short, fixed stage list (validation
// then hashing) over a bounded-memory chunk buffer, plus a pool of
// reusable pipelines keyed by algorithm set.
package hashpipe

import (
	"context"
	"os"

	"github.com/kraklabs/anidbclient/internal/errs"
	"github.com/kraklabs/anidbclient/pkg/hashpipe/hasher"
)

// Config tunes a Pipeline. A zero value for any field means "use the
// documented default," following the teacher's swim.Config convention.
type Config struct {
	// MaxFileSize caps the size of file this pipeline will hash.
	// Zero means the default of 100 GiB.
	MaxFileSize int64
	// ChunkSize is the preferred read size before §4.2's derivation
	// rules adjust it for the algorithm set and memory budget. Zero
	// means the derivation's own default (32 KiB).
	ChunkSize int
	// MemoryBudgetBytes informs chunk-size clamping under pressure.
	// Zero disables the clamp.
	MemoryBudgetBytes int64
	// RejectEmptyChunks, if true, treats a zero-length read as a
	// validation failure instead of a (harmless) no-op.
	RejectEmptyChunks bool
	// ProgressBuffer is not read by the pipeline: Run sends progress
	// events to the channel its caller passes, with that channel's own
	// buffering.
	ProgressBuffer int
}

const defaultMaxFileSize = 100 << 30 // 100 GiB

func (c Config) maxFileSize() int64 {
	if c.MaxFileSize <= 0 {
		return defaultMaxFileSize
	}
	return c.MaxFileSize
}

// Pipeline runs a fixed, discriminated stage list — validation then
// hashing, per the design note "stages are discriminated variants, not
// open polymorphism." A Pipeline is built once by the Pool for a
// specific algorithm set and reused across many files via reset.
type Pipeline struct {
	cfg        Config
	algorithms []string
	hashing    *hashingStage
	validation *validationStage
}

// Result is the outcome of one pipeline run.
type Result struct {
	Path    string
	Size    int64
	Hashes  map[string]string
	Elapsed map[string]int64 // per-algorithm duration in milliseconds, keyed same as Hashes
}

// newPipeline builds a fresh Pipeline for the given algorithm set, in
// the order given — that order becomes the fixed per-chunk hasher
// update order (spec §5: "must not affect the output").
func newPipeline(algorithms []string, cfg Config) (*Pipeline, error) {
	set, err := hasher.NewSet(algorithms)
	if err != nil {
		return nil, errs.Wrap(errs.ValidationInvalidConfiguration, "unknown hash algorithm", err)
	}
	return &Pipeline{
		cfg:        cfg,
		algorithms: append([]string(nil), algorithms...),
		validation: &validationStage{cfg: cfg},
		hashing:    &hashingStage{cfg: cfg, hashers: set, order: append([]string(nil), algorithms...)},
	}, nil
}

// reset returns the pipeline to its just-built state so the Pool can
// hand it to the next file without reallocating hashers.
func (p *Pipeline) reset() {
	for _, h := range p.hashing.hashers {
		h.Reset()
	}
	p.hashing.progress = nil
}

// Run executes validation then hashing over path, reporting progress
// on progressCh if non-nil. It is not restartable after an error: the
// caller (the Pool/batch scheduler) must discard a failed pipeline
// rather than reuse it, per spec §4.2.
func (p *Pipeline) Run(ctx context.Context, path string, progressCh chan<- HashProgress) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound(path)
		}
		return nil, errs.Wrap(errs.IoPermission, "stat failed: "+path, err)
	}
	size := info.Size()

	if err := p.validation.check(path, size); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.IoPermission, "open failed: "+path, err)
	}
	defer f.Close()

	p.hashing.progress = progressCh
	if err := p.hashing.run(ctx, path, f, size); err != nil {
		return nil, err
	}

	hashes, elapsed := p.hashing.finalize()
	return &Result{Path: path, Size: size, Hashes: hashes, Elapsed: elapsed}, nil
}

// Algorithms reports the fixed algorithm set this pipeline was built
// for, in update order.
func (p *Pipeline) Algorithms() []string { return p.algorithms }
