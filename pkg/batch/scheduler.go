// Package batch implements the adaptive-concurrency scheduler driving
// pkg/hashpipe over a set of files: a pre-pass stat that buckets each
// path by size category, smart ordering, and a semaphore whose width
// is periodically recomputed against a memory-pressure ratio.
//
// Grounded on pkg/agent/supervisor.go's ticker-driven periodic
// recomputation loop, generalized from a health-check poll to a
// concurrency-width poll.
package batch

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/kraklabs/anidbclient/internal/errs"
	"github.com/kraklabs/anidbclient/pkg/hashpipe"
)

// SizeCategory buckets a file by size for ordering and per-category
// concurrency caps (spec §4.4).
type SizeCategory int

const (
	Small SizeCategory = iota // < 100 MiB
	Medium                    // < 1 GiB
	Large                     // < 10 GiB
	Huge                      // >= 10 GiB
)

func (c SizeCategory) String() string {
	switch c {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	case Huge:
		return "huge"
	default:
		return "unknown"
	}
}

const (
	mib = 1 << 20
	gib = 1 << 30
)

// Categorize returns the SizeCategory for a file of the given size.
func Categorize(size int64) SizeCategory {
	switch {
	case size < 100*mib:
		return Small
	case size < 1*gib:
		return Medium
	case size < 10*gib:
		return Large
	default:
		return Huge
	}
}

// perFileCap is the per-category concurrency ceiling from spec §4.4,
// taken as the min with the current adaptive global width.
var perFileCap = map[SizeCategory]int{
	Small:  8,
	Medium: 4,
	Large:  2,
	Huge:   1,
}

// Config tunes a Scheduler. Zero values take the documented defaults.
type Config struct {
	// BaseConcurrency seeds the adaptive controller; min is always 1,
	// max is always 2×BaseConcurrency. Zero means 4.
	BaseConcurrency int
	// CheckInterval is how often the controller recomputes the
	// concurrency width against memory pressure. Zero means 500ms.
	CheckInterval time.Duration
	// WarningThreshold is the memory-usage ratio above which the
	// controller narrows the width by one. Zero means 0.8.
	WarningThreshold float64
	// ContinueOnError, if true (the default), records per-file
	// failures and keeps scheduling the rest of the batch. If false,
	// the first hard error cancels pending work.
	ContinueOnError bool
	// ContinueOnErrorSet distinguishes an explicit false from an unset
	// zero value, since ContinueOnError defaults to true.
	ContinueOnErrorSet bool
	// Algorithms is the fixed hash algorithm set every file in the
	// batch is run through.
	Algorithms []string
	Pool       *hashpipe.Pool

	// MemoryUsage reports the current memory-pressure ratio in [0,1].
	// Tests inject a fake; production wires a real sampler. Nil means
	// the controller never narrows or widens (stays at base).
	MemoryUsage func() float64
}

func (c Config) baseConcurrency() int {
	if c.BaseConcurrency <= 0 {
		return 4
	}
	return c.BaseConcurrency
}

func (c Config) checkInterval() time.Duration {
	if c.CheckInterval <= 0 {
		return 500 * time.Millisecond
	}
	return c.CheckInterval
}

func (c Config) warningThreshold() float64 {
	if c.WarningThreshold <= 0 {
		return 0.8
	}
	return c.WarningThreshold
}

func (c Config) continueOnError() bool {
	if !c.ContinueOnErrorSet {
		return true
	}
	return c.ContinueOnError
}

// Item is one path entered into the pre-pass.
type Item struct {
	Path     string
	Size     int64
	Category SizeCategory

	// originalIndex is the item's position in the paths slice Run was
	// given, before preStat's smart-batching sort reorders items. It
	// is used to restore input order in Summary.Results.
	originalIndex int
}

// FileResult is the per-file outcome of a Run call.
type FileResult struct {
	Path string
	Ok   bool
	Res  *hashpipe.Result
	Err  error

	originalIndex int
}

// Progress is reported after every completed file.
type Progress struct {
	Completed int
	Total     int
}

// Summary is the aggregate outcome of one Run call.
type Summary struct {
	Total      int
	Successful int
	Failed     int
	Results    []FileResult
}

// Scheduler runs a batch of files through a hashpipe.Pool under
// adaptive concurrency.
type Scheduler struct {
	cfg Config
}

// NewScheduler constructs a Scheduler.
func NewScheduler(cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg}
}

// preStat resolves each path to an Item, sorted by (category, size)
// ascending (spec §4.4 "smart batching"). Paths that cannot be stat'd
// become immediate FileResult failures, returned separately so the
// caller still accounts for them in the summary.
func preStat(paths []string) ([]Item, []FileResult) {
	items := make([]Item, 0, len(paths))
	var failures []FileResult
	for i, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			failures = append(failures, FileResult{
				Path:          p,
				Err:           errs.Wrap(errs.IoFileNotFound, "stat failed during batch pre-pass: "+p, err),
				originalIndex: i,
			})
			continue
		}
		size := info.Size()
		items = append(items, Item{Path: p, Size: size, Category: Categorize(size), originalIndex: i})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Size < items[j].Size
	})
	return items, failures
}

// Run executes the batch over paths, reporting (completed, total)
// progress on progressCh after every result (including pre-pass
// failures, counted as completed immediately). It blocks until every
// item finishes, ctx is cancelled, or (when ContinueOnError is false)
// a hard error stops pending scheduling.
func (s *Scheduler) Run(ctx context.Context, paths []string, progressCh chan<- Progress) (*Summary, error) {
	items, preFailures := preStat(paths)
	total := len(items) + len(preFailures)

	summary := &Summary{Total: total}
	results := make([]FileResult, total)
	for _, fr := range preFailures {
		results[fr.originalIndex] = fr
	}
	summary.Failed += len(preFailures)

	completed := len(preFailures)
	reportProgress(progressCh, completed, total)

	if len(items) == 0 {
		summary.Results = results
		return summary, nil
	}

	controller := newConcurrencyController(s.cfg)
	controller.start(ctx)
	defer controller.stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		hardErr  error
		resultCh = make(chan FileResult, len(items))
		wg       sync.WaitGroup
	)

	for _, item := range items {
		if ctx.Err() != nil || hardErr != nil {
			break
		}

		width := controller.capFor(item.Category)
		if err := controller.acquire(ctx, item.Category, width); err != nil {
			resultCh <- FileResult{Path: item.Path, Err: err, originalIndex: item.originalIndex}
			continue
		}

		wg.Add(1)
		go func(it Item) {
			defer wg.Done()
			defer controller.release(it.Category)

			res, err := s.runOne(ctx, it.Path)
			fr := FileResult{Path: it.Path, Ok: err == nil, Res: res, Err: err, originalIndex: it.originalIndex}
			resultCh <- fr

			if err != nil && !s.cfg.continueOnError() {
				mu.Lock()
				if hardErr == nil {
					hardErr = err
					cancel()
				}
				mu.Unlock()
			}
		}(item)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for fr := range resultCh {
		results[fr.originalIndex] = fr
		if fr.Ok {
			summary.Successful++
		} else {
			summary.Failed++
		}
		completed++
		reportProgress(progressCh, completed, total)
	}

	summary.Results = results
	return summary, hardErr
}

func (s *Scheduler) runOne(ctx context.Context, path string) (*hashpipe.Result, error) {
	pl, err := s.cfg.Pool.Acquire(s.cfg.Algorithms)
	if err != nil {
		return nil, err
	}

	res, err := pl.Run(ctx, path, nil)
	if err != nil {
		s.cfg.Pool.Discard(s.cfg.Algorithms)
		return nil, err
	}
	s.cfg.Pool.Release(s.cfg.Algorithms, pl)
	return res, nil
}

func reportProgress(ch chan<- Progress, completed, total int) {
	if ch == nil {
		return
	}
	select {
	case ch <- Progress{Completed: completed, Total: total}:
	default:
	}
}
