package hashpipe

import (
	"context"
	"io"
	"time"

	"github.com/kraklabs/anidbclient/internal/errs"
	"github.com/kraklabs/anidbclient/pkg/hashpipe/hasher"
)

// validationStage rejects paths that don't exist (checked by the
// caller via os.Stat before this runs), exceed the configured maximum
// size, or — when configured — ever produce an empty chunk.
type validationStage struct {
	cfg Config
}

func (v *validationStage) check(path string, size int64) error {
	if max := v.cfg.maxFileSize(); size > max {
		return ErrFileTooLarge(path, size, max)
	}
	return nil
}

// hashingStage owns one streaming hasher per configured algorithm. It
// updates every hasher, in a fixed order, on each chunk, and exposes a
// take-once finalize() that calls Finalize on each hasher exactly once.
type hashingStage struct {
	cfg      Config
	hashers  map[string]hasher.StreamHasher
	order    []string // fixed update order, per spec §5
	progress chan<- HashProgress
	elapsed  map[string]int64
}

func (h *hashingStage) run(ctx context.Context, path string, r io.Reader, size int64) error {
	chunkSize := preferredChunkSize(h.order, h.cfg.ChunkSize, h.cfg.MemoryBudgetBytes)
	buf := make([]byte, chunkSize)

	cadences := make(map[string]*progressCadence, len(h.order))
	starts := make(map[string]time.Time, len(h.order))
	for _, name := range h.order {
		cadences[name] = newProgressCadence(size)
		starts[name] = time.Now()
	}

	var processed int64
	for {
		select {
		case <-ctx.Done():
			return errs.CancelledErr
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			for _, name := range h.order {
				h.hashers[name].Update(chunk)
			}
			processed += int64(n)
			h.reportProgress(cadences, processed, size)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return errs.Wrap(errs.IoCorrupt, "read failed", err)
		}
		if n == 0 && err == nil {
			if h.cfg.RejectEmptyChunks {
				return ErrEmptyChunkRejected(path)
			}
			break
		}
	}

	// Always emit a terminal 100% event per algorithm, even for an
	// empty file where the read loop above never ran an Update.
	h.reportProgress(cadences, size, size)

	h.elapsed = make(map[string]int64, len(h.order))
	for _, name := range h.order {
		h.elapsed[name] = time.Since(starts[name]).Milliseconds()
	}
	return nil
}

func (h *hashingStage) reportProgress(cadences map[string]*progressCadence, processed, total int64) {
	if h.progress == nil {
		return
	}
	for _, name := range h.order {
		c := cadences[name]
		if c.shouldReport(processed) {
			ev := HashProgress{Algorithm: name, BytesProcessed: processed, TotalBytes: total}
			select {
			case h.progress <- ev:
			default:
				if processed >= total {
					h.progress <- ev // never drop the terminal event
				}
			}
		}
	}
}

// finalize calls Finalize on every hasher exactly once and returns the
// take-once results map plus per-algorithm elapsed milliseconds.
func (h *hashingStage) finalize() (map[string]string, map[string]int64) {
	out := make(map[string]string, len(h.order))
	for _, name := range h.order {
		out[name] = h.hashers[name].Finalize()
	}
	return out, h.elapsed
}
