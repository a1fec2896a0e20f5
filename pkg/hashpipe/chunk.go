package hashpipe

import "github.com/kraklabs/anidbclient/pkg/hashpipe/hasher"

// Default chunk sizing knobs (spec §4.2).
const (
	ed2kChunkBytes      = 9_728_000
	multiAlgoFloorBytes = 1 << 20 // 1 MiB
	tightBudgetBytes    = 100 << 20
	looseBudgetBytes    = 200 << 20
	tightChunkBytes     = 16 << 10
	looseChunkBytes     = 32 << 10
)

// preferredChunkSize derives the chunk size a pipeline should read the
// file in, from the algorithm set and a memory budget, per spec §4.2:
//
//   - ED2K present            -> exactly the ED2K partition size (avoids
//     re-buffering against the ED2K chunk boundary).
//   - else multiple algorithms -> max(configured, 1 MiB).
//   - else                     -> configured, clamped down further when
//     the budget is tight.
func preferredChunkSize(algorithms []string, configured int, memoryBudgetBytes int64) int {
	if configured <= 0 {
		configured = looseChunkBytes
	}

	hasED2K := false
	for _, a := range algorithms {
		if a == hasher.ED2K {
			hasED2K = true
			break
		}
	}
	if hasED2K {
		return ed2kChunkBytes
	}

	if len(algorithms) > 1 {
		if configured < multiAlgoFloorBytes {
			return multiAlgoFloorBytes
		}
		return configured
	}

	switch {
	case memoryBudgetBytes > 0 && memoryBudgetBytes < tightBudgetBytes:
		return tightChunkBytes
	case memoryBudgetBytes > 0 && memoryBudgetBytes < looseBudgetBytes:
		return looseChunkBytes
	default:
		return configured
	}
}
