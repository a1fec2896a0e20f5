package proto

import (
	"context"
	"sync"
	"time"
)

// minSendGap is the minimum interval between sends: AniDB requires
// >=2.0s, a 0.5s safety margin is applied on top (spec §4.8).
const minSendGap = 2500 * time.Millisecond

// rateLimiter is a single global critical section guarding one
// last_sent instant, per spec §5: "the rate limiter is a shared
// critical section guarding a single last_sent instant." Grounded on
// internal/dht/rate_limiter.go's RateLimiter, generalized from a
// per-key token-bucket map down to one bucket of capacity 1 whose
// refill period is the minimum gap — reusing that type's Allow/Wait
// vocabulary rather than its multi-key bookkeeping.
type rateLimiter struct {
	mu       sync.Mutex
	lastSent time.Time
	gap      time.Duration
}

func newRateLimiter(gap time.Duration) *rateLimiter {
	if gap <= 0 {
		gap = minSendGap
	}
	return &rateLimiter{gap: gap}
}

// Wait blocks until a send is permitted, then records the send instant
// and returns it. It respects context cancellation.
func (r *rateLimiter) Wait(ctx context.Context) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if !r.lastSent.IsZero() {
		elapsed := now.Sub(r.lastSent)
		if wait := r.gap - elapsed; wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return time.Time{}, ctx.Err()
			}
			now = time.Now()
		}
	}
	r.lastSent = now
	return now, nil
}
