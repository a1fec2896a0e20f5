package proto

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// linearBackOff implements backoff.BackOff with the spec's exact
// retry formula (retry_delay * attempt), since the library ships only
// constant and exponential strategies out of the box.
type linearBackOff struct {
	delay   time.Duration
	attempt int
}

func newLinearBackOff(delay time.Duration) *linearBackOff {
	return &linearBackOff{delay: delay}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.delay * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// withRetryCap bounds a backoff.BackOff to maxRetries attempts, using
// the library's own WithMaxRetries wrapper so retry-loop plumbing
// (context cancellation, max-elapsed-time) stays the library's, not
// hand-rolled.
func withRetryCap(b backoff.BackOff, maxRetries uint64) backoff.BackOff {
	return backoff.WithMaxRetries(b, maxRetries)
}

// exponentialBackOff configures cenkalti/backoff/v4's ExponentialBackOff
// with the parameters of the sync retry formula (initial * 2^retry_count,
// capped at max, per spec §4.10). The sync service does not call it;
// pkg/sync computes its delay with its own retryDelay.
func exponentialBackOff(initial, max time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.Multiplier = 2
	b.RandomizationFactor = 0 // spec's formula is exact, no jitter
	b.MaxElapsedTime = 0      // caller bounds attempts by retry_count, not elapsed time
	return b
}
