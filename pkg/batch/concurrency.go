package batch

import (
	"context"
	"sync"
	"time"
)

// concurrencyController owns the adaptive global width (spec §4.4):
// base/min/max, periodic recomputation against a memory-pressure
// ratio, plus one fixed-capacity semaphore per size category. A file
// must hold both its category's permit and a global permit to run, so
// the effective per-category concurrency is always the min of the
// category's fixed cap and the controller's current global width.
//
// Grounded on pkg/agent/supervisor.go's ticker-driven periodic
// recomputation loop (there: health checks every HealthCheckInterval;
// here: width recomputation every CheckInterval).
type concurrencyController struct {
	cfg Config

	mu            sync.Mutex
	current       int
	min           int
	max           int
	global        chan struct{} // max-sized permit pool; only `current` slots are filled
	pendingShrink int           // slots to remove the next time they're released, if none were free to remove immediately

	categorySem map[SizeCategory]chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

func newConcurrencyController(cfg Config) *concurrencyController {
	base := cfg.baseConcurrency()
	c := &concurrencyController{
		cfg:         cfg,
		current:     base,
		min:         1,
		max:         2 * base,
		done:        make(chan struct{}),
		categorySem: make(map[SizeCategory]chan struct{}),
	}
	c.global = make(chan struct{}, c.max)
	for i := 0; i < base; i++ {
		c.global <- struct{}{}
	}
	for cat, n := range perFileCap {
		ch := make(chan struct{}, n)
		for i := 0; i < n; i++ {
			ch <- struct{}{}
		}
		c.categorySem[cat] = ch
	}
	return c
}

func (c *concurrencyController) start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.loop(ctx)
}

func (c *concurrencyController) stop() {
	if c.cancel != nil {
		c.cancel()
	}
	<-c.done
}

func (c *concurrencyController) loop(ctx context.Context) {
	defer close(c.done)
	if c.cfg.MemoryUsage == nil {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(c.cfg.checkInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.recompute()
		}
	}
}

func (c *concurrencyController) recompute() {
	ratio := c.cfg.MemoryUsage()

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case ratio > c.cfg.warningThreshold():
		if c.current > c.min {
			c.shrink(1)
		}
	case ratio < 0.5:
		if c.current < c.max {
			c.grow(1)
		}
	}
}

// shrink and grow must be called with mu held. They adjust current and
// the global permit pool's available slots by delta, never exceeding
// [min,max]. A shrink that cannot immediately remove a slot (because
// every slot is currently held) takes effect as soon as a held slot is
// released, since release only refills up to `current`.
func (c *concurrencyController) shrink(delta int) {
	c.current -= delta
	if c.current < c.min {
		c.current = c.min
	}
	for i := 0; i < delta; i++ {
		select {
		case <-c.global:
		default:
			c.pendingShrink++
		}
	}
}

func (c *concurrencyController) grow(delta int) {
	c.current += delta
	if c.current > c.max {
		c.current = c.max
	}
	for i := 0; i < delta; i++ {
		if c.pendingShrink > 0 {
			c.pendingShrink--
			continue
		}
		select {
		case c.global <- struct{}{}:
		default:
		}
	}
}

// capFor returns the effective per-file concurrency cap for category,
// the min of the category's fixed cap and the controller's current
// global width. Reporting/instrumentation only; acquire enforces the
// same bound structurally via the two semaphores.
func (c *concurrencyController) capFor(category SizeCategory) int {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()

	fileCap := perFileCap[category]
	if current < fileCap {
		return current
	}
	return fileCap
}

// acquire blocks until both a category permit and a global permit are
// free, or until ctx is cancelled. width is unused; it documents the
// cap capFor already computed for the caller.
func (c *concurrencyController) acquire(ctx context.Context, category SizeCategory, width int) error {
	catSem := c.categorySem[category]
	select {
	case <-catSem:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-c.global:
		return nil
	case <-ctx.Done():
		catSem <- struct{}{}
		return ctx.Err()
	}
}

func (c *concurrencyController) release(category SizeCategory) {
	c.mu.Lock()
	skip := c.pendingShrink > 0
	if skip {
		c.pendingShrink--
	}
	c.mu.Unlock()

	if !skip {
		select {
		case c.global <- struct{}{}:
		default:
		}
	}
	c.categorySem[category] <- struct{}{}
}
