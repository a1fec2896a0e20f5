package hashpipe

import (
	"sort"
	"strings"
	"sync"
)

// PoolConfig tunes a Pool. Zero MaxPoolSize means the documented
// default of 4 idle pipelines per algorithm set.
type PoolConfig struct {
	MaxPoolSize int
	PipelineCfg Config
}

const defaultMaxPoolSize = 4

func (c PoolConfig) maxPoolSize() int {
	if c.MaxPoolSize <= 0 {
		return defaultMaxPoolSize
	}
	return c.MaxPoolSize
}

// bucket is one algorithm-set's idle deque plus its created count,
// grounded on internal/dht's rate_limiter.go bucket-map-with-mutex
// shape — there it was a map[peer]*tokenBucket; here it's a
// map[algorithmSetKey]*bucket of idle pipelines.
type bucket struct {
	idle    []*Pipeline
	created int
}

// Pool is a concurrency-safe cache of reusable Pipelines keyed by
// algorithm set (order-independent). It never constructs more than
// MaxPoolSize pipelines concurrently in use for a given set; callers
// that Acquire beyond that cap block until a pipeline is Released or
// Discarded.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	cfg     PoolConfig
	buckets map[string]*bucket
}

// NewPool constructs an empty Pool.
func NewPool(cfg PoolConfig) *Pool {
	p := &Pool{cfg: cfg, buckets: make(map[string]*bucket)}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// poolKey canonicalises an algorithm set into an order-independent
// string key: sorted, joined by a separator no algorithm name contains.
func poolKey(algorithms []string) string {
	sorted := append([]string(nil), algorithms...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// Acquire returns an idle pipeline for algorithms if one exists,
// otherwise constructs a new one. If MaxPoolSize pipelines for this
// set are already outstanding (created but neither idle nor yet
// Released/Discarded), Acquire blocks until a slot frees up, so the
// pool never holds more than MaxPoolSize pipelines concurrently in
// use for a given set.
func (p *Pool) Acquire(algorithms []string) (*Pipeline, error) {
	key := poolKey(algorithms)
	max := p.cfg.maxPoolSize()

	p.mu.Lock()
	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{}
		p.buckets[key] = b
	}
	for len(b.idle) == 0 && b.created >= max {
		p.cond.Wait()
	}
	if n := len(b.idle); n > 0 {
		pl := b.idle[n-1]
		b.idle = b.idle[:n-1]
		p.mu.Unlock()
		return pl, nil
	}
	b.created++
	p.mu.Unlock()

	pl, err := newPipeline(algorithms, p.cfg.PipelineCfg)
	if err != nil {
		p.mu.Lock()
		b.created--
		p.cond.Broadcast()
		p.mu.Unlock()
		return nil, err
	}
	return pl, nil
}

// Release returns p to its bucket's idle deque if space remains under
// MaxPoolSize, else drops it and decrements the created count. A
// pipeline that errored during Run must not be released — the caller
// discards it instead, per spec §4.2's "pipelines are not restartable
// after an error."
func (p *Pool) Release(algorithms []string, pl *Pipeline) {
	key := poolKey(algorithms)

	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{}
		p.buckets[key] = b
	}
	if len(b.idle) >= p.cfg.maxPoolSize() {
		b.created--
		p.cond.Broadcast()
		return
	}
	pl.reset()
	b.idle = append(b.idle, pl)
	p.cond.Broadcast()
}

// Discard drops a pipeline without returning it to the idle deque,
// decrementing the created count. Used when a pipeline's Run call
// failed.
func (p *Pool) Discard(algorithms []string) {
	key := poolKey(algorithms)
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.buckets[key]; ok {
		b.created--
		p.cond.Broadcast()
	}
}

// Idle reports the number of idle pipelines currently held for
// algorithms. Test/instrumentation only, per SPEC_FULL.md §12(a) — no
// allocator statistics are exposed.
func (p *Pool) Idle(algorithms []string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.buckets[poolKey(algorithms)]; ok {
		return len(b.idle)
	}
	return 0
}

// Created reports the number of pipelines currently constructed (idle
// or in use) for algorithms.
func (p *Pool) Created(algorithms []string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.buckets[poolKey(algorithms)]; ok {
		return b.created
	}
	return 0
}
