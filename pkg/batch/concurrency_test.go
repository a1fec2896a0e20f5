package batch

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestConcurrencyController_CapForRespectsCategoryAndGlobal(t *testing.T) {
	c := newConcurrencyController(Config{BaseConcurrency: 2})
	if got := c.capFor(Small); got != 2 {
		t.Errorf("capFor(Small) = %d, want min(8, base=2) = 2", got)
	}
	if got := c.capFor(Huge); got != 1 {
		t.Errorf("capFor(Huge) = %d, want 1", got)
	}
}

func TestConcurrencyController_AcquireReleaseRoundTrips(t *testing.T) {
	c := newConcurrencyController(Config{BaseConcurrency: 2})
	ctx := context.Background()

	if err := c.acquire(ctx, Small, 2); err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	c.release(Small)

	if err := c.acquire(ctx, Small, 2); err != nil {
		t.Fatalf("second acquire() error = %v", err)
	}
	c.release(Small)
}

func TestConcurrencyController_CategoryCapLimitsParallelism(t *testing.T) {
	c := newConcurrencyController(Config{BaseConcurrency: 8})

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.acquire(context.Background(), Huge, 1); err != nil {
				return
			}
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			c.release(Huge)
		}()
	}
	wg.Wait()

	if maxActive > 1 {
		t.Errorf("max concurrent Huge acquisitions = %d, want <= 1 (perFileCap[Huge])", maxActive)
	}
}

func TestConcurrencyController_AcquireRespectsContextCancellation(t *testing.T) {
	c := newConcurrencyController(Config{BaseConcurrency: 1})
	// Drain the only Huge category permit.
	if err := c.acquire(context.Background(), Huge, 1); err != nil {
		t.Fatalf("first acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := c.acquire(ctx, Huge, 1); err == nil {
		t.Fatal("acquire() on an exhausted category should respect context cancellation")
	}
}

func TestConcurrencyController_RecomputeShrinksAndGrows(t *testing.T) {
	ratio := 0.0
	c := newConcurrencyController(Config{
		BaseConcurrency:  4,
		WarningThreshold: 0.8,
		MemoryUsage:      func() float64 { return ratio },
	})

	ratio = 0.9
	c.recompute()
	c.mu.Lock()
	got := c.current
	c.mu.Unlock()
	if got != 3 {
		t.Errorf("current after shrink = %d, want 3", got)
	}

	ratio = 0.1
	c.recompute()
	c.recompute()
	c.mu.Lock()
	got = c.current
	c.mu.Unlock()
	if got != 5 {
		t.Errorf("current after regrow = %d, want 5 (3 widened by one on each of two ticks)", got)
	}
}

func TestConcurrencyController_RecomputeClampsAtMinAndMax(t *testing.T) {
	ratio := 0.0
	c := newConcurrencyController(Config{
		BaseConcurrency: 2,
		MemoryUsage:     func() float64 { return ratio },
	})

	ratio = 0.95
	for i := 0; i < 10; i++ {
		c.recompute()
	}
	c.mu.Lock()
	if c.current != c.min {
		t.Errorf("current = %d, want clamped to min %d", c.current, c.min)
	}
	c.mu.Unlock()

	ratio = 0.0
	for i := 0; i < 10; i++ {
		c.recompute()
	}
	c.mu.Lock()
	if c.current != c.max {
		t.Errorf("current = %d, want clamped to max %d", c.current, c.max)
	}
	c.mu.Unlock()
}
