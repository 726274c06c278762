package queue

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestManager_UnconfiguredQueueUnlimited(t *testing.T) {
	m := NewManager()
	for range 100 {
		if !m.Acquire("any-queue") {
			t.Fatal("expected Acquire to succeed for unconfigured queue")
		}
	}
	if m.ActiveCount("any-queue") != 0 {
		t.Fatal("unconfigured queues are not tracked")
	}
}

func TestManager_MaxConcurrency(t *testing.T) {
	m := NewManager(Config{Name: "emails", MaxConcurrency: 2})

	if !m.Acquire("emails") || !m.Acquire("emails") {
		t.Fatal("first two Acquires should succeed")
	}
	if m.Acquire("emails") {
		t.Fatal("third Acquire should fail (max concurrency 2)")
	}
	if m.ActiveCount("emails") != 2 {
		t.Fatalf("expected 2 active, got %d", m.ActiveCount("emails"))
	}

	m.Release("emails")
	if !m.Acquire("emails") {
		t.Fatal("Acquire should succeed after Release")
	}
}

func TestManager_ReleaseNeverNegative(t *testing.T) {
	m := NewManager(Config{Name: "q", MaxConcurrency: 1})
	m.Release("q")
	m.Release("q")
	if m.ActiveCount("q") != 0 {
		t.Fatalf("expected 0 active, got %d", m.ActiveCount("q"))
	}
}

func TestManager_RateLimit(t *testing.T) {
	// One token per hour with burst 2: exactly two immediate acquires.
	m := NewManager(Config{Name: "slow", RateLimit: 1.0 / 3600, RateBurst: 2})

	if !m.Acquire("slow") || !m.Acquire("slow") {
		t.Fatal("burst of 2 should be allowed")
	}
	if m.Acquire("slow") {
		t.Fatal("third Acquire should be rate limited")
	}
}

func TestManager_RateLimitedAcquireTakesNoSlot(t *testing.T) {
	m := NewManager(Config{Name: "slow", RateLimit: 1.0 / 3600, MaxConcurrency: 5})

	if !m.Acquire("slow") {
		t.Fatal("first Acquire should succeed")
	}
	if m.Acquire("slow") {
		t.Fatal("second Acquire should be rate limited")
	}
	if m.ActiveCount("slow") != 1 {
		t.Fatalf("expected 1 active, got %d", m.ActiveCount("slow"))
	}
}

func TestManager_SetQueueConfigKeepsActive(t *testing.T) {
	m := NewManager(Config{Name: "q", MaxConcurrency: 3})
	m.Acquire("q")
	m.Acquire("q")

	m.SetQueueConfig(Config{Name: "q", MaxConcurrency: 2})
	if m.ActiveCount("q") != 2 {
		t.Fatalf("expected active count preserved, got %d", m.ActiveCount("q"))
	}
	if m.Acquire("q") {
		t.Fatal("Acquire should fail under the new limit")
	}
}

func TestManager_ConcurrentAcquire(t *testing.T) {
	m := NewManager(Config{Name: "q", MaxConcurrency: 10})

	var granted atomic.Int32
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Acquire("q") {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := granted.Load(); got != 10 {
		t.Fatalf("expected exactly 10 grants, got %d", got)
	}
}
