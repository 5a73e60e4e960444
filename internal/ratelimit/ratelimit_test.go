package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryFixedWindow(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := NewMemory(5, 15*time.Minute)
	m.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d, err := m.Allow(ctx, "203.0.113.1")
		if err != nil {
			t.Fatalf("hit %d: %v", i+1, err)
		}
		if !d.Allowed || d.Remaining != 4-i {
			t.Fatalf("hit %d: unexpected decision %+v", i+1, d)
		}
	}

	d, err := m.Allow(ctx, "203.0.113.1")
	if err != nil {
		t.Fatalf("sixth hit: %v", err)
	}
	if d.Allowed || d.RetryAfter != 15*time.Minute {
		t.Fatalf("expected sixth hit to be limited for the window, got %+v", d)
	}

	other, err := m.Allow(ctx, "203.0.113.2")
	if err != nil || !other.Allowed {
		t.Fatalf("expected other key to be allowed, got %+v, %v", other, err)
	}

	clock = clock.Add(15 * time.Minute)
	d, err = m.Allow(ctx, "203.0.113.1")
	if err != nil {
		t.Fatalf("next window: %v", err)
	}
	if !d.Allowed || d.Remaining != 4 {
		t.Fatalf("expected a fresh window, got %+v", d)
	}
}

func TestMemoryConcurrentHits(t *testing.T) {
	m := NewMemory(50, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := m.Allow(ctx, "k")
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 50 {
		t.Fatalf("expected 50 allowed hits, got %d", allowed)
	}
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	if _, err := NewRedis("http://localhost:6379", "contact", 5, time.Minute); err == nil {
		t.Fatalf("expected error for non-redis url")
	}
}

func TestRedisKeyPrefix(t *testing.T) {
	cases := map[string]string{
		"":                     "ratelimit:contact:1.2.3.4",
		"portfolio:ratelimit":  "portfolio:ratelimit:contact:1.2.3.4",
		"portfolio:ratelimit:": "portfolio:ratelimit:contact:1.2.3.4",
	}
	for prefix, want := range cases {
		r, err := NewRedis("redis://localhost:6379/0", prefix, 5, time.Minute)
		if err != nil {
			t.Fatalf("prefix %q: %v", prefix, err)
		}
		if got := r.Key("contact:1.2.3.4"); got != want {
			t.Fatalf("prefix %q: expected %q, got %q", prefix, want, got)
		}
		_ = r.Close()
	}
}

func TestRedisUnreachableReturnsError(t *testing.T) {
	r, err := NewRedis("redis://127.0.0.1:1/0", "contact", 5, time.Minute)
	if err != nil {
		t.Fatalf("new redis: %v", err)
	}
	defer func() { _ = r.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, errAllow := r.Allow(ctx, "k"); errAllow == nil {
		t.Fatalf("expected error from unreachable redis")
	}
}
