package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	if _, err := c.Get(ctx, "missing"); err != ErrMiss {
		t.Fatalf("expected ErrMiss, got %v", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("expected v, got %q", got)
	}

	ok, err := c.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected key to exist, ok=%v err=%v", ok, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != ErrMiss {
		t.Fatalf("expected ErrMiss after delete, got %v", err)
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	if err := c.Set(ctx, "k", []byte("v"), 10*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != nil {
		t.Fatalf("get before expiry: %v", err)
	}

	now = now.Add(11 * time.Second)
	if _, err := c.Get(ctx, "k"); err != ErrMiss {
		t.Fatalf("expected ErrMiss after expiry, got %v", err)
	}
	ok, err := c.Exists(ctx, "k")
	if err != nil || ok {
		t.Fatalf("expired key should not exist, ok=%v err=%v", ok, err)
	}
}

func TestMemoryFreshWriteSurvivesExpiredRead(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	// A Get observing an expired entry must only reap that entry, never
	// a value written concurrently between its read and its delete.
	for i := 0; i < 200; i++ {
		if err := c.Set(ctx, "k", []byte("stale"), time.Nanosecond); err != nil {
			t.Fatalf("set stale: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Get(ctx, "k")
		}()
		go func() {
			defer wg.Done()
			c.Set(ctx, "k", []byte("fresh"), time.Minute)
		}()
		wg.Wait()

		got, err := c.Get(ctx, "k")
		if err != nil {
			t.Fatalf("iteration %d: fresh value was reaped: %v", i, err)
		}
		if string(got) != "fresh" {
			t.Fatalf("iteration %d: expected fresh, got %q", i, got)
		}
		if err := c.Delete(ctx, "k"); err != nil {
			t.Fatalf("delete: %v", err)
		}
	}
}

func TestMemoryDefaultTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(30 * time.Second)

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	now = now.Add(29 * time.Second)
	if _, err := c.Get(ctx, "k"); err != nil {
		t.Fatalf("should survive below default TTL: %v", err)
	}

	now = now.Add(2 * time.Second)
	if _, err := c.Get(ctx, "k"); err != ErrMiss {
		t.Fatalf("expected ErrMiss past default TTL, got %v", err)
	}
}
