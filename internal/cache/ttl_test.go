package cache

import (
	"testing"
	"time"
)

func TestTTLGetSet(t *testing.T) {
	c := New[string, int](time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", v, ok)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New[string, int](time.Second)
	base := time.Unix(1000, 0)
	c.now = func() time.Time { return base }

	c.Set("a", 1)

	// Still fresh at half the TTL.
	c.now = func() time.Time { return base.Add(500 * time.Millisecond) }
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired too early")
	}

	// Expired entries are treated as absent, never returned stale.
	c.now = func() time.Time { return base.Add(1100 * time.Millisecond) }
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestTTLSetRefreshes(t *testing.T) {
	c := New[string, int](time.Second)
	base := time.Unix(1000, 0)
	c.now = func() time.Time { return base }

	c.Set("a", 1)
	c.now = func() time.Time { return base.Add(900 * time.Millisecond) }
	c.Set("a", 2)

	c.now = func() time.Time { return base.Add(1500 * time.Millisecond) }
	v, ok := c.Get("a")
	if !ok || v != 2 {
		t.Fatalf("expected refreshed entry (2, true), got (%d, %v)", v, ok)
	}
}

func TestTTLPurge(t *testing.T) {
	c := New[string, int](time.Second)
	base := time.Unix(1000, 0)
	c.now = func() time.Time { return base }

	c.Set("a", 1)
	c.Set("b", 2)

	c.now = func() time.Time { return base.Add(2 * time.Second) }
	c.Set("c", 3)
	c.Purge()

	if c.Len() != 1 {
		t.Fatalf("expected 1 live entry after purge, got %d", c.Len())
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("fresh entry purged")
	}
}
