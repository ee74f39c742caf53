package spotify

import (
	"net/url"
	"testing"
	"time"
)

func TestCacheKeyIsOrderIndependent(t *testing.T) {
	c := NewCache(time.Minute, -1, 10)
	a := url.Values{}
	a.Set("q", "tamil hits")
	a.Set("market", "IN")
	b := url.Values{}
	b.Set("market", "IN")
	b.Set("q", "tamil hits")
	if c.Key("search", a) != c.Key("search", b) {
		t.Fatalf("keys differ for identical params")
	}
	if c.Key("search", a) == c.Key("recommendations", a) {
		t.Fatalf("operation not part of the key")
	}
}

func TestCacheKeyTimeBucket(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 10, 0, 0, time.UTC)
	c := NewCache(time.Minute, 30*time.Minute, 10)
	c.now = func() time.Time { return now }
	k1 := c.Key("search", nil)
	now = now.Add(10 * time.Minute)
	if c.Key("search", nil) != k1 {
		t.Fatalf("key changed inside the same bucket")
	}
	now = now.Add(15 * time.Minute)
	if c.Key("search", nil) == k1 {
		t.Fatalf("key did not change across buckets")
	}
}

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(5*time.Minute, -1, 10)
	c.now = func() time.Time { return now }

	c.Set("k", []byte("v"))
	if got, ok := c.Get("k"); !ok || string(got) != "v" {
		t.Fatalf("expected hit, got %q %v", got, ok)
	}
	now = now.Add(5 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to expire at ttl")
	}
	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Entries != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestCacheEvictsOldestFirst(t *testing.T) {
	c := NewCache(time.Hour, -1, 2)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3"))
	if _, ok := c.Get("a"); ok {
		t.Fatalf("oldest entry should be evicted")
	}
	for _, k := range []string{"b", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("entry %s missing", k)
		}
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Fatalf("expected 1 eviction, got %d", s.Evictions)
	}
}
