package pipeline

import (
	"fmt"
	"testing"
	"time"
)

func TestCacheKeyNormalization(t *testing.T) {
	a := cacheKey("  Top PICKUP zones?  ", "v1")
	b := cacheKey("top pickup zones", "v1")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	if cacheKey("top pickup zones", "v2") == a {
		t.Fatal("schema version change must change the key")
	}
}

func TestCacheExpiresEntries(t *testing.T) {
	cache := newResponseCache(time.Minute, 8)
	now := time.Unix(1000, 0)
	cache.now = func() time.Time { return now }

	cache.put("k", Result{Answer: "a"})
	if _, ok := cache.get("k"); !ok {
		t.Fatal("entry missing before TTL")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := cache.get("k"); ok {
		t.Fatal("entry survived past TTL")
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := newResponseCache(time.Hour, 2)
	cache.put("a", Result{Answer: "a"})
	cache.put("b", Result{Answer: "b"})
	if _, ok := cache.get("a"); !ok {
		t.Fatal("entry a missing")
	}

	// a was just touched, so adding c must evict b.
	cache.put("c", Result{Answer: "c"})
	if _, ok := cache.get("b"); ok {
		t.Fatal("b survived eviction")
	}
	if _, ok := cache.get("a"); !ok {
		t.Fatal("a was evicted despite recent use")
	}
}

func TestCacheHonorsCapacity(t *testing.T) {
	cache := newResponseCache(time.Hour, 3)
	for i := 0; i < 10; i++ {
		cache.put(fmt.Sprintf("k%d", i), Result{})
	}
	if got := cache.order.Len(); got != 3 {
		t.Fatalf("cache size = %d, want 3", got)
	}
}
