package cache

import (
	"fmt"
	"testing"
	"time"

	"pvquote/internal/errors"
)

func newTestCache(t *testing.T, strategy Strategy, capacity int) *Cache {
	t.Helper()
	cfg := Config{
		Strategy: strategy,
		Levels: map[Level]LevelConfig{
			LevelComponent:    {TTL: time.Hour, Capacity: capacity},
			LevelSystem:       {TTL: time.Hour, Capacity: capacity},
			LevelModification: {TTL: time.Hour, Capacity: capacity},
			LevelFinal:        {TTL: time.Hour, Capacity: capacity},
		},
	}
	c, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

// TestGetAfterPut proves a get immediately after a put returns the
// exact value stored
func TestGetAfterPut(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)

	c.Put(LevelComponent, "component:a:1", 42)
	got, ok := c.Get(LevelComponent, "component:a:1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.(int) != 42 {
		t.Errorf("expected 42, got %v", got)
	}

	stats, ok := c.StatsFor(LevelComponent)
	if !ok {
		t.Fatal("expected component stats")
	}
	if stats.Hits != 1 || stats.Misses != 0 {
		t.Errorf("expected 1 hit and 0 misses, got %d/%d", stats.Hits, stats.Misses)
	}
}

// TestExpiryIsDetectedOnGet proves lazy expiry counts a miss plus an
// eviction and removes the entry
func TestExpiryIsDetectedOnGet(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)
	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	c.PutTTL(LevelComponent, "k", "v", time.Minute)
	if _, ok := c.Get(LevelComponent, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := c.Get(LevelComponent, "k"); ok {
		t.Fatal("expected miss after expiry")
	}

	stats, _ := c.StatsFor(LevelComponent)
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evictions)
	}
	if stats.Entries != 0 {
		t.Errorf("expected 0 entries, got %d", stats.Entries)
	}
}

// TestZeroTTLNeverExpires proves a zero TTL means no implicit expiry
func TestZeroTTLNeverExpires(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)
	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	c.PutTTL(LevelComponent, "k", "v", 0)
	current = current.Add(10000 * time.Hour)
	if _, ok := c.Get(LevelComponent, "k"); !ok {
		t.Fatal("entry with zero TTL must never expire")
	}
}

// TestCascadingInvalidation proves invalidating a component removes
// the dependent system and final entries in one call
func TestCascadingInvalidation(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)

	c.Put(LevelComponent, "component:mod1:aa", "line")
	c.Put(LevelSystem, "system:roof:bb", "sum", "component:mod1:aa")
	c.Put(LevelFinal, "final:cc", "result", "system:roof:bb")

	count := c.Invalidate("component:mod1:aa", true)
	if count != 3 {
		t.Fatalf("expected 3 entries removed, got %d", count)
	}

	if _, ok := c.Get(LevelComponent, "component:mod1:aa"); ok {
		t.Error("component entry must be gone")
	}
	if _, ok := c.Get(LevelSystem, "system:roof:bb"); ok {
		t.Error("system entry must be gone")
	}
	if _, ok := c.Get(LevelFinal, "final:cc"); ok {
		t.Error("final entry must be gone")
	}
}

// TestInvalidateWithoutCascade proves dependents survive a
// non-cascading invalidation
func TestInvalidateWithoutCascade(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)

	c.Put(LevelComponent, "a", 1)
	c.Put(LevelSystem, "b", 2, "a")

	count := c.Invalidate("a", false)
	if count != 1 {
		t.Fatalf("expected 1 entry removed, got %d", count)
	}
	if _, ok := c.Get(LevelSystem, "b"); !ok {
		t.Error("dependent must survive a non-cascading invalidation")
	}
}

// TestInvalidateMissingKey tests the zero count for unknown keys
func TestInvalidateMissingKey(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)
	if count := c.Invalidate("nope", true); count != 0 {
		t.Errorf("expected 0, got %d", count)
	}
}

// TestInvalidateCycleTerminates proves the visited set guards against
// dependency cycles
func TestInvalidateCycleTerminates(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)

	c.Put(LevelComponent, "a", 1, "b")
	c.Put(LevelSystem, "b", 2, "a")

	count := c.Invalidate("a", true)
	if count != 2 {
		t.Fatalf("expected 2 entries removed, got %d", count)
	}
}

// TestLRUEvictionIsRecencyBased proves eviction removes the least
// recently accessed entry, not the oldest inserted one
func TestLRUEvictionIsRecencyBased(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 3)

	c.Put(LevelComponent, "k1", 1)
	c.Put(LevelComponent, "k2", 2)
	c.Put(LevelComponent, "k3", 3)

	// Touch the oldest-inserted entry so k2 becomes least recently used.
	if _, ok := c.Get(LevelComponent, "k1"); !ok {
		t.Fatal("expected hit on k1")
	}

	c.Put(LevelComponent, "k4", 4)

	if _, ok := c.Get(LevelComponent, "k1"); !ok {
		t.Error("k1 was read recently and must survive")
	}
	if _, ok := c.Get(LevelComponent, "k2"); ok {
		t.Error("k2 was least recently used and must be evicted")
	}

	stats, _ := c.StatsFor(LevelComponent)
	if stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evictions)
	}
}

// TestTTLStrategyIgnoresCapacity proves the ttl strategy never evicts
// on capacity pressure
func TestTTLStrategyIgnoresCapacity(t *testing.T) {
	c := newTestCache(t, StrategyTTL, 2)

	for i := 0; i < 5; i++ {
		c.Put(LevelComponent, fmt.Sprintf("k%d", i), i)
	}

	stats, _ := c.StatsFor(LevelComponent)
	if stats.Entries != 5 {
		t.Errorf("expected all 5 entries kept, got %d", stats.Entries)
	}
	if stats.Evictions != 0 {
		t.Errorf("expected 0 evictions, got %d", stats.Evictions)
	}
}

// TestHybridDropsExpiredFirst proves the hybrid strategy sacrifices
// expired entries before falling back to LRU order
func TestHybridDropsExpiredFirst(t *testing.T) {
	c := newTestCache(t, StrategyHybrid, 2)
	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	c.PutTTL(LevelComponent, "fresh1", 1, time.Hour)
	c.PutTTL(LevelComponent, "old", 1, time.Minute)
	current = current.Add(2 * time.Minute)

	c.PutTTL(LevelComponent, "fresh2", 1, time.Hour)

	// fresh1 is oldest by recency, but the expired entry goes first.
	if _, ok := c.Get(LevelComponent, "fresh1"); !ok {
		t.Error("fresh1 must survive while an expired entry exists")
	}
	if _, ok := c.Get(LevelComponent, "old"); ok {
		t.Error("expired entry must be gone")
	}
	if _, ok := c.Get(LevelComponent, "fresh2"); !ok {
		t.Error("fresh2 must be present")
	}
}

// TestInvalidatePattern tests substring invalidation without cascading
func TestInvalidatePattern(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)

	c.Put(LevelComponent, "component:pv-400:aa", 1)
	c.Put(LevelComponent, "component:pv-500:bb", 2)
	c.Put(LevelSystem, "system:roof:cc", 3, "component:pv-400:aa")

	count := c.InvalidatePattern("pv-400", "")
	if count != 1 {
		t.Fatalf("expected 1 entry removed, got %d", count)
	}
	if _, ok := c.Get(LevelComponent, "component:pv-500:bb"); !ok {
		t.Error("unrelated component must survive")
	}
	if _, ok := c.Get(LevelSystem, "system:roof:cc"); !ok {
		t.Error("pattern invalidation must not cascade")
	}
}

// TestInvalidatePatternLevelScoped tests the optional level filter
func TestInvalidatePatternLevelScoped(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)

	c.Put(LevelComponent, "component:x:1", 1)
	c.Put(LevelSystem, "system:x:2", 2)

	count := c.InvalidatePattern("x", LevelSystem)
	if count != 1 {
		t.Fatalf("expected 1 entry removed, got %d", count)
	}
	if _, ok := c.Get(LevelComponent, "component:x:1"); !ok {
		t.Error("component level must be untouched")
	}
}

// TestKeysMatching tests the non-destructive pattern scan
func TestKeysMatching(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)

	c.Put(LevelComponent, "component:pv-400:aa", 1)
	c.Put(LevelComponent, "component:pv-400:bb", 2)
	c.Put(LevelComponent, "component:inv-10:cc", 3)

	keys := c.KeysMatching(":pv-400:", "")
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d: %v", len(keys), keys)
	}
	if c.Len() != 3 {
		t.Errorf("scan must not remove entries, have %d", c.Len())
	}
}

// TestClear tests level-scoped and full clears
func TestClear(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)

	c.Put(LevelComponent, "a", 1)
	c.Put(LevelSystem, "b", 2, "a")
	c.Put(LevelFinal, "d", 4, "b")

	if count := c.Clear(LevelComponent); count != 1 {
		t.Fatalf("expected 1 cleared, got %d", count)
	}
	if count := c.Clear(""); count != 2 {
		t.Fatalf("expected 2 cleared, got %d", count)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

// TestClearKeepsDependencyConsistency proves the reverse index still
// matches the surviving entries' dependency lists after a partial
// clear
func TestClearKeepsDependencyConsistency(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)

	c.Put(LevelComponent, "a", 1)
	c.Put(LevelSystem, "b", 2, "a")
	c.Put(LevelFinal, "d", 4, "b")

	c.Clear(LevelComponent)

	// The surviving entries still depend on "a"; cascading from it
	// must remove both of them.
	count := c.Invalidate("a", true)
	if count != 2 {
		t.Fatalf("expected 2 entries removed, got %d", count)
	}
}

// TestCleanupExpired tests the explicit sweep
func TestCleanupExpired(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)
	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	c.PutTTL(LevelComponent, "short1", 1, time.Minute)
	c.PutTTL(LevelSystem, "short2", 2, time.Minute)
	c.PutTTL(LevelFinal, "long", 3, time.Hour)

	current = current.Add(2 * time.Minute)

	if count := c.CleanupExpired(); count != 2 {
		t.Fatalf("expected 2 expired entries removed, got %d", count)
	}
	if _, ok := c.Get(LevelFinal, "long"); !ok {
		t.Error("unexpired entry must survive the sweep")
	}
}

// TestStats tests the derived hit rate and entry totals
func TestStats(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)

	c.Put(LevelComponent, "a", 1)
	c.Get(LevelComponent, "a")
	c.Get(LevelComponent, "a")
	c.Get(LevelComponent, "missing")

	stats := c.Stats()
	comp := stats.Levels[LevelComponent]
	if comp.Hits != 2 || comp.Misses != 1 {
		t.Errorf("expected 2 hits and 1 miss, got %d/%d", comp.Hits, comp.Misses)
	}
	if comp.HitRate < 66.6 || comp.HitRate > 66.7 {
		t.Errorf("expected hit rate around 66.67, got %f", comp.HitRate)
	}
	if stats.TotalEntries != 1 {
		t.Errorf("expected 1 total entry, got %d", stats.TotalEntries)
	}
}

// TestNewRejectsUnknownStrategy tests config validation
func TestNewRejectsUnknownStrategy(t *testing.T) {
	_, err := New(Config{Strategy: "random"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	if !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected %s, got %v", errors.TypeConfig, err)
	}
}

// TestPutOverwriteReplacesDependencies proves an overwrite drops the
// previous entry's edges
func TestPutOverwriteReplacesDependencies(t *testing.T) {
	c := newTestCache(t, StrategyLRU, 10)

	c.Put(LevelComponent, "dep1", 1)
	c.Put(LevelComponent, "dep2", 2)
	c.Put(LevelSystem, "sum", 3, "dep1")
	c.Put(LevelSystem, "sum", 3, "dep2")

	// Cascading from the stale dependency must leave the overwritten
	// entry alone.
	if count := c.Invalidate("dep1", true); count != 1 {
		t.Fatalf("expected only dep1 removed, got %d", count)
	}
	if _, ok := c.Get(LevelSystem, "sum"); !ok {
		t.Error("overwritten entry must no longer depend on dep1")
	}

	if count := c.Invalidate("dep2", true); count != 2 {
		t.Fatalf("expected dep2 and its dependent removed, got %d", count)
	}
}
