// Package cache implements the four-level pricing cache: per-entry
// TTL, selectable eviction strategies, and a reverse-dependency index
// for cascading invalidation.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"

	"pvquote/internal/errors"
)

// backingSize bounds the recency lists far above any configured
// capacity so they never auto-evict; capacity is enforced per strategy.
const backingSize = 1 << 30

// level is one cache level: a recency list plus its counters
type level struct {
	name     Level
	ttl      time.Duration
	capacity int
	entries  *simplelru.LRU[string, *Entry]

	hits      int64
	misses    int64
	evictions int64
}

// Cache is a four-level key-value store with TTL, LRU eviction and
// cascading invalidation. All operations are guarded by one coarse
// lock per instance; concurrent callers observe a consistent entry set
// and dependency graph.
type Cache struct {
	mu       sync.Mutex
	strategy Strategy
	levels   map[Level]*level

	// dependents maps a key to the set of keys depending on it
	dependents map[string]map[string]struct{}

	logger *zap.Logger
	now    func() time.Time
}

// New creates a cache with the given configuration. Levels missing
// from the configuration use the shipped defaults.
func New(cfg Config, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategyLRU
	}
	if !strategy.IsValid() {
		return nil, errors.Newf(errors.TypeConfig, "unknown eviction strategy %q", strategy)
	}

	defaults := DefaultConfig()
	c := &Cache{
		strategy:   strategy,
		levels:     make(map[Level]*level, len(levelOrder)),
		dependents: make(map[string]map[string]struct{}),
		logger:     logger,
		now:        time.Now,
	}
	for _, name := range levelOrder {
		lc, ok := cfg.Levels[name]
		if !ok {
			lc = defaults.Levels[name]
		}
		if lc.Capacity <= 0 {
			lc.Capacity = defaults.Levels[name].Capacity
		}
		if lc.TTL <= 0 {
			lc.TTL = defaults.Levels[name].TTL
		}
		entries, err := simplelru.NewLRU[string, *Entry](backingSize, nil)
		if err != nil {
			return nil, errors.Wrap(errors.TypeConfig, "creating cache level", err)
		}
		c.levels[name] = &level{
			name:     name,
			ttl:      lc.TTL,
			capacity: lc.Capacity,
			entries:  entries,
		}
	}
	return c, nil
}

// Get returns the fresh value stored under key at the given level. An
// expired entry is removed on the spot and counts as both a miss and
// an eviction.
func (c *Cache) Get(lvl Level, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.levels[lvl]
	if !ok {
		return nil, false
	}
	entry, ok := l.entries.Get(key)
	if !ok {
		l.misses++
		return nil, false
	}
	if entry.IsExpiredAt(c.now()) {
		l.entries.Remove(key)
		c.unlink(entry)
		l.misses++
		l.evictions++
		return nil, false
	}
	entry.AccessCount++
	entry.LastAccessed = c.now()
	l.hits++
	return entry.Value, true
}

// Put stores value under key at the given level with the level's
// default TTL, registering one dependency edge per listed key.
func (c *Cache) Put(lvl Level, key string, value interface{}, deps ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.levels[lvl]
	if !ok {
		c.logger.Warn("put on unknown cache level", zap.String("level", string(lvl)))
		return
	}
	c.putLocked(l, key, value, l.ttl, deps)
}

// PutTTL stores value under key with an explicit TTL. A TTL of zero or
// less never expires.
func (c *Cache) PutTTL(lvl Level, key string, value interface{}, ttl time.Duration, deps ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.levels[lvl]
	if !ok {
		c.logger.Warn("put on unknown cache level", zap.String("level", string(lvl)))
		return
	}
	c.putLocked(l, key, value, ttl, deps)
}

func (c *Cache) putLocked(l *level, key string, value interface{}, ttl time.Duration, deps []string) {
	// Overwrites drop the previous entry's edges first so the reverse
	// index never carries stale dependencies.
	if prev, ok := l.entries.Peek(key); ok {
		c.unlink(prev)
	}

	now := c.now()
	entry := &Entry{
		Key:          key,
		Value:        value,
		Level:        l.name,
		CreatedAt:    now,
		LastAccessed: now,
		TTL:          ttl,
		Dependencies: append([]string(nil), deps...),
	}
	l.entries.Add(key, entry)
	for _, dep := range deps {
		set, ok := c.dependents[dep]
		if !ok {
			set = make(map[string]struct{})
			c.dependents[dep] = set
		}
		set[key] = struct{}{}
	}
	c.enforceCapacity(l)
}

// enforceCapacity evicts entries until the level is within bound,
// according to the configured strategy.
func (c *Cache) enforceCapacity(l *level) {
	if c.strategy == StrategyTTL || l.capacity <= 0 {
		return
	}
	if c.strategy == StrategyHybrid && l.entries.Len() > l.capacity {
		now := c.now()
		for _, key := range l.entries.Keys() {
			if l.entries.Len() <= l.capacity {
				break
			}
			entry, ok := l.entries.Peek(key)
			if !ok || !entry.IsExpiredAt(now) {
				continue
			}
			l.entries.Remove(key)
			c.unlink(entry)
			l.evictions++
		}
	}
	for l.entries.Len() > l.capacity {
		_, entry, ok := l.entries.RemoveOldest()
		if !ok {
			break
		}
		c.unlink(entry)
		l.evictions++
	}
}

// Invalidate removes the entry stored under key. With cascade it also
// removes, transitively, every entry that listed key as a dependency;
// the whole walk runs under one lock acquisition and a visited set
// guards against dependency cycles. Returns the number of entries
// removed.
func (c *Cache) Invalidate(key string, cascade bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidateLocked(key, cascade)
}

func (c *Cache) invalidateLocked(root string, cascade bool) int {
	count := 0
	visited := make(map[string]struct{})
	stack := []string{root}
	for len(stack) > 0 {
		key := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		if cascade {
			for dependent := range c.dependents[key] {
				if _, seen := visited[dependent]; !seen {
					stack = append(stack, dependent)
				}
			}
		}
		if c.removeKeyLocked(key) {
			count++
		}
	}
	return count
}

// removeKeyLocked removes key from whichever level holds it
func (c *Cache) removeKeyLocked(key string) bool {
	for _, name := range levelOrder {
		l := c.levels[name]
		entry, ok := l.entries.Peek(key)
		if !ok {
			continue
		}
		l.entries.Remove(key)
		c.unlink(entry)
		return true
	}
	return false
}

// unlink removes the entry's own dependency edges from the reverse
// index. Edges pointing at the entry stay until their owners go.
func (c *Cache) unlink(entry *Entry) {
	for _, dep := range entry.Dependencies {
		set, ok := c.dependents[dep]
		if !ok {
			continue
		}
		delete(set, entry.Key)
		if len(set) == 0 {
			delete(c.dependents, dep)
		}
	}
}

// InvalidatePattern removes every entry whose key contains substring,
// without cascading. An empty level scans all levels. Returns the
// number of entries removed.
func (c *Cache) InvalidatePattern(substring string, lvl Level) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, name := range levelOrder {
		if lvl != "" && name != lvl {
			continue
		}
		l := c.levels[name]
		for _, key := range l.entries.Keys() {
			if !strings.Contains(key, substring) {
				continue
			}
			entry, ok := l.entries.Peek(key)
			if !ok {
				continue
			}
			l.entries.Remove(key)
			c.unlink(entry)
			count++
		}
	}
	return count
}

// KeysMatching returns every key containing substring. An empty level
// scans all levels.
func (c *Cache) KeysMatching(substring string, lvl Level) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []string
	for _, name := range levelOrder {
		if lvl != "" && name != lvl {
			continue
		}
		for _, key := range c.levels[name].entries.Keys() {
			if strings.Contains(key, substring) {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// Clear removes every entry at the given level, or everywhere when the
// level is empty. Returns the number of entries removed.
func (c *Cache) Clear(lvl Level) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, name := range levelOrder {
		if lvl != "" && name != lvl {
			continue
		}
		l := c.levels[name]
		count += l.entries.Len()
		l.entries.Purge()
	}
	if lvl == "" {
		c.dependents = make(map[string]map[string]struct{})
	} else {
		c.rebuildDependentsLocked()
	}
	return count
}

// rebuildDependentsLocked reindexes the reverse edges from the entries
// still present after a partial clear.
func (c *Cache) rebuildDependentsLocked() {
	c.dependents = make(map[string]map[string]struct{})
	for _, name := range levelOrder {
		for _, entry := range c.levels[name].entries.Values() {
			for _, dep := range entry.Dependencies {
				set, ok := c.dependents[dep]
				if !ok {
					set = make(map[string]struct{})
					c.dependents[dep] = set
				}
				set[entry.Key] = struct{}{}
			}
		}
	}
}

// CleanupExpired removes every expired entry across all levels and
// returns the number removed. Expiry is otherwise detected lazily on
// Get; no background sweep runs.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for _, name := range levelOrder {
		l := c.levels[name]
		for _, key := range l.entries.Keys() {
			entry, ok := l.entries.Peek(key)
			if !ok || !entry.IsExpiredAt(now) {
				continue
			}
			l.entries.Remove(key)
			c.unlink(entry)
			l.evictions++
			count++
		}
	}
	return count
}

// Stats returns a snapshot of all level counters
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{Levels: make(map[Level]LevelStats, len(levelOrder))}
	for _, name := range levelOrder {
		l := c.levels[name]
		stats.Levels[name] = l.statsLocked()
		stats.TotalEntries += l.entries.Len()
	}
	return stats
}

// StatsFor returns the counters of one level
func (c *Cache) StatsFor(lvl Level) (LevelStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.levels[lvl]
	if !ok {
		return LevelStats{}, false
	}
	return l.statsLocked(), true
}

func (l *level) statsLocked() LevelStats {
	s := LevelStats{
		Level:     l.name,
		Entries:   l.entries.Len(),
		Hits:      l.hits,
		Misses:    l.misses,
		Evictions: l.evictions,
	}
	if total := l.hits + l.misses; total > 0 {
		s.HitRate = float64(l.hits) / float64(total) * 100
	}
	return s
}

// Len returns the total entry count across all levels
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, name := range levelOrder {
		n += c.levels[name].entries.Len()
	}
	return n
}
