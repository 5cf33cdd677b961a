// Package cache - entry, level and configuration types
package cache

import (
	"time"
)

// Level names one of the four cache levels
type Level string

const (
	// LevelComponent holds per-line calculation results
	LevelComponent Level = "component"

	// LevelSystem holds assembled system totals
	LevelSystem Level = "system"

	// LevelModification holds modified price breakdowns
	LevelModification Level = "modification"

	// LevelFinal holds complete final pricing results
	LevelFinal Level = "final"
)

// String returns the string representation
func (l Level) String() string {
	return string(l)
}

// IsValid checks if the level is known
func (l Level) IsValid() bool {
	switch l {
	case LevelComponent, LevelSystem, LevelModification, LevelFinal:
		return true
	default:
		return false
	}
}

// levelOrder fixes the scan order across levels
var levelOrder = [...]Level{LevelComponent, LevelSystem, LevelModification, LevelFinal}

// Strategy selects how a level enforces its capacity
type Strategy string

const (
	// StrategyLRU evicts the least-recently-used entries past capacity
	StrategyLRU Strategy = "lru"

	// StrategyTTL never evicts on capacity; only expiry removes entries
	StrategyTTL Strategy = "ttl"

	// StrategyHybrid drops expired entries first, then falls back to LRU
	StrategyHybrid Strategy = "hybrid"
)

// String returns the string representation
func (s Strategy) String() string {
	return string(s)
}

// IsValid checks if the strategy is known
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyLRU, StrategyTTL, StrategyHybrid:
		return true
	default:
		return false
	}
}

// Entry is one cached value with its governance metadata
type Entry struct {
	// Key is the opaque cache key
	Key string `json:"key"`

	// Value is the cached computation result
	Value interface{} `json:"-"`

	// Level is the level holding this entry
	Level Level `json:"level"`

	// CreatedAt is when the entry was stored
	CreatedAt time.Time `json:"created_at"`

	// LastAccessed is when the entry was last read
	LastAccessed time.Time `json:"last_accessed"`

	// AccessCount counts reads since creation
	AccessCount int64 `json:"access_count"`

	// TTL is the entry lifetime; zero or negative never expires
	TTL time.Duration `json:"ttl"`

	// Dependencies lists the keys this entry was computed from
	Dependencies []string `json:"dependencies,omitempty"`
}

// IsExpiredAt reports whether the entry's TTL has elapsed at now
func (e *Entry) IsExpiredAt(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) > e.TTL
}

// LevelConfig tunes one cache level
type LevelConfig struct {
	// TTL is the default entry lifetime at this level
	TTL time.Duration `json:"ttl"`

	// Capacity is the entry bound enforced by the eviction strategy
	Capacity int `json:"capacity"`
}

// Config tunes the cache
type Config struct {
	// Strategy selects the eviction strategy for all levels
	Strategy Strategy `json:"strategy"`

	// Levels holds the per-level tuning; missing levels use defaults
	Levels map[Level]LevelConfig `json:"levels"`
}

// DefaultConfig returns the shipped level tuning
func DefaultConfig() Config {
	return Config{
		Strategy: StrategyLRU,
		Levels: map[Level]LevelConfig{
			LevelComponent:    {TTL: time.Hour, Capacity: 2000},
			LevelSystem:       {TTL: 30 * time.Minute, Capacity: 500},
			LevelModification: {TTL: 15 * time.Minute, Capacity: 500},
			LevelFinal:        {TTL: 10 * time.Minute, Capacity: 200},
		},
	}
}

// LevelStats are the counters of one cache level
type LevelStats struct {
	// Level names the level
	Level Level `json:"level"`

	// Entries is the current entry count
	Entries int `json:"entries"`

	// Hits counts reads that returned a fresh value
	Hits int64 `json:"hits"`

	// Misses counts reads that returned nothing
	Misses int64 `json:"misses"`

	// Evictions counts removals by expiry or capacity pressure
	Evictions int64 `json:"evictions"`

	// HitRate is Hits / (Hits + Misses) in percent
	HitRate float64 `json:"hit_rate"`
}

// Stats is a point-in-time snapshot of all level counters
type Stats struct {
	// Levels holds the per-level counters
	Levels map[Level]LevelStats `json:"levels"`

	// TotalEntries sums the entry counts of all levels
	TotalEntries int `json:"total_entries"`
}
