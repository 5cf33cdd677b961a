// Package config provides configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pvquote/core/cache"
	"pvquote/core/types"
	"pvquote/internal/errors"
	"pvquote/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Pricing contains pricing configuration
	Pricing PricingConfig `json:"pricing"`

	// Cache contains cache configuration
	Cache CacheConfig `json:"cache"`

	// Output contains output configuration
	Output OutputConfig `json:"output"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// PricingConfig contains pricing-related settings
type PricingConfig struct {
	// DefaultCurrency is the quoting currency
	DefaultCurrency types.Currency `json:"default_currency"`

	// Country selects the VAT table
	Country string `json:"country"`

	// RulesPath is the path to an optional HCL rules file
	RulesPath string `json:"rules_path,omitempty"`
}

// CacheConfig contains cache-related settings
type CacheConfig struct {
	// Enabled enables result caching
	Enabled bool `json:"enabled"`

	// Strategy is the eviction strategy (lru, ttl, hybrid)
	Strategy string `json:"strategy"`

	// Levels tunes individual cache levels by name
	Levels map[string]LevelSettings `json:"levels,omitempty"`
}

// LevelSettings tunes one cache level
type LevelSettings struct {
	// TTLSeconds is the entry lifetime, 0 uses the built-in default
	TTLSeconds int `json:"ttl_seconds"`

	// Capacity is the entry bound, 0 uses the built-in default
	Capacity int `json:"capacity"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format (report, json)
	DefaultFormat string `json:"default_format"`

	// ShowStats prints cache statistics after a calculation
	ShowStats bool `json:"show_stats"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version: "1.0",
		Pricing: PricingConfig{
			DefaultCurrency: types.CurrencyEUR,
			Country:         "DE",
		},
		Cache: CacheConfig{
			Enabled:  true,
			Strategy: cache.StrategyLRU.String(),
		},
		Output: OutputConfig{
			DefaultFormat: "report",
			ShowStats:     false,
		},
		Logging: logging.DefaultConfig(),
	}
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".pvquote", "config.json")
}

// Load loads configuration from a file. A missing file yields the
// defaults; a present but malformed file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Config(fmt.Sprintf("cannot read config file %s", path), err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Config(fmt.Sprintf("cannot parse config file %s", path), err)
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LoadDotenv loads a .env file from the working directory if present.
// A missing file is not an error.
func LoadDotenv() {
	_ = godotenv.Load()
}

// ApplyEnv overlays PVQUOTE_* environment variables onto the
// configuration. Environment values win over file values.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PVQUOTE_CURRENCY"); v != "" {
		c.Pricing.DefaultCurrency = types.Currency(strings.ToUpper(strings.TrimSpace(v)))
	}
	if v := os.Getenv("PVQUOTE_COUNTRY"); v != "" {
		c.Pricing.Country = strings.TrimSpace(v)
	}
	if v := os.Getenv("PVQUOTE_RULES"); v != "" {
		c.Pricing.RulesPath = v
	}
	if v := os.Getenv("PVQUOTE_CACHE_STRATEGY"); v != "" {
		c.Cache.Strategy = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("PVQUOTE_CACHE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Cache.Enabled = enabled
		}
	}
	if v := os.Getenv("PVQUOTE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for unusable values
func (c *Config) Validate() error {
	if !c.Pricing.DefaultCurrency.IsValid() {
		return errors.Config(fmt.Sprintf("unsupported currency %q", c.Pricing.DefaultCurrency), nil)
	}
	if c.Cache.Strategy != "" && !cache.Strategy(c.Cache.Strategy).IsValid() {
		return errors.Config(fmt.Sprintf("unknown cache strategy %q", c.Cache.Strategy), nil)
	}
	for name := range c.Cache.Levels {
		if !cache.Level(name).IsValid() {
			return errors.Config(fmt.Sprintf("unknown cache level %q", name), nil)
		}
	}
	return nil
}

// ToCacheConfig maps the cache settings onto a cache configuration,
// starting from the built-in level defaults. Unknown level names are
// skipped; Validate reports them.
func (c CacheConfig) ToCacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	if c.Strategy != "" {
		cfg.Strategy = cache.Strategy(c.Strategy)
	}
	for name, settings := range c.Levels {
		lvl := cache.Level(name)
		if !lvl.IsValid() {
			continue
		}
		levelCfg := cfg.Levels[lvl]
		if settings.TTLSeconds > 0 {
			levelCfg.TTL = time.Duration(settings.TTLSeconds) * time.Second
		}
		if settings.Capacity > 0 {
			levelCfg.Capacity = settings.Capacity
		}
		cfg.Levels[lvl] = levelCfg
	}
	return cfg
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
