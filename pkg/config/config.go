// Package config loads runtime configuration from the environment,
// following the same LoadFromEnv/Validate/String idiom the storage layer
// this module builds on already uses for its own settings.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// QueryEngine selects which adapter the router treats as primary.
type QueryEngine string

const (
	EngineDocstore QueryEngine = "primary"
	EngineMirror   QueryEngine = "secondary"
	EngineAuto     QueryEngine = "auto"
)

// HybridMode controls how the router splits reads/writes across the two
// backend adapters. Values match pkg/router.HybridMode's five modes
// exactly (§4.7); ParseHybridMode/the router package itself does the
// string<->enum translation at wiring time.
type HybridMode string

const (
	HybridPrimaryOnly               HybridMode = "primary_only"
	HybridSecondaryPreferred        HybridMode = "secondary_preferred"
	HybridDualPrimaryPreferred      HybridMode = "dual_primary_preferred"
	HybridDualSecondaryPreferred    HybridMode = "dual_secondary_preferred"
	HybridWritePrimaryReadSecondary HybridMode = "write_primary_read_secondary"
)

// RouterConfig governs read/write dispatch between the canonical store
// and the analytical mirror.
type RouterConfig struct {
	QueryEngine    QueryEngine
	HybridMode     HybridMode
	QueryTimeout   time.Duration
}

// SyncConfig governs the sync engine's batch/concurrency/scheduling
// defaults.
type SyncConfig struct {
	BatchSize         int
	IntervalSeconds   int
	MaxConcurrency    int
}

// CacheConfig governs the query layer's TTL cache capacities.
type CacheConfig struct {
	PECacheMax   int
	AttrCacheMax int
	RelCacheMax  int
	TTL          time.Duration
}

// CatalogConfig locates the attribute-info catalog on disk.
type CatalogConfig struct {
	Path string
}

// Config is the top-level configuration every component reads a slice of
// at construction time.
type Config struct {
	Router  RouterConfig
	Sync    SyncConfig
	Cache   CacheConfig
	Catalog CatalogConfig
}

// LoadFromEnv builds a Config from environment variables, falling back
// to the defaults named in §6.1 for anything unset.
func LoadFromEnv() *Config {
	return &Config{
		Router: RouterConfig{
			QueryEngine:  QueryEngine(getEnv("QUERY_ENGINE", string(EngineAuto))),
			HybridMode:   HybridMode(getEnv("HYBRID_MODE", string(HybridDualSecondaryPreferred))),
			QueryTimeout: getEnvDuration("QUERY_TIMEOUT_MS", 5000*time.Millisecond),
		},
		Sync: SyncConfig{
			BatchSize:       getEnvInt("SYNC_BATCH_SIZE", 1000),
			IntervalSeconds: getEnvInt("SYNC_INTERVAL_SECS", 60),
			MaxConcurrency:  getEnvInt("MAX_SYNC_CONCURRENCY", 2*runtime.NumCPU()),
		},
		Cache: CacheConfig{
			PECacheMax:   getEnvInt("PE_CACHE_MAX", 10_000),
			AttrCacheMax: getEnvInt("ATTR_CACHE_MAX", 20_000),
			RelCacheMax:  getEnvInt("REL_CACHE_MAX", 15_000),
			TTL:          getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATA_PATH", "catalog.json"),
		},
	}
}

// Validate checks the configuration for internally-consistent values,
// rejecting settings that would make the router or sync engine behave
// nonsensically (e.g. zero concurrency) rather than failing later at a
// confusing call site.
func (c *Config) Validate() error {
	switch c.Router.QueryEngine {
	case EngineDocstore, EngineMirror, EngineAuto:
	default:
		return fmt.Errorf("config: invalid QUERY_ENGINE %q", c.Router.QueryEngine)
	}
	switch c.Router.HybridMode {
	case HybridPrimaryOnly, HybridSecondaryPreferred, HybridDualPrimaryPreferred,
		HybridDualSecondaryPreferred, HybridWritePrimaryReadSecondary:
	default:
		return fmt.Errorf("config: invalid HYBRID_MODE %q", c.Router.HybridMode)
	}
	if c.Router.QueryTimeout <= 0 {
		return fmt.Errorf("config: QUERY_TIMEOUT_MS must be positive, got %v", c.Router.QueryTimeout)
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("config: SYNC_BATCH_SIZE must be positive, got %d", c.Sync.BatchSize)
	}
	if c.Sync.IntervalSeconds <= 0 {
		return fmt.Errorf("config: SYNC_INTERVAL_SECS must be positive, got %d", c.Sync.IntervalSeconds)
	}
	if c.Sync.MaxConcurrency <= 0 {
		return fmt.Errorf("config: MAX_SYNC_CONCURRENCY must be positive, got %d", c.Sync.MaxConcurrency)
	}
	if c.Cache.PECacheMax < 0 || c.Cache.AttrCacheMax < 0 || c.Cache.RelCacheMax < 0 {
		return fmt.Errorf("config: cache capacities must be non-negative")
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		return fmt.Errorf("config: CATA_PATH must not be empty")
	}
	return nil
}

// String renders a human-readable summary, safe to log at startup.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{engine=%s hybrid=%s timeout=%v sync_batch=%d sync_interval=%ds sync_concurrency=%d "+
			"pe_cache=%d attr_cache=%d rel_cache=%d catalog=%s}",
		c.Router.QueryEngine, c.Router.HybridMode, c.Router.QueryTimeout,
		c.Sync.BatchSize, c.Sync.IntervalSeconds, c.Sync.MaxConcurrency,
		c.Cache.PECacheMax, c.Cache.AttrCacheMax, c.Cache.RelCacheMax, c.Catalog.Path,
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

// getEnvDuration accepts either a Go duration string (e.g. "5s") or a
// bare number, which it interprets as milliseconds — matching how the
// *_MS-suffixed env vars in §6.1 are documented.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultVal
}
