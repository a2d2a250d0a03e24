package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"QUERY_ENGINE", "HYBRID_MODE", "QUERY_TIMEOUT_MS",
		"SYNC_BATCH_SIZE", "SYNC_INTERVAL_SECS", "MAX_SYNC_CONCURRENCY",
		"PE_CACHE_MAX", "ATTR_CACHE_MAX", "REL_CACHE_MAX", "CATA_PATH",
	} {
		os.Unsetenv(key)
	}

	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, EngineAuto, cfg.Router.QueryEngine)
	assert.Equal(t, HybridDualSecondaryPreferred, cfg.Router.HybridMode)
	assert.Equal(t, 5000*time.Millisecond, cfg.Router.QueryTimeout)
	assert.Equal(t, 1000, cfg.Sync.BatchSize)
	assert.Equal(t, 60, cfg.Sync.IntervalSeconds)
	assert.Equal(t, 10_000, cfg.Cache.PECacheMax)
	assert.Equal(t, "catalog.json", cfg.Catalog.Path)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("QUERY_ENGINE", "primary")
	t.Setenv("HYBRID_MODE", "dual_primary_preferred")
	t.Setenv("QUERY_TIMEOUT_MS", "2500")
	t.Setenv("SYNC_BATCH_SIZE", "250")
	t.Setenv("CATA_PATH", "/etc/pdmscore/catalog.json")

	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, EngineDocstore, cfg.Router.QueryEngine)
	assert.Equal(t, HybridDualPrimaryPreferred, cfg.Router.HybridMode)
	assert.Equal(t, 2500*time.Millisecond, cfg.Router.QueryTimeout)
	assert.Equal(t, 250, cfg.Sync.BatchSize)
	assert.Equal(t, "/etc/pdmscore/catalog.json", cfg.Catalog.Path)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Router.QueryEngine = "bogus"
	assert.Error(t, cfg.Validate())

	cfg = LoadFromEnv()
	cfg.Sync.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = LoadFromEnv()
	cfg.Catalog.Path = "  "
	assert.Error(t, cfg.Validate())
}

func TestStringIncludesKeyFields(t *testing.T) {
	cfg := LoadFromEnv()
	s := cfg.String()
	assert.Contains(t, s, "engine=")
	assert.Contains(t, s, "hybrid=")
	assert.Contains(t, s, "catalog=")
}
