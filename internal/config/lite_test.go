package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var liteEnvVars = []string{
	"TRIALSCOUT_DATA_DIR",
	"TRIALSCOUT_CATALOG_DATABASE_URL",
	"TRIALSCOUT_REGISTRY_PATH",
	"TRIALSCOUT_DATASET_VERSION",
	"TRIALSCOUT_CACHE_MAX_ITEMS",
	"TRIALSCOUT_CACHE_TTL",
	"TRIALSCOUT_TRANSPORT",
	"TRIALSCOUT_HTTP_PORT",
	"TRIALSCOUT_LOG_LEVEL",
	"TRIALSCOUT_LOG_FORMAT",
}

// clearLiteEnv blanks every lite variable for the duration of the test.
func clearLiteEnv(t *testing.T) {
	t.Helper()
	for _, v := range liteEnvVars {
		t.Setenv(v, "")
	}
}

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.CatalogDatabaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearLiteEnv(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, "2025-02-01", cfg.DatasetVersion)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearLiteEnv(t)

	t.Setenv("TRIALSCOUT_DATA_DIR", "/tmp/test-trialscout")
	t.Setenv("TRIALSCOUT_CATALOG_DATABASE_URL", "postgres://localhost/trials")
	t.Setenv("TRIALSCOUT_REGISTRY_PATH", "/etc/trialscout/requirements.yaml")
	t.Setenv("TRIALSCOUT_DATASET_VERSION", "2025-03")
	t.Setenv("TRIALSCOUT_CACHE_MAX_ITEMS", "500")
	t.Setenv("TRIALSCOUT_CACHE_TTL", "12h")
	t.Setenv("TRIALSCOUT_TRANSPORT", "http")
	t.Setenv("TRIALSCOUT_HTTP_PORT", "9090")
	t.Setenv("TRIALSCOUT_LOG_LEVEL", "debug")
	t.Setenv("TRIALSCOUT_LOG_FORMAT", "text")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-trialscout", cfg.DataDir)
	assert.Equal(t, "postgres://localhost/trials", cfg.CatalogDatabaseURL)
	assert.Equal(t, "/etc/trialscout/requirements.yaml", cfg.RegistryPath)
	assert.Equal(t, "2025-03", cfg.DatasetVersion)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_InvalidNumbersKeepDefaults(t *testing.T) {
	clearLiteEnv(t)
	t.Setenv("TRIALSCOUT_CACHE_MAX_ITEMS", "-3")
	t.Setenv("TRIALSCOUT_CACHE_TTL", "soon")
	t.Setenv("TRIALSCOUT_HTTP_PORT", "http")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLiteConfig_Validate(t *testing.T) {
	cfg := DefaultLiteConfig()
	cfg.Transport = "sse"
	assert.ErrorContains(t, cfg.Validate(), "invalid transport")
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.trialscout"}

	assert.Equal(t, "/home/user/.trialscout/catalog.db", cfg.CatalogDBPath())
	assert.Equal(t, "/home/user/.trialscout/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "trialscout")}

	require.NoError(t, cfg.EnsureDataDir())

	assert.DirExists(t, cfg.DataDir)
	assert.DirExists(t, cfg.ExportDir())
}
