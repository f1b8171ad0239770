package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Lite transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// LiteConfig configures the standalone binary. It needs no external
// services: the catalog is SQLite under DataDir unless CatalogDatabaseURL
// points at PostgreSQL.
type LiteConfig struct {
	DataDir string

	CatalogDatabaseURL string
	RegistryPath       string
	DatasetVersion     string

	CacheMaxItems int
	CacheTTL      time.Duration

	Transport string // stdio or http
	HTTPPort  int

	LogLevel  string
	LogFormat string
}

// DefaultLiteConfig returns the defaults used when no env var is set.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()

	return &LiteConfig{
		DataDir:        filepath.Join(homeDir, ".trialscout"),
		DatasetVersion: "2025-02-01",
		CacheMaxItems:  1000,
		CacheTTL:       15 * time.Minute,
		Transport:      TransportStdio,
		HTTPPort:       8080,
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// LoadLiteConfig reads TRIALSCOUT_* environment variables over the
// defaults. Unparseable numbers and durations keep the default.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("TRIALSCOUT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	cfg.CatalogDatabaseURL = os.Getenv("TRIALSCOUT_CATALOG_DATABASE_URL")
	cfg.RegistryPath = os.Getenv("TRIALSCOUT_REGISTRY_PATH")
	if v := os.Getenv("TRIALSCOUT_DATASET_VERSION"); v != "" {
		cfg.DatasetVersion = v
	}

	if v := os.Getenv("TRIALSCOUT_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("TRIALSCOUT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("TRIALSCOUT_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("TRIALSCOUT_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv("TRIALSCOUT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TRIALSCOUT_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// Validate rejects an unknown transport.
func (c *LiteConfig) Validate() error {
	if c.Transport != TransportStdio && c.Transport != TransportHTTP {
		return fmt.Errorf("invalid transport %q: must be stdio or http", c.Transport)
	}
	return nil
}

// CatalogDBPath returns the path to the SQLite trial catalog.
func (c *LiteConfig) CatalogDBPath() string {
	return filepath.Join(c.DataDir, "catalog.db")
}

// ExportDir returns the directory for catalog JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
