// Command server-lite runs trial matching without external services. The
// catalog is SQLite under the data directory, or PostgreSQL when
// TRIALSCOUT_CATALOG_DATABASE_URL is set, and results are cached in process.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trialscout-server/internal/api"
	"github.com/trialscout-server/internal/cache"
	"github.com/trialscout-server/internal/catalog"
	"github.com/trialscout-server/internal/config"
	"github.com/trialscout-server/internal/database"
	"github.com/trialscout-server/internal/domain"
	"github.com/trialscout-server/internal/logging"
	"github.com/trialscout-server/internal/mcp"
	"github.com/trialscout-server/internal/registry"
	"github.com/trialscout-server/internal/service"
)

func main() {
	cfg := config.LoadLiteConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Lite server failed")
		os.Exit(1)
	}
	logger.Info("Lite server stopped")
}

func run(ctx context.Context, cfg *config.LiteConfig, logger *logrus.Logger) error {
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	reg, err := loadRegistry(cfg.RegistryPath)
	if err != nil {
		return err
	}

	store, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := catalog.Seed(ctx, store, logger); err != nil {
		return err
	}

	matchCache, err := cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)
	if err != nil {
		return err
	}

	engine := service.NewMatchEngine(reg)
	svc := service.NewMatchService(engine, store, matchCache, service.MatchServiceConfig{
		DatasetVersion: cfg.DatasetVersion,
		ResultTTL:      cfg.CacheTTL,
	}, logger)

	logger.WithFields(logrus.Fields{
		"transport":        cfg.Transport,
		"data_dir":         cfg.DataDir,
		"registry_version": reg.Version(),
	}).Info("Starting trial matching server (lite)")

	if cfg.Transport == config.TransportHTTP {
		return api.NewServer(httpConfig(cfg), svc, logger).Start(ctx)
	}
	return mcp.NewServer(svc, logger).Run(ctx)
}

func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.LoadDefault()
	}
	return registry.LoadFile(path)
}

func openCatalog(ctx context.Context, cfg *config.LiteConfig, logger *logrus.Logger) (catalog.Store, error) {
	if cfg.CatalogDatabaseURL == "" {
		store, err := catalog.NewSQLiteStore(cfg.CatalogDBPath())
		if err != nil {
			return nil, err
		}
		logger.WithField("path", store.Path()).Info("Opened SQLite trial catalog")
		return store, nil
	}

	runner, err := database.NewEmbeddedMigrationRunner(cfg.CatalogDatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	defer runner.Close()
	if err := runner.Up(ctx); err != nil {
		return nil, err
	}

	return catalog.NewPostgresStoreFromURL(cfg.CatalogDatabaseURL)
}

// httpConfig fills the server settings the HTTP transport reads. Rate
// limiting stays off.
func httpConfig(cfg *config.LiteConfig) *domain.Config {
	return &domain.Config{
		Environment: "development",
		Server: domain.ServerConfig{
			Host:           "127.0.0.1",
			Port:           cfg.HTTPPort,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    2 * time.Minute,
			RequestTimeout: 10 * time.Second,
		},
		Logging: domain.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat},
		CORS:    domain.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}
