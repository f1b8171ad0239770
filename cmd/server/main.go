package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/trialscout-server/internal/api"
	"github.com/trialscout-server/internal/cache"
	"github.com/trialscout-server/internal/catalog"
	"github.com/trialscout-server/internal/config"
	"github.com/trialscout-server/internal/database"
	"github.com/trialscout-server/internal/domain"
	"github.com/trialscout-server/internal/logging"
	"github.com/trialscout-server/internal/registry"
	"github.com/trialscout-server/internal/repository"
	"github.com/trialscout-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Error("Server failed")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()

	reg, err := loadRegistry(ctx, cfg.Registry, logger)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"source":  reg.Source(),
		"version": reg.Version(),
		"trials":  reg.Len(),
	}).Info("Loaded requirement registry")

	databaseURL := configManager.GetDatabaseURL()
	db, err := database.NewConnection(ctx, database.ConfigFrom(databaseURL, cfg.Database), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate(ctx, databaseURL, logger); err != nil {
		return err
	}

	trials := repository.NewTrialRepository(db.Pool, logger)
	if cfg.Database.SeedCatalog {
		seed, err := catalog.SeedTrials()
		if err != nil {
			return err
		}
		if _, err := trials.SeedIfEmpty(ctx, seed); err != nil {
			return err
		}
	}

	matchCache, closeCache, err := newMatchCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	engine := service.NewMatchEngine(reg, service.WithConcurrency(cfg.Matching.Concurrency))
	svc := service.NewMatchService(engine, trials, matchCache, service.MatchServiceConfig{
		DatasetVersion: cfg.Matching.DatasetVersion,
		ResultTTL:      cfg.Matching.ResultTTL,
	}, logger)

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
	}).Info("Starting trial matching server")

	return api.NewServer(cfg, svc, logger).Start(ctx)
}

func loadRegistry(ctx context.Context, cfg domain.RegistryConfig, logger *logrus.Logger) (*registry.Registry, error) {
	switch cfg.Source {
	case config.RegistryFile:
		return registry.LoadFile(cfg.Path)
	case config.RegistryRemote:
		source := registry.NewRemoteSource(registry.RemoteConfig{
			URL:        cfg.URL,
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			RetryCount: cfg.RetryCount,
		}, logger)
		return source.Fetch(ctx)
	default:
		return registry.LoadDefault()
	}
}

func migrate(ctx context.Context, databaseURL string, logger *logrus.Logger) error {
	runner, err := database.NewEmbeddedMigrationRunner(databaseURL, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	if err := runner.Up(ctx); err != nil {
		return fmt.Errorf("migrating catalog database: %w", err)
	}
	return nil
}

// newMatchCache returns the in-process cache, fronting Redis when a Redis
// URL is configured.
func newMatchCache(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (domain.MatchCache, func(), error) {
	memory, err := cache.NewMemoryCache(cfg.Cache.MaxItems, cfg.Matching.ResultTTL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Cache.RedisURL == "" {
		return memory, func() {}, nil
	}

	shared, err := cache.NewRedisCache(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := shared.Close(); err != nil {
			logger.WithError(err).Warn("Closing Redis cache")
		}
	}
	return cache.NewTieredCache(memory, shared, cfg.Matching.ResultTTL, logger), closeFn, nil
}
