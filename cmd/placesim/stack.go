package main

import (
	"context"
	"fmt"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/config"
	"github.com/limiquantix/placesim/internal/experiment"
	"github.com/limiquantix/placesim/internal/repository/memory"
	"github.com/limiquantix/placesim/internal/repository/postgres"
	"github.com/limiquantix/placesim/internal/repository/redis"
	"github.com/limiquantix/placesim/internal/workload"
)

// stack holds the wired runner and the stores behind it.
type stack struct {
	runner *experiment.Runner
	repo   experiment.RunRepository

	db    *postgres.DB
	cache *redis.Cache
}

func newStack(ctx context.Context, cfg *config.Config, logger *zap.Logger, scope tally.Scope) (*stack, error) {
	st := &stack{}

	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		migrated, err := db.Migrated(ctx)
		if err == nil && !migrated {
			err = fmt.Errorf("experiment_runs table missing, run placesim-migrate up")
		}
		if err != nil {
			db.Close()
			return nil, err
		}
		st.db = db
		st.repo = postgres.NewRunRepository(db, logger)
	default:
		st.repo = memory.NewRunRepository()
	}

	// The cache is optional; a run works without it.
	var cache experiment.ReportCache
	if cfg.Redis.Enabled {
		c, err := redis.NewCache(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unavailable, report cache disabled", zap.Error(err))
		} else {
			st.cache = c
			cache = c
		}
	}

	generator, err := workload.NewGenerator(cfg.Workload, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create workload generator: %w", err)
	}

	registry := experiment.NewRegistry(logger, scope.SubScope("algorithm"))
	st.runner = experiment.NewRunner(
		registry,
		generator,
		cfg.Consolidation,
		st.repo,
		cache,
		logger,
		scope.SubScope("experiment"),
		experiment.WithLimits(cfg.Limits),
	)

	logger.Info("placesim initialized",
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("report_cache", st.cache != nil),
		zap.Strings("algorithms", registry.Names()),
	)
	return st, nil
}

// Close releases the database and cache connections. Safe to call twice.
func (st *stack) Close() {
	if st.cache != nil {
		st.cache.Close()
		st.cache = nil
	}
	if st.db != nil {
		st.db.Close()
		st.db = nil
	}
}
