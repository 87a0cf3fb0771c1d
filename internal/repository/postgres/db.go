// Package postgres stores experiment runs in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/config"
)

const (
	applicationName   = "placesim"
	runsTable         = "experiment_runs"
	defaultMaxConns   = 4
	healthCheckPeriod = 30 * time.Second

	// uniqueViolation is the SQLSTATE for unique_violation.
	uniqueViolation = "23505"
)

// DB is the pgx pool behind the run repository.
type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB opens the pool and pings the server. It does not check the schema;
// call Migrated for that.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	logger = logger.With(zap.String("component", "postgres"))

	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create run store pool: %w", err)
	}

	db := &DB{pool: pool, logger: logger}
	if err := db.Health(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run store at %s:%d unreachable: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("Run store connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int32("max_conns", pc.MaxConns),
		zap.Int32("min_conns", pc.MinConns),
	)
	return db, nil
}

// poolConfig maps the database section onto a pgxpool config. A missing
// connection cap falls back to defaultMaxConns and the idle count never
// exceeds the cap.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	minConns := cfg.MaxIdleConns
	if minConns < 0 {
		minConns = 0
	}
	if minConns > maxConns {
		minConns = maxConns
	}
	pc.MaxConns = int32(maxConns)
	pc.MinConns = int32(minConns)

	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.HealthCheckPeriod = healthCheckPeriod
	pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	return pc, nil
}

// Migrated reports whether the experiment_runs table exists in the current
// schema.
func (db *DB) Migrated(ctx context.Context) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`, runsTable).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", runsTable, err)
	}
	return exists, nil
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the pool and logs how it was used.
func (db *DB) Close() {
	stat := db.pool.Stat()
	db.pool.Close()
	db.logger.Info("Run store closed",
		zap.Int64("acquires", stat.AcquireCount()),
		zap.Int64("empty_acquires", stat.EmptyAcquireCount()),
		zap.Duration("acquire_wait", stat.AcquireDuration()),
	)
}

// Health pings the server. It satisfies the readiness check.
func (db *DB) Health(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
