package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/experiment"
)

// Ensure RunRepository implements experiment.RunRepository
var _ experiment.RunRepository = (*RunRepository)(nil)

// RunRepository stores experiment runs in the experiment_runs table.
// Rows are kept as a JSONB document.
type RunRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRunRepository creates a new PostgreSQL run repository.
func NewRunRepository(db *DB, logger *zap.Logger) *RunRepository {
	return &RunRepository{
		db:     db,
		logger: logger.With(zap.String("repository", "experiment_run")),
	}
}

// Create stores a new run.
func (r *RunRepository) Create(ctx context.Context, run *domain.ExperimentRun) (*domain.ExperimentRun, error) {
	stored := run.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	rows, err := json.Marshal(stored.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run rows: %w", err)
	}

	query := `
		INSERT INTO experiment_runs (id, name, kind, fingerprint, rows, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.pool.Exec(ctx, query,
		stored.ID,
		stored.Name,
		string(stored.Kind),
		stored.Fingerprint,
		rows,
		stored.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("Failed to create run", zap.Error(err), zap.String("name", stored.Name))
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	r.logger.Debug("Created run", zap.String("id", stored.ID), zap.String("name", stored.Name))
	return stored, nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*domain.ExperimentRun, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	query := `
		SELECT id, name, kind, fingerprint, rows, created_at
		FROM experiment_runs
		WHERE id = $1
	`

	run, err := scanRun(r.db.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// List returns runs newest first. A non-positive limit returns every run.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*domain.ExperimentRun, error) {
	query := `
		SELECT id, name, kind, fingerprint, rows, created_at
		FROM experiment_runs
		ORDER BY created_at DESC, id ASC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list runs", zap.Error(err))
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ExperimentRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*domain.ExperimentRun, error) {
	var (
		run  domain.ExperimentRun
		kind string
		raw  []byte
	)
	if err := row.Scan(&run.ID, &run.Name, &kind, &run.Fingerprint, &raw, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.Kind = domain.ExperimentKind(kind)
	if err := json.Unmarshal(raw, &run.Rows); err != nil {
		return nil, fmt.Errorf("failed to decode run rows: %w", err)
	}
	run.CreatedAt = run.CreatedAt.UTC()
	return &run, nil
}
