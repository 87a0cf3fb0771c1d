package experiment

import (
	"context"

	"github.com/limiquantix/placesim/internal/domain"
)

// RunRepository defines the interface for experiment run storage.
type RunRepository interface {
	Create(ctx context.Context, run *domain.ExperimentRun) (*domain.ExperimentRun, error)
	Get(ctx context.Context, id string) (*domain.ExperimentRun, error)
	// List returns the most recent runs first. A non-positive limit means no limit.
	List(ctx context.Context, limit int) ([]*domain.ExperimentRun, error)
}

// ReportCache stores finished runs by fingerprint. Get returns
// domain.ErrCacheMiss for unknown keys.
type ReportCache interface {
	GetRun(ctx context.Context, fingerprint string) (*domain.ExperimentRun, error)
	SetRun(ctx context.Context, fingerprint string, run *domain.ExperimentRun) error
}
