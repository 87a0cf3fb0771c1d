// Package memory provides in-memory repository implementations for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/experiment"
)

// Ensure RunRepository implements experiment.RunRepository
var _ experiment.RunRepository = (*RunRepository)(nil)

// RunRepository is an in-memory implementation of the experiment run repository.
type RunRepository struct {
	mu   sync.RWMutex
	data map[string]*domain.ExperimentRun
}

// NewRunRepository creates a new in-memory run repository.
func NewRunRepository() *RunRepository {
	return &RunRepository{
		data: make(map[string]*domain.ExperimentRun),
	}
}

// Create stores a new run.
func (r *RunRepository) Create(ctx context.Context, run *domain.ExperimentRun) (*domain.ExperimentRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Generate ID if not set
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if _, exists := r.data[run.ID]; exists {
		return nil, domain.ErrAlreadyExists
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	// Clone to avoid external mutations
	stored := run.Clone()
	r.data[stored.ID] = stored

	return stored.Clone(), nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*domain.ExperimentRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return run.Clone(), nil
}

// List returns runs newest first. A non-positive limit returns every run.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*domain.ExperimentRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.ExperimentRun, 0, len(r.data))
	for _, run := range r.data {
		result = append(result, run.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
