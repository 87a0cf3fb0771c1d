// Package experiment runs placement experiments over generated workloads,
// computes their percentage deltas and stores the resulting runs.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/consolidation"
	"github.com/limiquantix/placesim/internal/cost"
	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/scheduler"
	"github.com/limiquantix/placesim/internal/topology"
	"github.com/limiquantix/placesim/internal/workload"
)

// Runner executes experiments.
type Runner struct {
	registry      *Registry
	generator     *workload.Generator
	consolidation consolidation.Config
	repo          RunRepository
	cache         ReportCache
	limits        Limits
	metrics       *Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLimits sets the size limits specs are checked against.
func WithLimits(l Limits) RunnerOption {
	return func(r *Runner) {
		r.limits = l
	}
}

// NewRunner creates a new Runner. cache may be nil. Without WithLimits the
// runner uses DefaultLimits.
func NewRunner(
	registry *Registry,
	generator *workload.Generator,
	cc consolidation.Config,
	repo RunRepository,
	cache ReportCache,
	logger *zap.Logger,
	scope tally.Scope,
	opts ...RunnerOption,
) *Runner {
	r := &Runner{
		registry:      registry,
		generator:     generator,
		consolidation: cc,
		repo:          repo,
		cache:         cache,
		limits:        DefaultLimits(),
		metrics:       NewMetrics(scope),
		logger:        logger.With(zap.String("component", "experiment")),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the algorithm registry backing the runner.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Algorithms returns the registered algorithm names in sorted order.
func (r *Runner) Algorithms() []string {
	return r.registry.Names()
}

// Run executes one experiment, stores it and returns it. A cached run with
// the same fingerprint is returned without recomputing.
func (r *Runner) Run(ctx context.Context, spec Spec) (*domain.ExperimentRun, error) {
	spec, err := spec.normalize(r.registry, r.consolidation.SupernodePercentile, r.limits)
	if err != nil {
		return nil, err
	}

	fingerprint, err := Fingerprint(spec, r.generator.Config(), r.consolidation)
	if err != nil {
		return nil, err
	}

	logger := r.logger.With(
		zap.String("experiment", spec.Name),
		zap.String("kind", string(spec.Kind)),
		zap.String("fingerprint", fingerprint),
	)

	if cached := r.cached(ctx, fingerprint, logger); cached != nil {
		return cached, nil
	}

	sw := r.metrics.RunDuration.Start()
	rows, err := r.execute(ctx, spec)
	sw.Stop()
	if err != nil {
		r.metrics.RunsFail.Inc(1)
		logger.Error("Experiment failed", zap.Error(err))
		return nil, fmt.Errorf("experiment %s failed: %w", spec.Name, err)
	}

	run := &domain.ExperimentRun{
		ID:          uuid.NewString(),
		Name:        spec.Name,
		Kind:        spec.Kind,
		Fingerprint: fingerprint,
		Rows:        rows,
		CreatedAt:   r.now().UTC(),
	}

	stored, err := r.repo.Create(ctx, run)
	if err != nil {
		r.metrics.RunsFail.Inc(1)
		return nil, fmt.Errorf("failed to store run: %w", err)
	}
	r.metrics.Runs.Inc(1)

	if r.cache != nil {
		if err := r.cache.SetRun(ctx, fingerprint, stored); err != nil {
			r.metrics.CacheError.Inc(1)
			logger.Warn("Failed to cache run", zap.Error(err))
		}
	}

	logger.Info("Experiment complete",
		zap.String("run_id", stored.ID),
		zap.Int("rows", len(stored.Rows)),
	)
	return stored, nil
}

// RunAll executes the specs in order and stops at the first error.
func (r *Runner) RunAll(ctx context.Context, specs []Spec) ([]*domain.ExperimentRun, error) {
	runs := make([]*domain.ExperimentRun, 0, len(specs))
	for _, spec := range specs {
		run, err := r.Run(ctx, spec)
		if err != nil {
			return runs, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (r *Runner) cached(ctx context.Context, fingerprint string, logger *zap.Logger) *domain.ExperimentRun {
	if r.cache == nil {
		return nil
	}

	run, err := r.cache.GetRun(ctx, fingerprint)
	switch {
	case err == nil:
		r.metrics.CacheHit.Inc(1)
		logger.Info("Serving experiment from cache", zap.String("run_id", run.ID))
		return run
	case errors.Is(err, domain.ErrCacheMiss):
		r.metrics.CacheMiss.Inc(1)
	default:
		r.metrics.CacheError.Inc(1)
		logger.Warn("Report cache unavailable", zap.Error(err))
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, spec Spec) ([]domain.RunRow, error) {
	switch spec.Kind {
	case domain.ExperimentKindComparison:
		return r.comparison(ctx, spec)
	case domain.ExperimentKindVMScaling:
		return r.vmScaling(ctx, spec)
	case domain.ExperimentKindPercentileSweep:
		return r.percentileSweep(ctx, spec)
	case domain.ExperimentKindTopologySweep:
		return r.topologySweep(ctx, spec)
	}
	return nil, fmt.Errorf("unknown experiment kind %q: %w", spec.Kind, domain.ErrInvalidArgument)
}

// comparison runs every algorithm on one workload. When the traffic-aware
// consolidator is part of the run, every other row carries its reduction
// relative to that row.
func (r *Runner) comparison(ctx context.Context, spec Spec) ([]domain.RunRow, error) {
	w, err := r.generator.Generate(spec.Hosts, spec.VMs)
	if err != nil {
		return nil, err
	}
	topo := topology.Topology(spec.Topology)

	rows := make([]domain.RunRow, 0, len(spec.Algorithms))
	proposed := -1
	for _, name := range spec.Algorithms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.place(name, w, topo, spec.supernodePercentile())
		if err != nil {
			return nil, err
		}
		row.Label = name
		if name == consolidation.Name {
			proposed = len(rows)
		}
		rows = append(rows, row)
	}

	if proposed >= 0 {
		for i := range rows {
			if i != proposed {
				rows[i].DeltaPercent = Reduction(rows[i].TrafficCost, rows[proposed].TrafficCost)
			}
		}
	}
	return rows, nil
}

// vmScaling runs the traffic-aware consolidator at each scale. Deltas are
// the cost change relative to the first scale.
func (r *Runner) vmScaling(ctx context.Context, spec Spec) ([]domain.RunRow, error) {
	topo := topology.Topology(spec.Topology)

	rows := make([]domain.RunRow, 0, len(spec.Scales))
	for i, sc := range spec.Scales {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, err := r.generator.Generate(sc.Hosts, sc.VMs)
		if err != nil {
			return nil, err
		}
		row, err := r.place(consolidation.Name, w, topo, spec.supernodePercentile())
		if err != nil {
			return nil, err
		}
		row.Label = fmt.Sprintf("scale-%d", i+1)
		row.DeltaPercent = Change(baselineCost(rows, row), row.TrafficCost)
		rows = append(rows, row)
	}
	return rows, nil
}

// percentileSweep runs the traffic-aware consolidator at each percentile.
// Deltas are the reduction relative to the first percentile.
func (r *Runner) percentileSweep(ctx context.Context, spec Spec) ([]domain.RunRow, error) {
	w, err := r.generator.Generate(spec.Hosts, spec.VMs)
	if err != nil {
		return nil, err
	}
	topo := topology.Topology(spec.Topology)

	rows := make([]domain.RunRow, 0, len(spec.Percentiles))
	for _, p := range spec.Percentiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.place(consolidation.Name, w, topo, p)
		if err != nil {
			return nil, err
		}
		row.Label = fmt.Sprintf("p=%.2f", p)
		row.DeltaPercent = Reduction(baselineCost(rows, row), row.TrafficCost)
		rows = append(rows, row)
	}
	return rows, nil
}

// topologySweep runs the traffic-aware consolidator under each topology.
// Deltas are the reduction relative to the first topology.
func (r *Runner) topologySweep(ctx context.Context, spec Spec) ([]domain.RunRow, error) {
	w, err := r.generator.Generate(spec.Hosts, spec.VMs)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.RunRow, 0, len(spec.Topologies))
	for _, name := range spec.Topologies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.place(consolidation.Name, w, topology.Topology(name), spec.supernodePercentile())
		if err != nil {
			return nil, err
		}
		row.Label = name
		row.DeltaPercent = Reduction(baselineCost(rows, row), row.TrafficCost)
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *Runner) place(name string, w *workload.Workload, topo topology.Topology, percentile float64) (domain.RunRow, error) {
	cfg := r.consolidation
	cfg.SupernodePercentile = percentile

	placer, err := r.registry.Get(name, cfg)
	if err != nil {
		return domain.RunRow{}, err
	}

	result, err := placer.Place(scheduler.Input{
		Hosts:    w.Hosts,
		VMs:      w.VMs,
		Traffic:  w.Traffic,
		Topology: topo,
	})
	if err != nil {
		return domain.RunRow{}, fmt.Errorf("%s placement failed: %w", name, err)
	}

	c, err := cost.TrafficCost(result.Placement, w.Traffic, topo)
	if err != nil {
		return domain.RunRow{}, err
	}

	r.logger.Debug("Placement scored",
		zap.String("algorithm", name),
		zap.String("topology", topo.String()),
		zap.Float64("percentile", percentile),
		zap.Float64("traffic_cost", c),
	)

	return domain.RunRow{
		Algorithm:   name,
		Hosts:       len(w.Hosts),
		VMs:         len(w.VMs),
		Topology:    topo.String(),
		Percentile:  percentile,
		TrafficCost: c,
		ActiveHosts: cost.ActiveHosts(result.Placement),
		Unplaced:    len(result.Unplaced),
	}, nil
}

// baselineCost returns the baseline cost: the first row's, or the current
// row's own cost when it is the first.
func baselineCost(rows []domain.RunRow, current domain.RunRow) float64 {
	if len(rows) == 0 {
		return current.TrafficCost
	}
	return rows[0].TrafficCost
}

// Reduction returns (base - v) / base * 100, or 0 for a zero base.
func Reduction(base, v float64) float64 {
	if base == 0 {
		return 0
	}
	return (base - v) / base * 100
}

// Change returns (v - base) / base * 100, or 0 for a zero base.
func Change(base, v float64) float64 {
	if base == 0 {
		return 0
	}
	return (v - base) / base * 100
}
