package consolidation

import (
	"fmt"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/cost"
	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/ledger"
	"github.com/limiquantix/placesim/internal/scheduler"
)

// Name is the registry name of the traffic-aware consolidator.
const Name = "proposed"

// Seeder produces the initial placement.
type Seeder interface {
	Seed(in scheduler.Input) (*ledger.Ledger, []int, error)
}

// Consolidator is the traffic-aware consolidator.
type Consolidator struct {
	config  Config
	seeder  Seeder
	metrics *Metrics
	logger  *zap.Logger
}

var _ scheduler.Placer = (*Consolidator)(nil)

// New creates a new Consolidator. The configuration is validated here so a
// bad percentile or attempt cap fails before any placement work.
func New(cfg Config, seeder Seeder, logger *zap.Logger, scope tally.Scope) (*Consolidator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Consolidator{
		config:  cfg,
		seeder:  seeder,
		metrics: NewMetrics(scope),
		logger:  logger.With(zap.String("component", "consolidation")),
	}, nil
}

// Name implements scheduler.Placer.
func (c *Consolidator) Name() string {
	return Name
}

// Config returns the consolidator configuration.
func (c *Consolidator) Config() Config {
	return c.config
}

// Place implements scheduler.Placer.
func (c *Consolidator) Place(in scheduler.Input) (*scheduler.Result, error) {
	if in.Traffic == nil {
		return nil, fmt.Errorf("traffic matrix is required: %w", domain.ErrInvalidArgument)
	}

	live, unplaced, err := c.seeder.Seed(in)
	if err != nil {
		return nil, err
	}

	sw := c.metrics.Duration.Start()
	defer sw.Stop()

	currentCost, err := cost.TrafficCost(live.Placement(), in.Traffic, in.Topology)
	if err != nil {
		return nil, fmt.Errorf("failed to compute seed cost: %w", err)
	}
	c.metrics.Cost.Update(currentCost)

	logger := c.logger.With(
		zap.Stringer("topology", in.Topology),
		zap.Float64("percentile", c.config.SupernodePercentile),
	)
	logger.Debug("Seed placement ready", zap.Float64("cost", currentCost))

	tried := make(map[int]struct{})
	var attempts []scheduler.Attempt

	for i := 0; i < c.config.MaxReleaseAttempts; i++ {
		candidate, ok := selectCandidate(live, tried)
		if !ok {
			logger.Debug("No untried host left", zap.Int("attempt", i))
			break
		}
		tried[candidate] = struct{}{}

		attempt, next, err := c.release(live, candidate, currentCost, in)
		if err != nil {
			return nil, err
		}
		if next != nil {
			live = next
			currentCost = attempt.CostAfter
			c.metrics.Cost.Update(currentCost)
		}

		c.metrics.Attempts[attempt.Outcome].Inc(1)
		attempts = append(attempts, attempt)
	}

	return &scheduler.Result{
		Algorithm: Name,
		Placement: live.Placement(),
		Unplaced:  unplaced,
		Attempts:  attempts,
		Ledger:    live,
	}, nil
}

// release runs one attempt against the candidate host. The live ledger is
// never modified; an accepted attempt returns the simulated ledger to commit.
func (c *Consolidator) release(
	live *ledger.Ledger,
	candidate int,
	currentCost float64,
	in scheduler.Input,
) (scheduler.Attempt, *ledger.Ledger, error) {
	attempt := scheduler.Attempt{
		HostID:     candidate,
		CostBefore: currentCost,
		CostAfter:  currentCost,
	}
	logger := c.logger.With(zap.Int("host_id", candidate))

	resident := live.VMsOn(candidate)
	if len(resident) == 0 {
		attempt.Outcome = scheduler.OutcomeSkipped
		logger.Debug("Candidate host is already empty")
		return attempt, nil, nil
	}

	parts := c.partition(live, resident, candidate, in.Traffic)
	if parts == nil {
		attempt.Outcome = scheduler.OutcomeAbandoned
		logger.Info("Host cannot be released, no partitioning fits",
			zap.Int("resident", len(resident)),
		)
		return attempt, nil, nil
	}
	attempt.Partitions = partitionIDs(parts)
	c.metrics.PartitionsK.RecordValue(float64(len(parts)))

	sim := live.Clone()
	if _, err := migratePartitions(sim, parts, candidate, in.Traffic, in.Topology); err != nil {
		return attempt, nil, fmt.Errorf("failed to simulate release of host %d: %w", candidate, err)
	}

	newCost, err := cost.TrafficCost(sim.Placement(), in.Traffic, in.Topology)
	if err != nil {
		return attempt, nil, fmt.Errorf("failed to compute simulated cost: %w", err)
	}

	if newCost < currentCost {
		attempt.Outcome = scheduler.OutcomeAccepted
		attempt.CostAfter = newCost
		logger.Info("Host release accepted",
			zap.Float64("cost_before", currentCost),
			zap.Float64("cost_after", newCost),
			zap.Int("partitions", len(parts)),
		)
		return attempt, sim, nil
	}

	attempt.Outcome = scheduler.OutcomeRejected
	logger.Info("Host release rejected",
		zap.Float64("cost_before", currentCost),
		zap.Float64("cost_simulated", newCost),
	)
	return attempt, nil, nil
}

// partition grows k from the initial partition count until every cluster
// fits some other host. It returns nil once k exceeds the resident count.
func (c *Consolidator) partition(
	live *ledger.Ledger,
	resident []domain.VM,
	candidate int,
	traffic *domain.TrafficMatrix,
) [][]domain.VM {
	for k := c.config.InitialPartitions; ; k++ {
		parts := Partition(resident, traffic, c.config.SupernodePercentile, k)
		if feasible(live, parts, candidate) {
			return parts
		}
		if k+1 > len(resident) {
			return nil
		}
	}
}

func partitionIDs(parts [][]domain.VM) [][]int {
	out := make([][]int, len(parts))
	for i, part := range parts {
		ids := make([]int, len(part))
		for j, v := range part {
			ids[j] = v.ID
		}
		out[i] = ids
	}
	return out
}
