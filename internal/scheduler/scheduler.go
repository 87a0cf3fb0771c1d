// Package scheduler implements the first-fit-decreasing placer and the
// placement contract shared by every algorithm.
package scheduler

import (
	"fmt"
	"sort"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/ledger"
)

// Name is the registry name of the first-fit-decreasing placer.
const Name = "ffd"

// Scheduler places VMs first-fit in descending compute order.
type Scheduler struct {
	metrics *Metrics
	logger  *zap.Logger
}

var _ Placer = (*Scheduler)(nil)

// New creates a new Scheduler instance.
func New(logger *zap.Logger, scope tally.Scope) *Scheduler {
	return &Scheduler{
		metrics: NewMetrics(scope),
		logger:  logger.With(zap.String("component", "scheduler")),
	}
}

// Name implements Placer.
func (s *Scheduler) Name() string {
	return Name
}

// Place implements Placer.
func (s *Scheduler) Place(in Input) (*Result, error) {
	l, unplaced, err := s.Seed(in)
	if err != nil {
		return nil, err
	}

	return &Result{
		Algorithm: Name,
		Placement: l.Placement(),
		Unplaced:  unplaced,
		Ledger:    l,
	}, nil
}

// Seed builds a fresh ledger from the input hosts and fills it first-fit.
// It returns the ledger and the IDs of VMs that fit nowhere, in ascending
// order. The consolidators use it as their starting point.
func (s *Scheduler) Seed(in Input) (*ledger.Ledger, []int, error) {
	if err := in.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid placement input: %w", err)
	}

	sw := s.metrics.Duration.Start()
	defer sw.Stop()
	s.metrics.Runs.Inc(1)

	l, err := ledger.New(in.Hosts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build ledger: %w", err)
	}

	vms := domain.CloneVMs(in.VMs)
	sort.SliceStable(vms, func(i, j int) bool {
		return vms[i].Demand.Compute > vms[j].Demand.Compute
	})

	var unplaced []int
	for _, vm := range vms {
		placed := false
		for _, h := range in.Hosts {
			if !l.Fits(h.ID, vm.Demand) {
				continue
			}
			if err := l.Allocate(h.ID, vm); err != nil {
				return nil, nil, fmt.Errorf("failed to allocate vm %d: %w", vm.ID, err)
			}
			placed = true
			break
		}

		if !placed {
			s.logger.Debug("No host fits VM",
				zap.Int("vm_id", vm.ID),
				zap.Stringer("demand", vm.Demand),
			)
			unplaced = append(unplaced, vm.ID)
		}
	}
	sort.Ints(unplaced)

	s.metrics.Placed.Inc(int64(len(vms) - len(unplaced)))
	s.metrics.Unplaced.Inc(int64(len(unplaced)))

	if len(unplaced) > 0 {
		s.logger.Warn("Some VMs could not be placed",
			zap.Int("unplaced", len(unplaced)),
			zap.Int("total_vms", len(vms)),
		)
	}
	s.logger.Debug("First-fit pass complete",
		zap.Int("hosts", len(in.Hosts)),
		zap.Int("vms", len(vms)),
	)

	return l, unplaced, nil
}
