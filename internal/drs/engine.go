// Package drs implements the load-balancing consolidator. It seeds a
// placement first-fit and then tries, in one pass, to vacate the least
// loaded hosts by moving their VMs onto the most loaded hosts with room.
package drs

import (
	"fmt"
	"sort"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/ledger"
	"github.com/limiquantix/placesim/internal/scheduler"
)

// Name is the registry name of the load-balancing consolidator.
const Name = "sercon"

// lambdaEpsilon keeps the blend weight defined on an idle cluster.
const lambdaEpsilon = 1e-9

// Seeder produces the initial placement.
type Seeder interface {
	Seed(in scheduler.Input) (*ledger.Ledger, []int, error)
}

// HostMetrics contains resource usage metrics for a host.
type HostMetrics struct {
	HostID      int
	ComputeUtil float64
	MemoryUtil  float64
	Load        float64
	VMCount     int
}

// Engine is the load-balancing consolidator.
type Engine struct {
	seeder  Seeder
	metrics *Metrics
	logger  *zap.Logger
}

var _ scheduler.Placer = (*Engine)(nil)

// NewEngine creates a new load-balancing consolidator.
func NewEngine(seeder Seeder, logger *zap.Logger, scope tally.Scope) *Engine {
	return &Engine{
		seeder:  seeder,
		metrics: NewMetrics(scope),
		logger:  logger.With(zap.String("component", "drs")),
	}
}

// Name implements scheduler.Placer.
func (e *Engine) Name() string {
	return Name
}

// Place implements scheduler.Placer.
func (e *Engine) Place(in scheduler.Input) (*scheduler.Result, error) {
	l, unplaced, err := e.seeder.Seed(in)
	if err != nil {
		return nil, err
	}

	emptied, err := e.consolidate(l)
	if err != nil {
		return nil, err
	}

	return &scheduler.Result{
		Algorithm: Name,
		Placement: l.Placement(),
		Unplaced:  unplaced,
		Emptied:   emptied,
		Ledger:    l,
	}, nil
}

// consolidate makes a single pass over the hosts in ascending load order.
// Moves made for a host that cannot be fully vacated are kept.
func (e *Engine) consolidate(l *ledger.Ledger) ([]int, error) {
	sw := e.metrics.Duration.Start()
	defer sw.Stop()

	lambda := BlendWeight(l)
	order := e.calculateHostMetrics(l, lambda)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Load < order[j].Load
	})

	e.logger.Debug("Starting consolidation pass",
		zap.Float64("lambda", lambda),
		zap.Int("hosts", len(order)),
	)

	var emptied []int
	for _, target := range order {
		resident := l.VMsOn(target.HostID)
		if len(resident) == 0 {
			continue
		}

		candidates := e.calculateHostMetrics(l, lambda)
		candidates = excludeHost(candidates, target.HostID)
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Load > candidates[j].Load
		})

		moved := 0
		for _, vm := range resident {
			dst := -1
			for _, c := range candidates {
				if l.Fits(c.HostID, vm.Demand) {
					dst = c.HostID
					break
				}
			}
			if dst < 0 {
				e.metrics.FailedRelocations.Inc(1)
				e.logger.Debug("VM cannot be relocated, keeping partial moves",
					zap.Int("host_id", target.HostID),
					zap.Int("vm_id", vm.ID),
					zap.Int("moved", moved),
					zap.Int("resident", len(resident)),
				)
				break
			}

			if err := l.Move(vm, dst); err != nil {
				return nil, fmt.Errorf("failed to relocate vm %d from host %d: %w", vm.ID, target.HostID, err)
			}
			e.metrics.Migrations.Inc(1)
			moved++
		}

		if moved == len(resident) {
			emptied = append(emptied, target.HostID)
			e.metrics.EmptiedHosts.Inc(1)
			e.logger.Info("Host emptied",
				zap.Int("host_id", target.HostID),
				zap.Int("vms_moved", moved),
			)
		}
	}

	return emptied, nil
}

// calculateHostMetrics computes resource usage for every host, in ledger
// order.
func (e *Engine) calculateHostMetrics(l *ledger.Ledger, lambda float64) []HostMetrics {
	hosts := l.Hosts()
	out := make([]HostMetrics, len(hosts))
	for i, h := range hosts {
		compute, memory := l.Utilization(h.ID)
		out[i] = HostMetrics{
			HostID:      h.ID,
			ComputeUtil: compute,
			MemoryUtil:  memory,
			Load:        lambda*compute + (1-lambda)*memory,
			VMCount:     len(l.VMsOn(h.ID)),
		}
	}
	return out
}

// BlendWeight returns the cluster-wide weight of compute relative to memory.
// Both ratios are sums of per-host utilization.
func BlendWeight(l *ledger.Ledger) float64 {
	var computeRatio, memoryRatio float64
	for _, h := range l.Hosts() {
		compute, memory := l.Utilization(h.ID)
		computeRatio += compute
		memoryRatio += memory
	}
	return computeRatio / (computeRatio + memoryRatio + lambdaEpsilon)
}

func excludeHost(metrics []HostMetrics, hostID int) []HostMetrics {
	out := metrics[:0]
	for _, m := range metrics {
		if m.HostID != hostID {
			out = append(out, m)
		}
	}
	return out
}
