package scheduler

import (
	"fmt"

	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/ledger"
	"github.com/limiquantix/placesim/internal/topology"
)

// Input is the problem handed to a Placer. Placers never mutate it.
type Input struct {
	Hosts    []domain.Host
	VMs      []domain.VM
	Traffic  *domain.TrafficMatrix
	Topology topology.Topology
}

// Validate rejects malformed input before any placement work starts.
func (in Input) Validate() error {
	hostIDs := make(map[int]struct{}, len(in.Hosts))
	for _, h := range in.Hosts {
		if err := h.Validate(); err != nil {
			return err
		}
		if _, dup := hostIDs[h.ID]; dup {
			return fmt.Errorf("duplicate host id %d: %w", h.ID, domain.ErrInvalidArgument)
		}
		hostIDs[h.ID] = struct{}{}
	}

	vmIDs := make(map[int]struct{}, len(in.VMs))
	for _, vm := range in.VMs {
		if err := vm.Validate(); err != nil {
			return err
		}
		if _, dup := vmIDs[vm.ID]; dup {
			return fmt.Errorf("duplicate vm id %d: %w", vm.ID, domain.ErrInvalidArgument)
		}
		vmIDs[vm.ID] = struct{}{}
		if in.Traffic != nil && !in.Traffic.Contains(vm.ID) {
			return fmt.Errorf("vm %d outside %dx%d traffic matrix: %w",
				vm.ID, in.Traffic.Dim(), in.Traffic.Dim(), domain.ErrInvalidArgument)
		}
	}
	return nil
}

// Outcome classifies a single release attempt of the traffic-aware
// consolidator.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeAbandoned Outcome = "abandoned"
	OutcomeAccepted  Outcome = "accepted"
	OutcomeRejected  Outcome = "rejected"
)

// Attempt records one release attempt. CostAfter equals CostBefore unless
// the attempt was accepted.
type Attempt struct {
	HostID     int     `json:"host_id"`
	Outcome    Outcome `json:"outcome"`
	Partitions [][]int `json:"partitions,omitempty"`
	CostBefore float64 `json:"cost_before"`
	CostAfter  float64 `json:"cost_after"`
}

// Result is the output of a placement run.
type Result struct {
	Algorithm string
	Placement *domain.Placement
	Unplaced  []int

	// Emptied lists hosts the load balancer managed to vacate.
	Emptied []int
	// Attempts is filled by the traffic-aware consolidator.
	Attempts []Attempt

	// Ledger is the final capacity state backing Placement.
	Ledger *ledger.Ledger
}

// Placer maps VMs onto hosts.
type Placer interface {
	// Name returns the registry name of the algorithm.
	Name() string
	// Place runs the algorithm to completion on a private copy of the input.
	Place(in Input) (*Result, error)
}
