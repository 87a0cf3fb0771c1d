package consolidation

import (
	"fmt"

	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/ledger"
	"github.com/limiquantix/placesim/internal/topology"
)

// feasible reports whether every partition, taken alone, fits the remaining
// capacity of at least one host other than the candidate.
func feasible(l *ledger.Ledger, parts [][]domain.VM, candidate int) bool {
	hosts := l.Hosts()
	for _, part := range parts {
		demand := domain.TotalDemand(part)
		ok := false
		for _, h := range hosts {
			if h.ID != candidate && l.Fits(h.ID, demand) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// destinationCost is the traffic cost between the partition, placed on dst,
// and every placed VM outside the partition.
func destinationCost(
	part []domain.VM,
	dst domain.Host,
	placement *domain.Placement,
	traffic *domain.TrafficMatrix,
	topo topology.Topology,
) float64 {
	members := make(map[int]struct{}, len(part))
	for _, v := range part {
		members[v.ID] = struct{}{}
	}

	others := placement.VMIDs()
	var total float64
	for _, v := range part {
		for _, other := range others {
			if _, in := members[other]; in {
				continue
			}
			t := traffic.At(v.ID, other)
			if t == 0 {
				continue
			}
			h, _ := placement.HostOf(other)
			total += t * topology.Distance(dst, h, topo)
		}
	}
	return total
}

// migratePartitions moves each partition, as one unit, to the non-candidate
// host with room that minimizes destinationCost. Ties keep the earliest host.
// A partition with no destination stays where it is.
func migratePartitions(
	sim *ledger.Ledger,
	parts [][]domain.VM,
	candidate int,
	traffic *domain.TrafficMatrix,
	topo topology.Topology,
) (moved int, err error) {
	hosts := sim.Hosts()
	for _, part := range parts {
		demand := domain.TotalDemand(part)
		placement := sim.Placement()

		best, found := domain.Host{}, false
		var bestCost float64
		for _, h := range hosts {
			if h.ID == candidate || !sim.Fits(h.ID, demand) {
				continue
			}
			c := destinationCost(part, h, placement, traffic, topo)
			if !found || c < bestCost {
				best, bestCost, found = h, c, true
			}
		}
		if !found {
			continue
		}

		if err := sim.MoveGroup(part, best.ID); err != nil {
			return moved, fmt.Errorf("failed to move partition to host %d: %w", best.ID, err)
		}
		moved++
	}
	return moved, nil
}
