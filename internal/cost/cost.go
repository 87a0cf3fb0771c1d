// Package cost scores placements under the traffic-weighted distance model.
package cost

import (
	"fmt"

	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/topology"
)

// TrafficCost sums traffic(a, b) * distance(host(a), host(b)) over every
// unordered pair of placed VMs. VMs are visited in ascending ID order so the
// floating point sum is identical across runs.
func TrafficCost(p *domain.Placement, traffic *domain.TrafficMatrix, topo topology.Topology) (float64, error) {
	ids := p.VMIDs()
	for _, id := range ids {
		if !traffic.Contains(id) {
			return 0, fmt.Errorf("vm %d outside %dx%d traffic matrix: %w", id, traffic.Dim(), traffic.Dim(), domain.ErrInvalidArgument)
		}
	}

	hosts := make([]domain.Host, len(ids))
	for i, id := range ids {
		hosts[i], _ = p.HostOf(id)
	}

	var total float64
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			t := traffic.At(ids[i], ids[j])
			if t == 0 {
				continue
			}
			total += t * topology.Distance(hosts[i], hosts[j], topo)
		}
	}
	return total, nil
}

// ActiveHosts counts the distinct hosts referenced by the placement.
func ActiveHosts(p *domain.Placement) int {
	return len(p.HostIDs())
}
