// Package topology models the network distance between hosts for the
// supported data center topologies.
package topology

import (
	"fmt"
	"strings"

	"github.com/limiquantix/placesim/internal/domain"
)

// Topology selects which distance function applies.
type Topology string

const (
	Tree    Topology = "TREE"
	FatTree Topology = "FAT_TREE"
	VL2     Topology = "VL2"
)

// Distances used by the cost model.
const (
	SameHostDistance     = 0.0
	SameRackDistance     = 1.0
	IntermediateDistance = 5.0
	CoreDistance         = 20.0
)

// All lists the supported topologies.
func All() []Topology {
	return []Topology{Tree, FatTree, VL2}
}

// Parse converts a name such as "tree", "fat-tree" or "VL2" into a Topology.
func Parse(name string) (Topology, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "TREE":
		return Tree, nil
	case "FAT_TREE", "FATTREE":
		return FatTree, nil
	case "VL2":
		return VL2, nil
	}
	return "", fmt.Errorf("unknown topology %q: %w", name, domain.ErrInvalidArgument)
}

func (t Topology) String() string {
	return string(t)
}

// Distance returns the network distance between two hosts.
func Distance(a, b domain.Host, t Topology) float64 {
	if a.ID == b.ID {
		return SameHostDistance
	}
	if a.RackID == b.RackID {
		return SameRackDistance
	}

	switch t {
	case Tree:
		return CoreDistance
	case FatTree:
		if a.PodID == b.PodID {
			return IntermediateDistance
		}
		return CoreDistance
	case VL2:
		return IntermediateDistance
	default:
		return CoreDistance
	}
}
