package domain

import "fmt"

// Resources is a two dimensional resource amount: memory and compute.
type Resources struct {
	Memory  int64 `json:"memory" cbor:"memory"`
	Compute int64 `json:"compute" cbor:"compute"`
}

// Add returns r + o.
func (r Resources) Add(o Resources) Resources {
	return Resources{Memory: r.Memory + o.Memory, Compute: r.Compute + o.Compute}
}

// Sub returns r - o.
func (r Resources) Sub(o Resources) Resources {
	return Resources{Memory: r.Memory - o.Memory, Compute: r.Compute - o.Compute}
}

// Fits reports whether demand fits within r in both dimensions.
func (r Resources) Fits(demand Resources) bool {
	return demand.Memory <= r.Memory && demand.Compute <= r.Compute
}

// IsNegative reports whether either dimension is below zero.
func (r Resources) IsNegative() bool {
	return r.Memory < 0 || r.Compute < 0
}

func (r Resources) String() string {
	return fmt.Sprintf("(mem=%d, cpu=%d)", r.Memory, r.Compute)
}

// Host represents a physical machine in the data center.
// Remaining capacity is not part of the host; it is tracked by the ledger.
type Host struct {
	ID       int       `json:"id"`
	RackID   int       `json:"rack_id"`
	PodID    int       `json:"pod_id"`
	Capacity Resources `json:"capacity"`
}

// Validate checks that the host has usable capacity.
func (h Host) Validate() error {
	if h.Capacity.Memory <= 0 || h.Capacity.Compute <= 0 {
		return fmt.Errorf("host %d has non-positive capacity %s: %w", h.ID, h.Capacity, ErrInvalidArgument)
	}
	return nil
}

// CloneHosts returns a copy of the host list.
func CloneHosts(hosts []Host) []Host {
	out := make([]Host, len(hosts))
	copy(out, hosts)
	return out
}
