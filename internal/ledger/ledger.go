// Package ledger tracks remaining host capacity and VM assignments.
//
// Every placement algorithm mutates host capacity exclusively through a
// Ledger. A Ledger can be cloned so that a placement change can be simulated
// on the copy and either committed (by keeping the copy) or discarded.
package ledger

import (
	"fmt"

	"github.com/limiquantix/placesim/internal/domain"
)

// Ledger holds the remaining capacity of every host and the current
// placement. The invariant 0 <= remaining <= capacity holds for both
// resources after every operation.
type Ledger struct {
	hosts     []domain.Host
	index     map[int]int
	remaining []domain.Resources
	placement *domain.Placement
	placed    map[int]domain.VM
}

// New creates a ledger with every host at full capacity.
func New(hosts []domain.Host) (*Ledger, error) {
	l := &Ledger{
		hosts:     domain.CloneHosts(hosts),
		index:     make(map[int]int, len(hosts)),
		remaining: make([]domain.Resources, len(hosts)),
		placement: domain.NewPlacement(),
		placed:    make(map[int]domain.VM),
	}

	for i, h := range hosts {
		if err := h.Validate(); err != nil {
			return nil, err
		}
		if _, dup := l.index[h.ID]; dup {
			return nil, fmt.Errorf("duplicate host id %d: %w", h.ID, domain.ErrInvalidArgument)
		}
		l.index[h.ID] = i
		l.remaining[i] = h.Capacity
	}

	return l, nil
}

// Hosts returns the hosts in construction order.
func (l *Ledger) Hosts() []domain.Host {
	return domain.CloneHosts(l.hosts)
}

// Host looks up a host by ID.
func (l *Ledger) Host(id int) (domain.Host, bool) {
	i, ok := l.index[id]
	if !ok {
		return domain.Host{}, false
	}
	return l.hosts[i], true
}

// Remaining returns the spare capacity of a host. Unknown hosts have none.
func (l *Ledger) Remaining(id int) domain.Resources {
	i, ok := l.index[id]
	if !ok {
		return domain.Resources{}
	}
	return l.remaining[i]
}

// Used returns the capacity consumed on a host.
func (l *Ledger) Used(id int) domain.Resources {
	i, ok := l.index[id]
	if !ok {
		return domain.Resources{}
	}
	return l.hosts[i].Capacity.Sub(l.remaining[i])
}

// Utilization returns the used/total ratios for compute and memory.
func (l *Ledger) Utilization(id int) (compute, memory float64) {
	i, ok := l.index[id]
	if !ok {
		return 0, 0
	}
	capacity := l.hosts[i].Capacity
	used := capacity.Sub(l.remaining[i])
	return float64(used.Compute) / float64(capacity.Compute), float64(used.Memory) / float64(capacity.Memory)
}

// Fits reports whether the demand fits in the host's remaining capacity.
func (l *Ledger) Fits(id int, demand domain.Resources) bool {
	i, ok := l.index[id]
	if !ok {
		return false
	}
	return l.remaining[i].Fits(demand)
}

// Allocate assigns an unplaced VM to a host and consumes its demand.
func (l *Ledger) Allocate(hostID int, vm domain.VM) error {
	i, ok := l.index[hostID]
	if !ok {
		return fmt.Errorf("allocate vm %d on host %d: %w", vm.ID, hostID, domain.ErrUnknownHost)
	}
	if _, ok := l.placed[vm.ID]; ok {
		return fmt.Errorf("allocate vm %d on host %d: %w", vm.ID, hostID, domain.ErrAlreadyPlaced)
	}
	if !l.remaining[i].Fits(vm.Demand) {
		return fmt.Errorf("allocate vm %d %s on host %d with %s remaining: %w",
			vm.ID, vm.Demand, hostID, l.remaining[i], domain.ErrCapacityExceeded)
	}

	l.remaining[i] = l.remaining[i].Sub(vm.Demand)
	l.placed[vm.ID] = vm
	l.placement.Assign(vm.ID, l.hosts[i])
	return nil
}

// Release removes a VM from its host and returns its demand.
func (l *Ledger) Release(vmID int) error {
	vm, ok := l.placed[vmID]
	if !ok {
		return fmt.Errorf("release vm %d: %w", vmID, domain.ErrNotPlaced)
	}
	h, _ := l.placement.HostOf(vmID)
	i := l.index[h.ID]

	l.remaining[i] = l.remaining[i].Add(vm.Demand)
	delete(l.placed, vmID)
	l.placement.Remove(vmID)
	return nil
}

// Move migrates a placed VM to another host.
func (l *Ledger) Move(vm domain.VM, dst int) error {
	return l.MoveGroup([]domain.VM{vm}, dst)
}

// MoveGroup migrates placed VMs to a single destination as one unit. The
// combined demand is checked before anything changes, so a failed move
// leaves the ledger untouched.
func (l *Ledger) MoveGroup(vms []domain.VM, dst int) error {
	i, ok := l.index[dst]
	if !ok {
		return fmt.Errorf("move to host %d: %w", dst, domain.ErrUnknownHost)
	}

	var incoming domain.Resources
	for _, vm := range vms {
		h, ok := l.placement.HostOf(vm.ID)
		if !ok {
			return fmt.Errorf("move vm %d to host %d: %w", vm.ID, dst, domain.ErrNotPlaced)
		}
		if h.ID != dst {
			incoming = incoming.Add(l.placed[vm.ID].Demand)
		}
	}
	if !l.remaining[i].Fits(incoming) {
		return fmt.Errorf("move %d vms %s to host %d with %s remaining: %w",
			len(vms), incoming, dst, l.remaining[i], domain.ErrCapacityExceeded)
	}

	for _, vm := range vms {
		if h, _ := l.placement.HostOf(vm.ID); h.ID == dst {
			continue
		}
		placed := l.placed[vm.ID]
		if err := l.Release(vm.ID); err != nil {
			return err
		}
		if err := l.Allocate(dst, placed); err != nil {
			return err
		}
	}
	return nil
}

// HostOf returns the host a VM is placed on.
func (l *Ledger) HostOf(vmID int) (domain.Host, bool) {
	return l.placement.HostOf(vmID)
}

// VMsOn returns the VMs on a host, ordered by ID.
func (l *Ledger) VMsOn(hostID int) []domain.VM {
	ids := l.placement.VMsOn(hostID)
	vms := make([]domain.VM, len(ids))
	for i, id := range ids {
		vms[i] = l.placed[id]
	}
	return vms
}

// Placement returns a copy of the current placement.
func (l *Ledger) Placement() *domain.Placement {
	return l.placement.Clone()
}

// Clone returns a deep copy sharing no mutable state with l.
func (l *Ledger) Clone() *Ledger {
	out := &Ledger{
		hosts:     domain.CloneHosts(l.hosts),
		index:     make(map[int]int, len(l.index)),
		remaining: make([]domain.Resources, len(l.remaining)),
		placement: l.placement.Clone(),
		placed:    make(map[int]domain.VM, len(l.placed)),
	}
	for id, i := range l.index {
		out.index[id] = i
	}
	copy(out.remaining, l.remaining)
	for id, vm := range l.placed {
		out.placed[id] = vm
	}
	return out
}
