package domain

import "sort"

// Placement maps VM IDs to the host they run on. VMs that could not be
// placed are simply absent.
type Placement struct {
	assignments map[int]Host
}

// NewPlacement returns an empty placement.
func NewPlacement() *Placement {
	return &Placement{assignments: make(map[int]Host)}
}

// Assign places the VM on the host, replacing any previous assignment.
func (p *Placement) Assign(vmID int, host Host) {
	p.assignments[vmID] = host
}

// Remove drops the VM from the placement.
func (p *Placement) Remove(vmID int) {
	delete(p.assignments, vmID)
}

// HostOf returns the host of the VM, if placed.
func (p *Placement) HostOf(vmID int) (Host, bool) {
	h, ok := p.assignments[vmID]
	return h, ok
}

// Len returns the number of placed VMs.
func (p *Placement) Len() int {
	return len(p.assignments)
}

// VMIDs returns the placed VM IDs in ascending order.
func (p *Placement) VMIDs() []int {
	ids := make([]int, 0, len(p.assignments))
	for id := range p.assignments {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// VMsOn returns the IDs of VMs placed on the host in ascending order.
func (p *Placement) VMsOn(hostID int) []int {
	var ids []int
	for id, h := range p.assignments {
		if h.ID == hostID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// HostIDs returns the distinct IDs of hosts holding at least one VM.
func (p *Placement) HostIDs() []int {
	seen := make(map[int]struct{})
	for _, h := range p.assignments {
		seen[h.ID] = struct{}{}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Assignments returns a VM ID to host ID view of the placement.
func (p *Placement) Assignments() map[int]int {
	out := make(map[int]int, len(p.assignments))
	for vmID, h := range p.assignments {
		out[vmID] = h.ID
	}
	return out
}

// Clone returns an independent copy.
func (p *Placement) Clone() *Placement {
	out := &Placement{assignments: make(map[int]Host, len(p.assignments))}
	for vmID, h := range p.assignments {
		out.assignments[vmID] = h
	}
	return out
}
