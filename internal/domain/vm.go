package domain

import "fmt"

// VM represents a virtual machine and its fixed resource demand.
type VM struct {
	ID     int       `json:"id"`
	Demand Resources `json:"demand"`
}

// Validate checks that the demand is non-negative.
func (v VM) Validate() error {
	if v.Demand.IsNegative() {
		return fmt.Errorf("vm %d has negative demand %s: %w", v.ID, v.Demand, ErrInvalidArgument)
	}
	return nil
}

// CloneVMs returns a copy of the VM list.
func CloneVMs(vms []VM) []VM {
	out := make([]VM, len(vms))
	copy(out, vms)
	return out
}

// TotalDemand sums the demand of all given VMs.
func TotalDemand(vms []VM) Resources {
	var total Resources
	for _, vm := range vms {
		total = total.Add(vm.Demand)
	}
	return total
}

// IndexVMs maps VM IDs to VMs.
func IndexVMs(vms []VM) map[int]VM {
	index := make(map[int]VM, len(vms))
	for _, vm := range vms {
		index[vm.ID] = vm
	}
	return index
}
