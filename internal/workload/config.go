package workload

import (
	"fmt"

	"github.com/limiquantix/placesim/internal/domain"
)

// Traffic models.
const (
	TrafficRandom    = "random"
	TrafficClustered = "clustered"
)

// Config holds the workload generator configuration.
type Config struct {
	// Host capacity.
	HostMemory  int64 `mapstructure:"host_memory" json:"host_memory"`
	HostCompute int64 `mapstructure:"host_compute" json:"host_compute"`

	// HostsPerRack and RacksPerPod shape the rack and pod assignment.
	HostsPerRack int `mapstructure:"hosts_per_rack" json:"hosts_per_rack"`
	RacksPerPod  int `mapstructure:"racks_per_pod" json:"racks_per_pod"`

	// VM demand is Min + rand[0, Spread).
	VMMemoryMin     int64 `mapstructure:"vm_memory_min" json:"vm_memory_min"`
	VMMemorySpread  int64 `mapstructure:"vm_memory_spread" json:"vm_memory_spread"`
	VMComputeMin    int64 `mapstructure:"vm_compute_min" json:"vm_compute_min"`
	VMComputeSpread int64 `mapstructure:"vm_compute_spread" json:"vm_compute_spread"`

	VMSeed      int64 `mapstructure:"vm_seed" json:"vm_seed"`
	TrafficSeed int64 `mapstructure:"traffic_seed" json:"traffic_seed"`

	// TrafficModel is "random" or "clustered".
	TrafficModel  string `mapstructure:"traffic_model" json:"traffic_model"`
	ClusterGroups int    `mapstructure:"cluster_groups" json:"cluster_groups"`
}

// DefaultConfig returns the default workload configuration.
func DefaultConfig() Config {
	return Config{
		HostMemory:      64000,
		HostCompute:     40000,
		HostsPerRack:    4,
		RacksPerPod:     2,
		VMMemoryMin:     1000,
		VMMemorySpread:  7000,
		VMComputeMin:    1000,
		VMComputeSpread: 5000,
		VMSeed:          1,
		TrafficSeed:     2,
		TrafficModel:    TrafficRandom,
		ClusterGroups:   4,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.HostMemory <= 0 || c.HostCompute <= 0:
		return fmt.Errorf("host capacity must be positive: %w", domain.ErrInvalidArgument)
	case c.HostsPerRack <= 0 || c.RacksPerPod <= 0:
		return fmt.Errorf("hosts per rack and racks per pod must be positive: %w", domain.ErrInvalidArgument)
	case c.VMMemoryMin < 0 || c.VMComputeMin < 0:
		return fmt.Errorf("vm demand minimum must not be negative: %w", domain.ErrInvalidArgument)
	case c.VMMemorySpread <= 0 || c.VMComputeSpread <= 0:
		return fmt.Errorf("vm demand spread must be positive: %w", domain.ErrInvalidArgument)
	}

	switch c.TrafficModel {
	case TrafficRandom:
	case TrafficClustered:
		if c.ClusterGroups <= 0 {
			return fmt.Errorf("cluster groups must be positive: %w", domain.ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("unknown traffic model %q: %w", c.TrafficModel, domain.ErrInvalidArgument)
	}
	return nil
}
