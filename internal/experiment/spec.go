package experiment

import (
	"fmt"

	"github.com/limiquantix/placesim/internal/consolidation"
	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/drs"
	"github.com/limiquantix/placesim/internal/scheduler"
	"github.com/limiquantix/placesim/internal/topology"
)

// Scale is one (hosts, vms) workload size.
type Scale struct {
	Hosts int `mapstructure:"hosts" json:"hosts" cbor:"hosts"`
	VMs   int `mapstructure:"vms" json:"vms" cbor:"vms"`
}

// Spec describes one experiment. Which fields matter depends on Kind:
//
//	comparison:       Hosts, VMs, Topology, Percentile, Algorithms
//	vm_scaling:       Scales, Topology, Percentile
//	percentile_sweep: Hosts, VMs, Topology, Percentiles
//	topology_sweep:   Hosts, VMs, Percentile, Topologies
//
// A nil Percentile takes the configured supernode percentile; an explicit
// zero is kept.
type Spec struct {
	Name        string                `mapstructure:"name" json:"name" cbor:"name"`
	Kind        domain.ExperimentKind `mapstructure:"kind" json:"kind" cbor:"kind"`
	Hosts       int                   `mapstructure:"hosts" json:"hosts,omitempty" cbor:"hosts"`
	VMs         int                   `mapstructure:"vms" json:"vms,omitempty" cbor:"vms"`
	Topology    string                `mapstructure:"topology" json:"topology,omitempty" cbor:"topology"`
	Percentile  *float64              `mapstructure:"percentile" json:"percentile,omitempty" cbor:"percentile"`
	Algorithms  []string              `mapstructure:"algorithms" json:"algorithms,omitempty" cbor:"algorithms"`
	Scales      []Scale               `mapstructure:"scales" json:"scales,omitempty" cbor:"scales"`
	Percentiles []float64             `mapstructure:"percentiles" json:"percentiles,omitempty" cbor:"percentiles"`
	Topologies  []string              `mapstructure:"topologies" json:"topologies,omitempty" cbor:"topologies"`
}

// DefaultSpecs returns the four standard experiments.
func DefaultSpecs() []Spec {
	return []Spec{
		{
			Name:       "algorithm-comparison",
			Kind:       domain.ExperimentKindComparison,
			Hosts:      20,
			VMs:        60,
			Topology:   string(topology.Tree),
			Percentile: Percentile(0.95),
			Algorithms: []string{scheduler.Name, drs.Name, consolidation.Name},
		},
		{
			Name:       "vm-scaling",
			Kind:       domain.ExperimentKindVMScaling,
			Topology:   string(topology.Tree),
			Percentile: Percentile(0.85),
			Scales:     []Scale{{Hosts: 20, VMs: 60}, {Hosts: 40, VMs: 120}, {Hosts: 60, VMs: 180}},
		},
		{
			Name:        "supernode-percentile",
			Kind:        domain.ExperimentKindPercentileSweep,
			Hosts:       20,
			VMs:         60,
			Topology:    string(topology.Tree),
			Percentiles: []float64{0.70, 0.85, 0.95},
		},
		{
			Name:       "topology",
			Kind:       domain.ExperimentKindTopologySweep,
			Hosts:      20,
			VMs:        60,
			Percentile: Percentile(0.85),
			Topologies: []string{string(topology.Tree), string(topology.FatTree), string(topology.VL2)},
		},
	}
}

// Percentile returns a pointer to p for use in Spec literals.
func Percentile(p float64) *float64 {
	return &p
}

// supernodePercentile is the percentile of a normalized spec.
func (s Spec) supernodePercentile() float64 {
	if s.Percentile == nil {
		return 0
	}
	return *s.Percentile
}

// normalize fills defaults and validates the spec against the registry and
// the size limits.
func (s Spec) normalize(registry *Registry, defaultPercentile float64, limits Limits) (Spec, error) {
	if s.Name == "" {
		return s, fmt.Errorf("experiment name is required: %w", domain.ErrInvalidArgument)
	}
	if s.Topology == "" {
		s.Topology = string(topology.Tree)
	}
	topo, err := topology.Parse(s.Topology)
	if err != nil {
		return s, err
	}
	s.Topology = string(topo)
	if s.Percentile == nil {
		s.Percentile = Percentile(defaultPercentile)
	} else {
		// Copy so the normalized spec does not share the caller's value.
		s.Percentile = Percentile(*s.Percentile)
	}
	if err := checkPercentile(*s.Percentile); err != nil {
		return s, err
	}

	switch s.Kind {
	case domain.ExperimentKindComparison:
		if len(s.Algorithms) == 0 {
			s.Algorithms = registry.Names()
		}
		for _, name := range s.Algorithms {
			if !registry.Has(name) {
				return s, fmt.Errorf("unknown algorithm %q: %w", name, domain.ErrInvalidArgument)
			}
		}
		return s, limits.checkScale(Scale{Hosts: s.Hosts, VMs: s.VMs})

	case domain.ExperimentKindVMScaling:
		if err := limits.checkPoints("scales", len(s.Scales)); err != nil {
			return s, err
		}
		for _, sc := range s.Scales {
			if err := limits.checkScale(sc); err != nil {
				return s, err
			}
		}
		return s, nil

	case domain.ExperimentKindPercentileSweep:
		if err := limits.checkPoints("percentiles", len(s.Percentiles)); err != nil {
			return s, err
		}
		for _, p := range s.Percentiles {
			if err := checkPercentile(p); err != nil {
				return s, err
			}
		}
		return s, limits.checkScale(Scale{Hosts: s.Hosts, VMs: s.VMs})

	case domain.ExperimentKindTopologySweep:
		if err := limits.checkPoints("topologies", len(s.Topologies)); err != nil {
			return s, err
		}
		normalized := make([]string, len(s.Topologies))
		for i, name := range s.Topologies {
			t, err := topology.Parse(name)
			if err != nil {
				return s, err
			}
			normalized[i] = string(t)
		}
		s.Topologies = normalized
		return s, limits.checkScale(Scale{Hosts: s.Hosts, VMs: s.VMs})
	}

	return s, fmt.Errorf("unknown experiment kind %q: %w", s.Kind, domain.ErrInvalidArgument)
}

func checkPercentile(p float64) error {
	if p < 0 || p > 1 || p != p {
		return fmt.Errorf("percentile %v outside [0, 1]: %w", p, domain.ErrInvalidArgument)
	}
	return nil
}
