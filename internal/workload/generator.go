// Package workload generates deterministic synthetic hosts, VMs and traffic
// matrices for placement experiments.
package workload

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/domain"
)

// Workload is one generated problem instance.
type Workload struct {
	Hosts   []domain.Host
	VMs     []domain.VM
	Traffic *domain.TrafficMatrix
}

// Generator builds workloads. Every call reseeds, so equal arguments always
// give equal output.
type Generator struct {
	config Config
	logger *zap.Logger
}

// NewGenerator creates a new Generator.
func NewGenerator(cfg Config, logger *zap.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		config: cfg,
		logger: logger.With(zap.String("component", "workload")),
	}, nil
}

// Config returns the generator configuration.
func (g *Generator) Config() Config {
	return g.config
}

// Generate builds hosts, VMs and traffic for the given scale.
func (g *Generator) Generate(hosts, vms int) (*Workload, error) {
	if hosts < 0 || vms < 0 {
		return nil, fmt.Errorf("negative workload size %d hosts / %d vms: %w", hosts, vms, domain.ErrInvalidArgument)
	}

	traffic, err := g.Traffic(vms)
	if err != nil {
		return nil, err
	}

	w := &Workload{
		Hosts:   g.Hosts(hosts),
		VMs:     g.VMs(vms),
		Traffic: traffic,
	}
	g.logger.Debug("Generated workload",
		zap.Int("hosts", hosts),
		zap.Int("vms", vms),
		zap.String("traffic_model", g.config.TrafficModel),
	)
	return w, nil
}

// Hosts returns n identical hosts spread round-robin over racks, with
// consecutive racks grouped into pods.
func (g *Generator) Hosts(n int) []domain.Host {
	racks := max(1, n/g.config.HostsPerRack)
	pods := max(1, racks/g.config.RacksPerPod)
	racksPerPod := max(1, racks/pods)

	hosts := make([]domain.Host, n)
	for i := range hosts {
		rack := i % racks
		hosts[i] = domain.Host{
			ID:     i,
			RackID: rack,
			PodID:  rack / racksPerPod,
			Capacity: domain.Resources{
				Memory:  g.config.HostMemory,
				Compute: g.config.HostCompute,
			},
		}
	}
	return hosts
}

// VMs returns n VMs with uniformly random demand.
func (g *Generator) VMs(n int) []domain.VM {
	rng := rand.New(rand.NewSource(g.config.VMSeed))

	vms := make([]domain.VM, n)
	for i := range vms {
		memory := g.config.VMMemoryMin + rng.Int63n(g.config.VMMemorySpread)
		compute := g.config.VMComputeMin + rng.Int63n(g.config.VMComputeSpread)
		vms[i] = domain.VM{
			ID:     i,
			Demand: domain.Resources{Memory: memory, Compute: compute},
		}
	}
	return vms
}

// Traffic returns an n x n matrix using the configured traffic model.
func (g *Generator) Traffic(n int) (*domain.TrafficMatrix, error) {
	if g.config.TrafficModel == TrafficClustered {
		return g.ClusteredTraffic(n, g.config.ClusterGroups)
	}
	return g.RandomTraffic(n)
}

// RandomTraffic draws p uniformly per pair: 70% of pairs get light traffic
// p*5 and the rest heavy traffic 50 + p*50.
func (g *Generator) RandomTraffic(n int) (*domain.TrafficMatrix, error) {
	rng := rand.New(rand.NewSource(g.config.TrafficSeed))
	return fill(n, func(i, j int) float64 {
		p := rng.Float64()
		if p < 0.7 {
			return p * 5
		}
		return 50 + p*50
	})
}

// ClusteredTraffic assigns VM i to group i % groups. Pairs in the same group
// get 100 + r*100, other pairs r*5.
func (g *Generator) ClusteredTraffic(n, groups int) (*domain.TrafficMatrix, error) {
	if groups <= 0 {
		return nil, fmt.Errorf("cluster groups must be positive, got %d: %w", groups, domain.ErrInvalidArgument)
	}
	rng := rand.New(rand.NewSource(g.config.TrafficSeed))
	return fill(n, func(i, j int) float64 {
		r := rng.Float64()
		if i%groups == j%groups {
			return 100 + r*100
		}
		return r * 5
	})
}

func fill(n int, value func(i, j int) float64) (*domain.TrafficMatrix, error) {
	m, err := domain.NewTrafficMatrix(n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if err := m.Set(i, j, value(i, j)); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}
