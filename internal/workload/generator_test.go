package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/limiquantix/placesim/internal/domain"
)

func newGenerator(t *testing.T, cfg Config) *Generator {
	g, err := NewGenerator(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return g
}

func TestGenerator_Hosts(t *testing.T) {
	g := newGenerator(t, DefaultConfig())

	hosts := g.Hosts(20)
	require.Len(t, hosts, 20)

	// 20 hosts: 5 racks, 2 pods, 2 racks per pod.
	for i, h := range hosts {
		assert.Equal(t, i, h.ID)
		assert.Equal(t, i%5, h.RackID)
		assert.Equal(t, (i%5)/2, h.PodID)
		assert.Equal(t, domain.Resources{Memory: 64000, Compute: 40000}, h.Capacity)
	}

	// Fewer hosts than a rack still yields one rack and one pod.
	for _, h := range g.Hosts(3) {
		assert.Zero(t, h.RackID)
		assert.Zero(t, h.PodID)
	}
}

func TestGenerator_VMsWithinBounds(t *testing.T) {
	g := newGenerator(t, DefaultConfig())

	vms := g.VMs(200)
	require.Len(t, vms, 200)
	for i, vm := range vms {
		assert.Equal(t, i, vm.ID)
		assert.GreaterOrEqual(t, vm.Demand.Memory, int64(1000))
		assert.Less(t, vm.Demand.Memory, int64(8000))
		assert.GreaterOrEqual(t, vm.Demand.Compute, int64(1000))
		assert.Less(t, vm.Demand.Compute, int64(6000))
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	g := newGenerator(t, DefaultConfig())

	first, err := g.Generate(10, 30)
	require.NoError(t, err)
	second, err := g.Generate(10, 30)
	require.NoError(t, err)

	assert.Equal(t, first.Hosts, second.Hosts)
	assert.Equal(t, first.VMs, second.VMs)
	for i := 0; i < 30; i++ {
		for j := 0; j < 30; j++ {
			assert.Equal(t, first.Traffic.At(i, j), second.Traffic.At(i, j))
		}
	}

	cfg := DefaultConfig()
	cfg.VMSeed = 99
	other := newGenerator(t, cfg)
	assert.NotEqual(t, first.VMs, other.VMs(30))
}

func TestGenerator_RandomTrafficShape(t *testing.T) {
	g := newGenerator(t, DefaultConfig())

	m, err := g.RandomTraffic(40)
	require.NoError(t, err)

	for i := 0; i < 40; i++ {
		assert.Zero(t, m.At(i, i))
		for j := i + 1; j < 40; j++ {
			v := m.At(i, j)
			assert.Equal(t, v, m.At(j, i))
			light := v >= 0 && v < 3.5
			heavy := v >= 85 && v < 100
			assert.True(t, light || heavy, "traffic %v between %d and %d", v, i, j)
		}
	}
}

func TestGenerator_ClusteredTraffic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrafficModel = TrafficClustered
	cfg.ClusterGroups = 3
	g := newGenerator(t, cfg)

	m, err := g.Traffic(12)
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		for j := i + 1; j < 12; j++ {
			if i%3 == j%3 {
				assert.GreaterOrEqual(t, m.At(i, j), 100.0)
			} else {
				assert.Less(t, m.At(i, j), 5.0)
			}
		}
	}

	_, err = g.ClusteredTraffic(4, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestGenerator_EmptyWorkload(t *testing.T) {
	g := newGenerator(t, DefaultConfig())

	w, err := g.Generate(0, 0)
	require.NoError(t, err)
	assert.Empty(t, w.Hosts)
	assert.Empty(t, w.VMs)
	assert.Zero(t, w.Traffic.Dim())

	_, err = g.Generate(-1, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestConfig_Validate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.HostMemory = 0 },
		func(c *Config) { c.HostsPerRack = 0 },
		func(c *Config) { c.VMMemoryMin = -1 },
		func(c *Config) { c.VMComputeSpread = 0 },
		func(c *Config) { c.TrafficModel = "bursty" },
		func(c *Config) { c.TrafficModel = TrafficClustered; c.ClusterGroups = 0 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidArgument, "case %d", i)
	}
	assert.NoError(t, DefaultConfig().Validate())
}
