package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/topology"
)

func hosts() []domain.Host {
	capacity := domain.Resources{Memory: 10, Compute: 10}
	return []domain.Host{
		{ID: 0, RackID: 0, PodID: 0, Capacity: capacity},
		{ID: 1, RackID: 1, PodID: 0, Capacity: capacity},
	}
}

func pairTraffic(t *testing.T, volume float64) *domain.TrafficMatrix {
	m, err := domain.NewTrafficMatrix(2)
	require.NoError(t, err)
	require.NoError(t, m.Set(0, 1, volume))
	return m
}

func TestTrafficCost_CoLocated(t *testing.T) {
	h := hosts()
	p := domain.NewPlacement()
	p.Assign(0, h[0])
	p.Assign(1, h[0])

	c, err := TrafficCost(p, pairTraffic(t, 10), topology.Tree)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c)
	assert.Equal(t, 1, ActiveHosts(p))
}

func TestTrafficCost_SplitAcrossRacks(t *testing.T) {
	h := hosts()
	p := domain.NewPlacement()
	p.Assign(0, h[0])
	p.Assign(1, h[1])

	c, err := TrafficCost(p, pairTraffic(t, 10), topology.Tree)
	require.NoError(t, err)
	assert.Equal(t, 200.0, c)
	assert.Equal(t, 2, ActiveHosts(p))

	c, err = TrafficCost(p, pairTraffic(t, 10), topology.FatTree)
	require.NoError(t, err)
	assert.Equal(t, 50.0, c)
}

func TestTrafficCost_IgnoresUnplaced(t *testing.T) {
	h := hosts()
	p := domain.NewPlacement()
	p.Assign(0, h[0])

	c, err := TrafficCost(p, pairTraffic(t, 10), topology.Tree)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c)
}

func TestTrafficCost_RejectsVMOutsideMatrix(t *testing.T) {
	h := hosts()
	p := domain.NewPlacement()
	p.Assign(5, h[0])

	_, err := TrafficCost(p, pairTraffic(t, 1), topology.Tree)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTrafficCost_NonNegative(t *testing.T) {
	capacity := domain.Resources{Memory: 10, Compute: 10}
	var hs []domain.Host
	for i := 0; i < 4; i++ {
		hs = append(hs, domain.Host{ID: i, RackID: i / 2, PodID: i / 4, Capacity: capacity})
	}
	m, err := domain.NewTrafficMatrix(6)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		for j := i + 1; j < 6; j++ {
			require.NoError(t, m.Set(i, j, float64(i*j)))
		}
	}
	p := domain.NewPlacement()
	for vm := 0; vm < 6; vm++ {
		p.Assign(vm, hs[vm%4])
	}
	for _, topo := range topology.All() {
		c, err := TrafficCost(p, m, topo)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, c, 0.0)
	}
}
