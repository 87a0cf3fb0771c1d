package drs

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/ledger"
	"github.com/limiquantix/placesim/internal/scheduler"
	"github.com/limiquantix/placesim/internal/topology"
)

func newEngine(scope tally.Scope) *Engine {
	logger := zap.NewNop()
	return NewEngine(scheduler.New(logger, tally.NoopScope), logger, scope)
}

func hosts(n int) []domain.Host {
	out := make([]domain.Host, n)
	for i := range out {
		out[i] = domain.Host{ID: i, RackID: i, Capacity: domain.Resources{Memory: 10, Compute: 10}}
	}
	return out
}

func square(id int, size int64) domain.VM {
	return domain.VM{ID: id, Demand: domain.Resources{Memory: size, Compute: size}}
}

func counterValue(scope tally.TestScope, name string) int64 {
	for _, c := range scope.Snapshot().Counters() {
		if c.Name() == name {
			return c.Value()
		}
	}
	return 0
}

func assertCapacityInvariant(t *testing.T, l *ledger.Ledger) {
	t.Helper()
	for _, h := range l.Hosts() {
		remaining := l.Remaining(h.ID)
		assert.False(t, remaining.IsNegative(), "host %d", h.ID)
		assert.Equal(t, domain.TotalDemand(l.VMsOn(h.ID)), l.Used(h.ID), "host %d", h.ID)
	}
}

func TestEngine_Place_EmptiesLightHosts(t *testing.T) {
	// First fit puts vm 0 and 1 on host 0 and vm 2 on host 1; host 2 stays
	// idle. Host 1 drains onto host 2, then host 0 drains onto hosts 2 and 1.
	in := scheduler.Input{
		Hosts:    hosts(3),
		VMs:      []domain.VM{square(0, 6), square(1, 3), square(2, 2)},
		Topology: topology.Tree,
	}
	scope := tally.NewTestScope("", nil)

	result, err := newEngine(scope).Place(in)
	require.NoError(t, err)

	assert.Equal(t, Name, result.Algorithm)
	assert.Equal(t, []int{1, 0}, result.Emptied)
	assert.Equal(t, []int{0, 2}, result.Placement.VMsOn(2))
	assert.Equal(t, []int{1}, result.Placement.VMsOn(1))
	assert.Empty(t, result.Placement.VMsOn(0))
	assert.Equal(t, 3, result.Placement.Len())
	assert.Equal(t, int64(2), counterValue(scope, "hosts_emptied"))
	assert.Equal(t, int64(3), counterValue(scope, "migrations"))
	assertCapacityInvariant(t, result.Ledger)
}

func TestEngine_Place_PartialEmptyingIsKept(t *testing.T) {
	// First fit: host 0 holds vm 1 (7) and vm 0 (2); host 1 holds vm 2 (6).
	// Host 1 cannot move vm 2. Host 0 moves vm 0 to host 1, then fails on
	// vm 1; the earlier move is not undone.
	in := scheduler.Input{
		Hosts:    hosts(2),
		VMs:      []domain.VM{square(0, 2), square(1, 7), square(2, 6)},
		Topology: topology.Tree,
	}
	scope := tally.NewTestScope("", nil)

	result, err := newEngine(scope).Place(in)
	require.NoError(t, err)

	assert.Empty(t, result.Emptied)
	assert.Equal(t, []int{1}, result.Placement.VMsOn(0))
	assert.Equal(t, []int{0, 2}, result.Placement.VMsOn(1))
	assert.Equal(t, int64(2), counterValue(scope, "relocations_failed"))
	assert.Equal(t, int64(1), counterValue(scope, "migrations"))
	assertCapacityInvariant(t, result.Ledger)
}

func TestEngine_Place_KeepsUnplaced(t *testing.T) {
	in := scheduler.Input{
		Hosts:    hosts(1),
		VMs:      []domain.VM{square(0, 4), square(1, 11)},
		Topology: topology.Tree,
	}

	result, err := newEngine(tally.NoopScope).Place(in)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, result.Unplaced)
	assert.Equal(t, 1, result.Placement.Len())
	assertCapacityInvariant(t, result.Ledger)
}

func TestEngine_Place_InvalidInput(t *testing.T) {
	in := scheduler.Input{
		Hosts: hosts(1),
		VMs:   []domain.VM{square(0, -1)},
	}

	_, err := newEngine(tally.NoopScope).Place(in)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestEngine_Place_RandomWorkloads(t *testing.T) {
	for seed := int64(1); seed <= 8; seed++ {
		in := randomInput(seed, 10, 40)

		first, err := newEngine(tally.NoopScope).Place(in)
		require.NoError(t, err)
		second, err := newEngine(tally.NoopScope).Place(in)
		require.NoError(t, err)

		// Deterministic.
		assert.Equal(t, first.Placement.Assignments(), second.Placement.Assignments(), "seed %d", seed)
		assert.Equal(t, first.Emptied, second.Emptied, "seed %d", seed)
		assert.Equal(t, first.Unplaced, second.Unplaced, "seed %d", seed)

		// Relocation never drops or adds a VM.
		seeded, err := scheduler.New(zap.NewNop(), tally.NoopScope).Place(in)
		require.NoError(t, err)
		assert.Equal(t, seeded.Unplaced, first.Unplaced, "seed %d", seed)
		assert.Equal(t, len(in.VMs), first.Placement.Len()+len(first.Unplaced), "seed %d", seed)

		for vmID, hostID := range first.Placement.Assignments() {
			assert.True(t, hostID >= 0 && hostID < len(in.Hosts), "seed %d vm %d on host %d", seed, vmID, hostID)
		}
		assertCapacityInvariant(t, first.Ledger)
	}
}

func TestBlendWeight(t *testing.T) {
	l, err := ledger.New(hosts(2))
	require.NoError(t, err)

	// Idle cluster.
	assert.Zero(t, BlendWeight(l))

	require.NoError(t, l.Allocate(0, domain.VM{ID: 0, Demand: domain.Resources{Memory: 2, Compute: 6}}))
	require.NoError(t, l.Allocate(1, domain.VM{ID: 1, Demand: domain.Resources{Memory: 2, Compute: 2}}))

	// compute ratio 0.8, memory ratio 0.4.
	assert.InDelta(t, 0.8/1.2, BlendWeight(l), 1e-6)
}

// randomInput builds hosts of mixed sizes and VMs whose demands sometimes
// exceed what the cluster can hold.
func randomInput(seed int64, hostCount, vmCount int) scheduler.Input {
	rng := rand.New(rand.NewSource(seed))

	in := scheduler.Input{Topology: topology.Tree}
	for i := 0; i < hostCount; i++ {
		in.Hosts = append(in.Hosts, domain.Host{
			ID:       i,
			RackID:   i / 2,
			Capacity: domain.Resources{Memory: 40 + rng.Int63n(60), Compute: 40 + rng.Int63n(60)},
		})
	}
	for i := 0; i < vmCount; i++ {
		in.VMs = append(in.VMs, domain.VM{
			ID:     i,
			Demand: domain.Resources{Memory: 1 + rng.Int63n(35), Compute: 1 + rng.Int63n(35)},
		})
	}
	return in
}
