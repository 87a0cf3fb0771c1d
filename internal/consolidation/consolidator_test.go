package consolidation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/cost"
	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/scheduler"
	"github.com/limiquantix/placesim/internal/topology"
)

type ConsolidatorTestSuite struct {
	suite.Suite
	scope tally.TestScope
	ffd   *scheduler.Scheduler
}

func TestConsolidatorTestSuite(t *testing.T) {
	suite.Run(t, new(ConsolidatorTestSuite))
}

func (s *ConsolidatorTestSuite) SetupTest() {
	s.scope = tally.NewTestScope("", nil)
	s.ffd = scheduler.New(zap.NewNop(), tally.NoopScope)
}

func (s *ConsolidatorTestSuite) newConsolidator(cfg Config) *Consolidator {
	c, err := New(cfg, s.ffd, zap.NewNop(), s.scope)
	s.Require().NoError(err)
	return c
}

func (s *ConsolidatorTestSuite) attemptCount(outcome scheduler.Outcome) int64 {
	for _, c := range s.scope.Snapshot().Counters() {
		if c.Name() == "release.attempts" && c.Tags()["outcome"] == string(outcome) {
			return c.Value()
		}
	}
	return 0
}

func rackHosts(n int) []domain.Host {
	hosts := make([]domain.Host, n)
	for i := range hosts {
		hosts[i] = domain.Host{ID: i, RackID: i, Capacity: domain.Resources{Memory: 10, Compute: 10}}
	}
	return hosts
}

func square(id int, size int64) domain.VM {
	return domain.VM{ID: id, Demand: domain.Resources{Memory: size, Compute: size}}
}

func trafficOf(t require.TestingT, n int, pairs map[[2]int]float64) *domain.TrafficMatrix {
	m, err := domain.NewTrafficMatrix(n)
	require.NoError(t, err)
	for p, v := range pairs {
		require.NoError(t, m.Set(p[0], p[1], v))
	}
	return m
}

// releaseInput seeds host 0 with vms 3, 1, 2 and host 1 with vm 0; host 2
// stays empty. vm 2 talks to vm 0 across racks, vm 1 talks to vm 3.
func (s *ConsolidatorTestSuite) releaseInput() scheduler.Input {
	return scheduler.Input{
		Hosts: rackHosts(3),
		VMs:   []domain.VM{square(0, 5), square(1, 3), square(2, 1), square(3, 6)},
		Traffic: trafficOf(s.T(), 4, map[[2]int]float64{
			{2, 0}: 10,
			{1, 3}: 50,
		}),
		Topology: topology.Tree,
	}
}

func (s *ConsolidatorTestSuite) TestPlace_AcceptsCheaperRelease() {
	result, err := s.newConsolidator(DefaultConfig()).Place(s.releaseInput())
	s.Require().NoError(err)

	s.Equal(Name, result.Algorithm)
	s.Require().Len(result.Attempts, 3)

	// Empty host 2 scores highest and is skipped.
	s.Equal(2, result.Attempts[0].HostID)
	s.Equal(scheduler.OutcomeSkipped, result.Attempts[0].Outcome)

	// Moving vm 0 alone to host 2 keeps it across racks from vm 2.
	s.Equal(1, result.Attempts[1].HostID)
	s.Equal(scheduler.OutcomeRejected, result.Attempts[1].Outcome)
	s.Equal(200.0, result.Attempts[1].CostBefore)
	s.Equal(200.0, result.Attempts[1].CostAfter)

	// Host 0 splits into {1, 3} and {2}; vm 2 joins vm 0 on host 1.
	s.Equal(0, result.Attempts[2].HostID)
	s.Equal(scheduler.OutcomeAccepted, result.Attempts[2].Outcome)
	s.Equal([][]int{{1, 3}, {2}}, result.Attempts[2].Partitions)
	s.Equal(200.0, result.Attempts[2].CostBefore)
	s.Equal(0.0, result.Attempts[2].CostAfter)

	s.Empty(result.Placement.VMsOn(0))
	s.Equal([]int{0, 2}, result.Placement.VMsOn(1))
	s.Equal([]int{1, 3}, result.Placement.VMsOn(2))

	s.Equal(int64(1), s.attemptCount(scheduler.OutcomeSkipped))
	s.Equal(int64(1), s.attemptCount(scheduler.OutcomeRejected))
	s.Equal(int64(1), s.attemptCount(scheduler.OutcomeAccepted))
	s.assertCapacityInvariant(result)
}

func (s *ConsolidatorTestSuite) TestPlace_AbandonedCandidateLeavesPlacement() {
	// Host 0 holds two (4,4) VMs, host 1 one. No host can absorb either
	// host's VMs for any k.
	in := scheduler.Input{
		Hosts:    rackHosts(2),
		VMs:      []domain.VM{square(0, 4), square(1, 4), square(2, 4)},
		Traffic:  trafficOf(s.T(), 3, map[[2]int]float64{{0, 2}: 7}),
		Topology: topology.Tree,
	}

	seed, err := s.ffd.Place(in)
	s.Require().NoError(err)

	result, err := s.newConsolidator(DefaultConfig()).Place(in)
	s.Require().NoError(err)

	s.Require().Len(result.Attempts, 2)
	for _, a := range result.Attempts {
		s.Equal(scheduler.OutcomeAbandoned, a.Outcome)
		s.Nil(a.Partitions)
		s.Equal(a.CostBefore, a.CostAfter)
	}
	s.Equal(seed.Placement.Assignments(), result.Placement.Assignments())
	s.Equal(int64(2), s.attemptCount(scheduler.OutcomeAbandoned))
	s.assertCapacityInvariant(result)
}

func (s *ConsolidatorTestSuite) TestPlace_ZeroAttemptsReturnsSeed() {
	cfg := DefaultConfig()
	cfg.MaxReleaseAttempts = 0
	in := s.releaseInput()

	seed, err := s.ffd.Place(in)
	s.Require().NoError(err)
	result, err := s.newConsolidator(cfg).Place(in)
	s.Require().NoError(err)

	s.Empty(result.Attempts)
	s.Equal(seed.Placement.Assignments(), result.Placement.Assignments())
}

func (s *ConsolidatorTestSuite) TestPlace_RandomWorkloads() {
	for seed := int64(1); seed <= 5; seed++ {
		in := randomInput(s.T(), seed, 12, 36)
		cfg := DefaultConfig()
		cfg.MaxReleaseAttempts = 6

		first, err := s.newConsolidator(cfg).Place(in)
		s.Require().NoError(err)
		second, err := s.newConsolidator(cfg).Place(in)
		s.Require().NoError(err)

		// Deterministic.
		s.Equal(first.Placement.Assignments(), second.Placement.Assignments())
		s.Equal(first.Attempts, second.Attempts)

		// Running cost never increases.
		seedResult, err := s.ffd.Place(in)
		s.Require().NoError(err)
		prev, err := cost.TrafficCost(seedResult.Placement, in.Traffic, in.Topology)
		s.Require().NoError(err)
		for _, a := range first.Attempts {
			s.InDelta(prev, a.CostBefore, 1e-9)
			s.LessOrEqual(a.CostAfter, a.CostBefore)
			prev = a.CostAfter
		}

		final, err := cost.TrafficCost(first.Placement, in.Traffic, in.Topology)
		s.Require().NoError(err)
		s.InDelta(prev, final, 1e-9)
		s.GreaterOrEqual(final, 0.0)
		s.Equal(seedResult.Placement.Len(), first.Placement.Len())
		s.assertCapacityInvariant(first)
	}
}

func (s *ConsolidatorTestSuite) TestPlace_RequiresTraffic() {
	in := s.releaseInput()
	in.Traffic = nil

	_, err := s.newConsolidator(DefaultConfig()).Place(in)
	s.ErrorIs(err, domain.ErrInvalidArgument)
}

func (s *ConsolidatorTestSuite) assertCapacityInvariant(result *scheduler.Result) {
	for _, h := range result.Ledger.Hosts() {
		s.False(result.Ledger.Remaining(h.ID).IsNegative(), "host %d", h.ID)
		s.Equal(domain.TotalDemand(result.Ledger.VMsOn(h.ID)), result.Ledger.Used(h.ID), "host %d", h.ID)
	}
}

func randomInput(t require.TestingT, seed int64, hosts, vms int) scheduler.Input {
	rng := rand.New(rand.NewSource(seed))

	in := scheduler.Input{Topology: topology.FatTree}
	for i := 0; i < hosts; i++ {
		in.Hosts = append(in.Hosts, domain.Host{
			ID:       i,
			RackID:   i % 4,
			PodID:    (i % 4) / 2,
			Capacity: domain.Resources{Memory: 100, Compute: 100},
		})
	}
	for i := 0; i < vms; i++ {
		in.VMs = append(in.VMs, domain.VM{
			ID:     i,
			Demand: domain.Resources{Memory: 5 + rng.Int63n(30), Compute: 5 + rng.Int63n(30)},
		})
	}

	traffic, err := domain.NewTrafficMatrix(vms)
	require.NoError(t, err)
	for i := 0; i < vms; i++ {
		for j := i + 1; j < vms; j++ {
			require.NoError(t, traffic.Set(i, j, rng.Float64()*10))
		}
	}
	in.Traffic = traffic
	return in
}

func TestNew_RejectsBadConfig(t *testing.T) {
	ffd := scheduler.New(zap.NewNop(), tally.NoopScope)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"percentile above one", Config{SupernodePercentile: 1.5, MaxReleaseAttempts: 3, InitialPartitions: 2}},
		{"negative percentile", Config{SupernodePercentile: -0.1, MaxReleaseAttempts: 3, InitialPartitions: 2}},
		{"negative attempts", Config{SupernodePercentile: 0.5, MaxReleaseAttempts: -1, InitialPartitions: 2}},
		{"zero partitions", Config{SupernodePercentile: 0.5, MaxReleaseAttempts: 3, InitialPartitions: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, ffd, zap.NewNop(), tally.NoopScope)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}

	_, err := New(DefaultConfig(), ffd, zap.NewNop(), tally.NoopScope)
	assert.NoError(t, err)
}
