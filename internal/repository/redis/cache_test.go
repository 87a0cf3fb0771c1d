package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/config"
	"github.com/limiquantix/placesim/internal/domain"
)

func sampleRun() *domain.ExperimentRun {
	return &domain.ExperimentRun{
		ID:          "8d1f9c8e-8f61-4c55-9a3b-0d6a1b3c2f10",
		Name:        "topology",
		Kind:        domain.ExperimentKindTopologySweep,
		Fingerprint: "experiment:00000000000000aa",
		Rows: []domain.RunRow{
			{Label: "tree", Algorithm: "proposed", Hosts: 20, VMs: 60, Topology: "tree", Percentile: 0.85, TrafficCost: 4200.5},
			{Label: "vl2", Algorithm: "proposed", Hosts: 20, VMs: 60, Topology: "vl2", Percentile: 0.85, TrafficCost: 3900, DeltaPercent: 7.15},
		},
		CreatedAt: time.Date(2024, 5, 2, 9, 30, 0, 123456789, time.UTC),
	}
}

func TestReportKey(t *testing.T) {
	assert.Equal(t, "placesim:report:experiment:00000000000000aa", reportKey("experiment:00000000000000aa"))
}

// Runs are stored with the same CBOR encoding the cache uses.
func TestRunEncoding(t *testing.T) {
	in := sampleRun()

	data, err := encMode.Marshal(in)
	require.NoError(t, err)

	var out domain.ExperimentRun
	require.NoError(t, cbor.Unmarshal(data, &out))
	assert.Equal(t, in.Rows, out.Rows)
	assert.Equal(t, in.Kind, out.Kind)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
}

// TestCache_Live needs a Redis server. Set PLACESIM_TEST_REDIS=1 to run it.
func TestCache_Live(t *testing.T) {
	if os.Getenv("PLACESIM_TEST_REDIS") == "" {
		t.Skip("PLACESIM_TEST_REDIS not set")
	}

	cache, err := NewCache(config.RedisConfig{Host: "localhost", Port: 6379, TTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	run := sampleRun()
	require.NoError(t, cache.InvalidateRun(ctx, run.Fingerprint))

	_, err = cache.GetRun(ctx, run.Fingerprint)
	require.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, cache.SetRun(ctx, run.Fingerprint, run))
	got, err := cache.GetRun(ctx, run.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Rows, got.Rows)

	require.NoError(t, cache.InvalidateAll(ctx))
	_, err = cache.GetRun(ctx, run.Fingerprint)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}
