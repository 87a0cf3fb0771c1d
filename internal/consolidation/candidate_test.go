package consolidation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limiquantix/placesim/internal/ledger"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name            string
		compute, memory float64
		want            float64
	}{
		{"idle host", 0, 0, 0.8},
		{"half full balanced", 0.5, 0.5, 0.75},
		{"compute bound", 1, 0.5, 0.275},
		{"memory idle", 0.4, 0, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.compute, tt.memory), 1e-9)
		})
	}
}

func TestSelectCandidate(t *testing.T) {
	l, err := ledger.New(rackHosts(3))
	require.NoError(t, err)
	require.NoError(t, l.Allocate(0, square(0, 9)))
	require.NoError(t, l.Allocate(1, square(1, 2)))
	require.NoError(t, l.Allocate(2, square(2, 2)))

	tried := map[int]struct{}{}

	// Hosts 1 and 2 tie; the earlier one wins.
	id, ok := selectCandidate(l, tried)
	require.True(t, ok)
	assert.Equal(t, 1, id)

	tried[1] = struct{}{}
	id, ok = selectCandidate(l, tried)
	require.True(t, ok)
	assert.Equal(t, 2, id)

	tried[2] = struct{}{}
	tried[0] = struct{}{}
	_, ok = selectCandidate(l, tried)
	assert.False(t, ok)

}
