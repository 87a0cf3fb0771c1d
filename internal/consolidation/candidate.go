package consolidation

import (
	"math"

	"github.com/limiquantix/placesim/internal/ledger"
)

// Score rates how desirable a host is to release, given its compute and
// memory utilization: S = 0.5*U + 0.3*B + 0.2*R.
//
//	U = 1 - (compute+memory)/2
//	B = 1 - |compute-memory| / max(compute, memory), or 1 when both are 0
//	R = min(1-compute, 1-memory) / max(compute, memory), or 0 when either is 0
func Score(compute, memory float64) float64 {
	peak := math.Max(compute, memory)

	u := 1 - (compute+memory)/2

	b := 1.0
	if peak != 0 {
		b = 1 - math.Abs(compute-memory)/peak
	}

	r := 0.0
	if compute != 0 && memory != 0 {
		r = math.Min(1-compute, 1-memory) / peak
	}

	return 0.5*u + 0.3*b + 0.2*r
}

// selectCandidate returns the untried host with the highest score. Ties keep
// the earliest host.
func selectCandidate(l *ledger.Ledger, tried map[int]struct{}) (int, bool) {
	best, found := 0, false
	bestScore := math.Inf(-1)
	for _, h := range l.Hosts() {
		if _, ok := tried[h.ID]; ok {
			continue
		}
		s := Score(l.Utilization(h.ID))
		if s > bestScore {
			best, bestScore, found = h.ID, s, true
		}
	}
	return best, found
}
