package scheduler

import (
	"github.com/uber-go/tally/v4"
)

// Metrics tracks first-fit placement passes.
type Metrics struct {
	Runs     tally.Counter
	Placed   tally.Counter
	Unplaced tally.Counter
	Duration tally.Timer
}

// NewMetrics returns Metrics rooted below the given scope.
func NewMetrics(scope tally.Scope) *Metrics {
	return &Metrics{
		Runs:     scope.Counter("runs"),
		Placed:   scope.Counter("vms_placed"),
		Unplaced: scope.Counter("vms_unplaced"),
		Duration: scope.Timer("place_duration"),
	}
}
