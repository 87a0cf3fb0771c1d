package consolidation

import (
	"github.com/uber-go/tally/v4"

	"github.com/limiquantix/placesim/internal/scheduler"
)

// Metrics tracks release attempts.
type Metrics struct {
	Attempts    map[scheduler.Outcome]tally.Counter
	Cost        tally.Gauge
	PartitionsK tally.Histogram
	Duration    tally.Timer
}

// NewMetrics returns Metrics rooted below the given scope. Attempts are
// tagged by outcome.
func NewMetrics(scope tally.Scope) *Metrics {
	attemptScope := scope.SubScope("release")
	m := &Metrics{
		Attempts: make(map[scheduler.Outcome]tally.Counter),
		Cost:     scope.Gauge("traffic_cost"),
		PartitionsK: scope.Histogram("partitions",
			tally.MustMakeLinearValueBuckets(1, 1, 10)),
		Duration: scope.Timer("consolidate_duration"),
	}
	for _, o := range []scheduler.Outcome{
		scheduler.OutcomeSkipped,
		scheduler.OutcomeAbandoned,
		scheduler.OutcomeAccepted,
		scheduler.OutcomeRejected,
	} {
		m.Attempts[o] = attemptScope.Tagged(map[string]string{"outcome": string(o)}).Counter("attempts")
	}
	return m
}
