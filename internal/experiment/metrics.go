package experiment

import (
	"github.com/uber-go/tally/v4"
)

// Metrics tracks experiment execution.
type Metrics struct {
	Runs        tally.Counter
	RunsFail    tally.Counter
	CacheHit    tally.Counter
	CacheMiss   tally.Counter
	CacheError  tally.Counter
	RunDuration tally.Timer
}

// NewMetrics returns Metrics rooted below the given scope.
func NewMetrics(scope tally.Scope) *Metrics {
	cacheScope := scope.SubScope("cache")
	return &Metrics{
		Runs:        scope.Tagged(map[string]string{"result": "success"}).Counter("runs"),
		RunsFail:    scope.Tagged(map[string]string{"result": "fail"}).Counter("runs"),
		CacheHit:    cacheScope.Counter("hit"),
		CacheMiss:   cacheScope.Counter("miss"),
		CacheError:  cacheScope.Counter("error"),
		RunDuration: scope.Timer("run_duration"),
	}
}
