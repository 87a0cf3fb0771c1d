package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/limiquantix/placesim/internal/config"
)

// named returns the entries with the given message whose name field matches.
func named(logs *observer.ObservedLogs, msg, name string) []observer.LoggedEntry {
	return logs.FilterMessage(msg).FilterField(zap.String("name", name)).All()
}

func TestInitMetricScope_Reports(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	scope, closer := InitMetricScope(config.MetricsConfig{Prefix: "place-sim", ReportInterval: 10 * time.Millisecond}, zap.New(core))
	defer closer.Close()

	scope.SubScope("consolidation").Counter("runs").Inc(2)
	scope.Gauge("traffic_cost").Update(42.5)

	require.Eventually(t, func() bool {
		return len(named(logs, "counter", "place_sim.consolidation.runs")) > 0 &&
			len(named(logs, "gauge", "place_sim.traffic_cost")) > 0
	}, 2*time.Second, 10*time.Millisecond)

	counter := named(logs, "counter", "place_sim.consolidation.runs")[0].ContextMap()
	assert.Equal(t, int64(2), counter["value"])

	gauge := named(logs, "gauge", "place_sim.traffic_cost")[0].ContextMap()
	assert.Equal(t, 42.5, gauge["value"])
}

func TestLogReporter_SkipsInternalMetrics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewLogReporter(zap.New(core))

	r.ReportGauge("tally.internal.counter_cardinality", nil, 3)
	r.ReportGauge("place_sim.tally.internal.gauge_cardinality", nil, 1)
	r.ReportCounter("tally.internal.num_active_scopes", nil, 1)
	r.ReportTimer("tally.internal.flush", nil, time.Millisecond)
	r.ReportGauge("place_sim.traffic_cost", nil, 7)

	require.Equal(t, 1, logs.Len())
	for _, entry := range logs.All() {
		name, _ := entry.ContextMap()["name"].(string)
		assert.False(t, strings.Contains(name, internalPrefix), name)
	}
	assert.Len(t, named(logs, "gauge", "place_sim.traffic_cost"), 1)
}

func TestLogReporter_Capabilities(t *testing.T) {
	r := NewLogReporter(zap.NewNop())
	assert.True(t, r.Capabilities().Reporting())
	assert.True(t, r.Capabilities().Tagging())
}
