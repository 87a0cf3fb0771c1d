// Package metrics sets up the tally root scope.
package metrics

import (
	"io"
	"strings"
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/config"
)

// InitMetricScope creates the root scope. Metrics are flushed to the logger
// at debug level every report interval.
func InitMetricScope(cfg config.MetricsConfig, logger *zap.Logger) (tally.Scope, io.Closer) {
	// tally rejects "-" in scope names.
	prefix := strings.ReplaceAll(cfg.Prefix, "-", "_")

	interval := cfg.ReportInterval
	if interval <= 0 {
		interval = time.Second
	}

	return tally.NewRootScope(tally.ScopeOptions{
		Prefix:    prefix,
		Tags:      map[string]string{},
		Reporter:  NewLogReporter(logger),
		Separator: ".",
	}, interval)
}

// LogReporter is a tally.StatsReporter that writes every report as a zap
// debug entry.
type LogReporter struct {
	logger *zap.Logger
}

var _ tally.StatsReporter = (*LogReporter)(nil)

// internalPrefix marks the cardinality gauges tally emits about itself.
const internalPrefix = "tally.internal."

// NewLogReporter creates a LogReporter.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger.With(zap.String("component", "metrics"))}
}

// ReportCounter implements tally.StatsReporter.
func (r *LogReporter) ReportCounter(name string, tags map[string]string, value int64) {
	if internal(name) {
		return
	}
	r.logger.Debug("counter", zap.String("name", name), zap.Any("tags", tags), zap.Int64("value", value))
}

// ReportGauge implements tally.StatsReporter.
func (r *LogReporter) ReportGauge(name string, tags map[string]string, value float64) {
	if internal(name) {
		return
	}
	r.logger.Debug("gauge", zap.String("name", name), zap.Any("tags", tags), zap.Float64("value", value))
}

// ReportTimer implements tally.StatsReporter.
func (r *LogReporter) ReportTimer(name string, tags map[string]string, interval time.Duration) {
	if internal(name) {
		return
	}
	r.logger.Debug("timer", zap.String("name", name), zap.Any("tags", tags), zap.Duration("value", interval))
}

// ReportHistogramValueSamples implements tally.StatsReporter.
func (r *LogReporter) ReportHistogramValueSamples(
	name string,
	tags map[string]string,
	buckets tally.Buckets,
	bucketLowerBound,
	bucketUpperBound float64,
	samples int64,
) {
	if internal(name) {
		return
	}
	r.logger.Debug("histogram",
		zap.String("name", name),
		zap.Any("tags", tags),
		zap.Float64("lower", bucketLowerBound),
		zap.Float64("upper", bucketUpperBound),
		zap.Int64("samples", samples),
	)
}

// ReportHistogramDurationSamples implements tally.StatsReporter.
func (r *LogReporter) ReportHistogramDurationSamples(
	name string,
	tags map[string]string,
	buckets tally.Buckets,
	bucketLowerBound,
	bucketUpperBound time.Duration,
	samples int64,
) {
	if internal(name) {
		return
	}
	r.logger.Debug("histogram",
		zap.String("name", name),
		zap.Any("tags", tags),
		zap.Duration("lower", bucketLowerBound),
		zap.Duration("upper", bucketUpperBound),
		zap.Int64("samples", samples),
	)
}

// Capabilities implements tally.StatsReporter.
func (r *LogReporter) Capabilities() tally.Capabilities {
	return r
}

// Reporting implements tally.Capabilities.
func (r *LogReporter) Reporting() bool { return true }

// Tagging implements tally.Capabilities.
func (r *LogReporter) Tagging() bool { return true }

// Flush implements tally.StatsReporter.
func (r *LogReporter) Flush() {}

// internal reports whether name belongs to tally's own bookkeeping. The
// root prefix may or may not be prepended depending on the tally version.
func internal(name string) bool {
	return strings.HasPrefix(name, internalPrefix) || strings.Contains(name, "."+internalPrefix)
}
