package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/limiquantix/placesim/internal/config"
	"github.com/limiquantix/placesim/internal/experiment"
)

func TestSelectSpecs(t *testing.T) {
	specs := experiment.DefaultSpecs()

	assert.Equal(t, specs, selectSpecs(specs, nil))

	picked := selectSpecs(specs, []string{"topology", "algorithm-comparison", "missing"})
	names := make([]string, len(picked))
	for i, s := range picked {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"algorithm-comparison", "topology"}, names)
}

func TestSetupLogger(t *testing.T) {
	logger := setupLogger(config.LoggingConfig{Level: "debug", Format: "json"})
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger = setupLogger(config.LoggingConfig{Level: "bogus", Format: "console"})
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestRun_ExitCodes(t *testing.T) {
	assert.Equal(t, 0, run([]string{"version"}))
	assert.Equal(t, 2, run([]string{"no-such-command"}))

	missing := filepath.Join(t.TempDir(), "absent.yaml")
	assert.Equal(t, 1, run([]string{"--config", missing, "algorithms"}))
}

func TestRun_FailedCommandReturnsOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\n"), 0o600))

	assert.Equal(t, 0, run([]string{"--config", path, "algorithms"}))
	assert.Equal(t, 1, run([]string{"--config", path, "run", "--experiment", "missing"}))
}
