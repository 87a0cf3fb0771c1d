// Package consolidation implements the traffic-aware consolidator. It seeds
// a placement first-fit and then repeatedly tries to release one host by
// splitting its VMs into traffic clusters and moving each cluster to the
// destination that minimizes traffic cost. An attempt is committed only when
// the total cost strictly decreases.
package consolidation

import (
	"fmt"

	"github.com/limiquantix/placesim/internal/domain"
)

// Config holds the consolidator configuration.
type Config struct {
	// SupernodePercentile selects the traffic threshold used to link VMs
	// into clusters. Must be within [0, 1].
	SupernodePercentile float64 `mapstructure:"supernode_percentile" json:"supernode_percentile"`

	// MaxReleaseAttempts caps the number of hosts tried per run.
	MaxReleaseAttempts int `mapstructure:"max_release_attempts" json:"max_release_attempts"`

	// InitialPartitions is the first cluster count tried per candidate.
	InitialPartitions int `mapstructure:"initial_partitions" json:"initial_partitions"`
}

// DefaultConfig returns the default consolidator configuration.
func DefaultConfig() Config {
	return Config{
		SupernodePercentile: 0.85,
		MaxReleaseAttempts:  3,
		InitialPartitions:   2,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.SupernodePercentile < 0 || c.SupernodePercentile > 1 || c.SupernodePercentile != c.SupernodePercentile {
		return fmt.Errorf("supernode percentile %v outside [0, 1]: %w", c.SupernodePercentile, domain.ErrInvalidArgument)
	}
	if c.MaxReleaseAttempts < 0 {
		return fmt.Errorf("negative max release attempts %d: %w", c.MaxReleaseAttempts, domain.ErrInvalidArgument)
	}
	if c.InitialPartitions < 1 {
		return fmt.Errorf("initial partitions %d must be at least 1: %w", c.InitialPartitions, domain.ErrInvalidArgument)
	}
	return nil
}
