package experiment

import (
	"fmt"

	"github.com/limiquantix/placesim/internal/domain"
)

// Limits bounds the workloads a single spec may request. The traffic
// matrix is dense, so memory grows with the square of MaxVMs.
type Limits struct {
	MaxHosts  int `mapstructure:"max_hosts"`
	MaxVMs    int `mapstructure:"max_vms"`
	MaxPoints int `mapstructure:"max_points"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxHosts:  2000,
		MaxVMs:    3000,
		MaxPoints: 16,
	}
}

// Validate checks that every limit is positive.
func (l Limits) Validate() error {
	if l.MaxHosts <= 0 || l.MaxVMs <= 0 || l.MaxPoints <= 0 {
		return fmt.Errorf("limits must be positive (max_hosts=%d max_vms=%d max_points=%d)",
			l.MaxHosts, l.MaxVMs, l.MaxPoints)
	}
	return nil
}

func (l Limits) checkScale(sc Scale) error {
	if sc.Hosts <= 0 || sc.VMs < 0 {
		return fmt.Errorf("invalid scale %d hosts / %d vms: %w", sc.Hosts, sc.VMs, domain.ErrInvalidArgument)
	}
	if sc.Hosts > l.MaxHosts {
		return fmt.Errorf("%d hosts exceeds the limit of %d: %w", sc.Hosts, l.MaxHosts, domain.ErrInvalidArgument)
	}
	if sc.VMs > l.MaxVMs {
		return fmt.Errorf("%d vms exceeds the limit of %d: %w", sc.VMs, l.MaxVMs, domain.ErrInvalidArgument)
	}
	return nil
}

func (l Limits) checkPoints(what string, n int) error {
	if n == 0 {
		return fmt.Errorf("%s needs at least one entry: %w", what, domain.ErrInvalidArgument)
	}
	if n > l.MaxPoints {
		return fmt.Errorf("%d %s exceeds the limit of %d: %w", n, what, l.MaxPoints, domain.ErrInvalidArgument)
	}
	return nil
}
