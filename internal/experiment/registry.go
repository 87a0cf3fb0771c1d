package experiment

import (
	"fmt"
	"sort"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/consolidation"
	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/drs"
	"github.com/limiquantix/placesim/internal/scheduler"
)

// Constructor builds a placer. Only the traffic-aware consolidator reads
// the consolidation config.
type Constructor func(cfg consolidation.Config) (scheduler.Placer, error)

// Registry maps algorithm names to constructors. It is filled at
// construction; only reads happen afterwards.
type Registry struct {
	constructors map[string]Constructor
	logger       *zap.Logger
}

// NewRegistry creates a registry holding the first-fit, load-balancing and
// traffic-aware placers. Each algorithm reports metrics below its own
// sub-scope.
func NewRegistry(logger *zap.Logger, scope tally.Scope) *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
		logger:       logger.With(zap.String("component", "registry")),
	}

	ffdScope := scope.SubScope(scheduler.Name)
	newFFD := func() *scheduler.Scheduler {
		return scheduler.New(logger, ffdScope)
	}

	r.register(scheduler.Name, func(consolidation.Config) (scheduler.Placer, error) {
		return newFFD(), nil
	})
	r.register(drs.Name, func(consolidation.Config) (scheduler.Placer, error) {
		return drs.NewEngine(newFFD(), logger, scope.SubScope(drs.Name)), nil
	})
	r.register(consolidation.Name, func(cfg consolidation.Config) (scheduler.Placer, error) {
		return consolidation.New(cfg, newFFD(), logger, scope.SubScope(consolidation.Name))
	})
	return r
}

func (r *Registry) register(name string, ctor Constructor) {
	if ctor == nil {
		r.logger.Error("Invalid placer constructor", zap.String("name", name))
		return
	}
	if _, registered := r.constructors[name]; registered {
		r.logger.Error("Placer already registered", zap.String("name", name))
		return
	}
	r.constructors[name] = ctor
	r.logger.Debug("Registered placer", zap.String("name", name))
}

// Get builds the named placer.
func (r *Registry) Get(name string, cfg consolidation.Config) (scheduler.Placer, error) {
	ctor, ok := r.constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown algorithm %q: %w", name, domain.ErrInvalidArgument)
	}
	return ctor(cfg)
}

// Has reports whether the name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.constructors[name]
	return ok
}

// Names returns the registered algorithm names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
