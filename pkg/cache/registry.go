package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrUnknownCache is returned by ClearOne for a name no store is registered under.
var ErrUnknownCache = errors.New("unknown cache")

// Registry owns the named stores of a process and exposes the
// administration operations over all of them. It never touches the
// upstream content source.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]Instance
	order     []string
	logger    zerolog.Logger
}

// NewRegistry creates a registry holding instances in the given order.
func NewRegistry(instances ...Instance) *Registry {
	r := &Registry{
		instances: make(map[string]Instance, len(instances)),
		logger:    log.With().Str("component", "cache-admin").Logger(),
	}
	for _, inst := range instances {
		r.Register(inst)
	}
	return r
}

// Register adds inst, replacing any instance registered under the same name.
func (r *Registry) Register(inst Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := inst.Name()
	if _, exists := r.instances[name]; !exists {
		r.order = append(r.order, name)
	}
	r.instances[name] = inst
}

// Names returns the registered store names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Get returns the instance registered under name.
func (r *Registry) Get(name string) (Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	return inst, ok
}

// ClearAll empties every store. Repeated calls are safe.
func (r *Registry) ClearAll() {
	removed := 0
	for _, inst := range r.snapshot() {
		removed += inst.Clear()
	}
	r.logger.Info().Int("removed", removed).Msg("Cleared all caches")
}

// ClearOne empties the store registered under name.
func (r *Registry) ClearOne(name string) error {
	inst, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCache, name)
	}
	removed := inst.Clear()
	r.logger.Info().Str("cache", name).Int("removed", removed).Msg("Cleared cache")
	return nil
}

// ClearExpired sweeps expired entries from every store and returns the
// total number removed.
func (r *Registry) ClearExpired() int {
	removed := 0
	for _, inst := range r.snapshot() {
		removed += inst.ClearExpired()
	}
	if removed > 0 {
		r.logger.Debug().Int("removed", removed).Msg("Swept expired cache entries")
	}
	return removed
}

// Status returns one Status per registered store, in registration order.
func (r *Registry) Status() []Status {
	instances := r.snapshot()
	out := make([]Status, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.Snapshot())
	}
	return out
}

// RunJanitor calls ClearExpired every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Debug().Dur("interval", interval).Msg("Cache janitor started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug().Msg("Cache janitor stopped")
			return
		case <-ticker.C:
			r.ClearExpired()
		}
	}
}

func (r *Registry) snapshot() []Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Instance, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.instances[name])
	}
	return out
}
