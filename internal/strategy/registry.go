package strategy

import (
	"sort"
	"sync"

	"github.com/helix-quant/cta-trading/pkg/errors"
)

// Factory builds the hook implementation for one strategy instance. The
// template is fully wired by the engine before the factory runs, so factories
// may read parameters and the indicator window but must not start trading.
type Factory func(base *Template, params Params) (Hooks, error)

// Registry maps strategy type names to factories. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under the given type name. Registering the same
// name twice is a programming error and fails.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy type name is empty")
	}

	if factory == nil {
		return errors.Newf(errors.ErrCodeInvalidParameter, "strategy type %s has nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeStrategyAlreadyExists, "strategy type %s already registered", name)
	}

	r.factories[name] = factory

	return nil
}

// Get returns the factory for a type name.
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy type %s not registered", name)
	}

	return factory, nil
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// DefaultRegistry returns a registry with the built in strategy types.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Built in registrations never collide.
	_ = r.Register("ma_cross", NewMACross)
	_ = r.Register("rsi_reversion", NewRSIReversion)

	return r
}
