package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/quizgen/logger"
)

// Registry maps provider names to factories. The first registration of a
// name wins; later duplicates are rejected and logged.
type Registry[T Provider, C any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T, C]
	order     []string
	log       *logger.Logger
}

// NewRegistry creates a new empty Registry. A nil logger uses the global one.
func NewRegistry[T Provider, C any](log *logger.Logger) *Registry[T, C] {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Registry[T, C]{
		factories: make(map[string]Factory[T, C]),
		log:       log.WithComponent("registry"),
	}
}

// Register adds a named factory. It returns false and keeps the existing
// factory when the name is already registered.
func (r *Registry[T, C]) Register(name string, factory Factory[T, C]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		r.log.Warn("duplicate provider registration ignored", logger.Fields(
			logger.FieldProvider, name,
		))
		return false
	}
	r.factories[name] = factory
	r.order = append(r.order, name)
	return true
}

// Has reports whether name is registered.
func (r *Registry[T, C]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Create instantiates a provider using the named factory and config.
func (r *Registry[T, C]) Create(name string, cfg C) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("provider factory %q not registered", name)
	}
	return factory(cfg)
}

// List returns sorted names of all registered factories.
func (r *Registry[T, C]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Len returns the number of registered factories.
func (r *Registry[T, C]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
