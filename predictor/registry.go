package predictor

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory instantiates a predictor with no arguments.
type Factory func() (any, error)

// Registry maps locators to predictor factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a new predictor registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under locator.
func (r *Registry) Register(locator string, f Factory) error {
	if _, _, err := ParseLocator(locator); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[locator]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, locator)
	}

	r.factories[locator] = f

	return nil
}

// Get retrieves the factory registered under locator.
func (r *Registry) Get(locator string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[locator]
	return f, ok
}

// HasModule reports whether any locator of module is registered.
func (r *Registry) HasModule(module string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefix := module + ":"
	for locator := range r.factories {
		if strings.HasPrefix(locator, prefix) {
			return true
		}
	}

	return false
}

// List returns the registered locators, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	locators := make([]string, 0, len(r.factories))
	for locator := range r.factories {
		locators = append(locators, locator)
	}
	sort.Strings(locators)

	return locators
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by Register.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register makes a predictor constructor available under locator, typically
// from an init function. It panics if locator is malformed or taken.
func Register[T any](locator string, newFn func() T) {
	if err := defaultRegistry.Register(locator, func() (any, error) { return newFn(), nil }); err != nil {
		panic(err)
	}
}

// RegisterFactory is Register for constructors that can fail.
func RegisterFactory(locator string, f Factory) {
	if err := defaultRegistry.Register(locator, f); err != nil {
		panic(err)
	}
}
