package iface

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Module is implemented by packages that contribute interfaces.
type Module interface {
	Register(r *Registry)
}

// Registry holds the interfaces available to pipelines, keyed by name.
type Registry struct {
	mu         sync.RWMutex
	interfaces map[string]Interface
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{interfaces: make(map[string]Interface)}
}

// Register adds an interface to the registry.
func (r *Registry) Register(i Interface) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.interfaces[i.Name()]; exists {
		panic(fmt.Sprintf("interface with name '%s' already registered", i.Name()))
	}
	slog.Debug("Registering interface.", "name", i.Name())
	r.interfaces[i.Name()] = i
}

// Lookup returns the interface registered under name.
func (r *Registry) Lookup(name string) (Interface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.interfaces[name]
	return i, ok
}

// Names lists the registered interface names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.interfaces))
	for name := range r.interfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
