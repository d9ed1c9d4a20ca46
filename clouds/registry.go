// Package clouds provides the backend plugin system.
// Backends are modular plugins that can be added without modifying core.
package clouds

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pipeline-cost/core/query"
)

// Plugin defines the interface for a pipeline run backend
type Plugin interface {
	// Kind returns the backend identifier
	Kind() BackendKind

	// Name returns a human-readable name
	Name() string

	// Description returns a description of the plugin
	Description() string

	// Open validates settings and returns a queryer
	Open(ctx context.Context, settings Settings) (query.Queryer, error)
}

// Registry manages backend plugin registration
type Registry struct {
	mu      sync.RWMutex
	plugins map[BackendKind]Plugin
}

// NewRegistry creates a new plugin registry
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[BackendKind]Plugin),
	}
}

// Register adds a plugin to the registry
func (r *Registry) Register(plugin Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[plugin.Kind()]; exists {
		return fmt.Errorf("plugin already registered: %s", plugin.Kind())
	}

	r.plugins[plugin.Kind()] = plugin
	return nil
}

// GetPlugin returns a plugin by kind
func (r *Registry) GetPlugin(kind BackendKind) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.plugins[kind]
	return plugin, ok
}

// GetAll returns all registered plugins ordered by kind
func (r *Registry) GetAll() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugins := make([]Plugin, 0, len(r.plugins))
	for _, plugin := range r.plugins {
		plugins = append(plugins, plugin)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Kind() < plugins[j].Kind()
	})
	return plugins
}

// Kinds returns all registered backend kinds
func (r *Registry) Kinds() []BackendKind {
	plugins := r.GetAll()
	kinds := make([]BackendKind, len(plugins))
	for i, p := range plugins {
		kinds[i] = p.Kind()
	}
	return kinds
}

// Open opens the backend registered for kind
func (r *Registry) Open(ctx context.Context, kind BackendKind, settings Settings) (query.Queryer, error) {
	plugin, ok := r.GetPlugin(kind)
	if !ok {
		return nil, fmt.Errorf("no backend registered for %s", kind)
	}
	q, err := plugin.Open(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", kind, err)
	}
	return q, nil
}

// Global default registry
var defaultRegistry = NewRegistry()

// RegisterPlugin adds a plugin to the default registry
func RegisterPlugin(plugin Plugin) error {
	return defaultRegistry.Register(plugin)
}

// MustRegister adds a plugin to the default registry and panics on conflict.
// Backends call it from init.
func MustRegister(plugin Plugin) {
	if err := RegisterPlugin(plugin); err != nil {
		panic(err)
	}
}

// GetDefaultRegistry returns the default registry
func GetDefaultRegistry() *Registry {
	return defaultRegistry
}
