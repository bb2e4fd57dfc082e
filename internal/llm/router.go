package llm

import (
	"fmt"
	"sort"
	"sync"
)

// Router picks the completion backend the assistant talks to. Every backend
// is registered at startup; only those with credentials can be selected.
type Router struct {
	mu       sync.RWMutex
	backends map[string]Provider
	primary  string
}

// NewRouter creates a router that falls back to primary when no backend is named
func NewRouter(primary string) *Router {
	return &Router{backends: make(map[string]Provider), primary: primary}
}

// Register adds a backend under its own name, replacing any earlier one
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	r.backends[p.Name()] = p
	r.mu.Unlock()
}

// Select returns the named backend, or the primary one for an empty name
func (r *Router) Select(name string) (Provider, error) {
	if name == "" {
		name = r.primary
	}

	r.mu.RLock()
	p, ok := r.backends[name]
	r.mu.RUnlock()

	switch {
	case !ok:
		return nil, fmt.Errorf("provider not found: %s", name)
	case !p.IsConfigured():
		return nil, fmt.Errorf("provider not configured: %s", name)
	}
	return p, nil
}

// Primary returns the backend used when none is named
func (r *Router) Primary() string {
	return r.primary
}

// Configured returns the names of the selectable backends, sorted
func (r *Router) Configured() []string {
	names := []string{}
	for _, b := range r.Describe() {
		if b.Configured {
			names = append(names, b.Name)
		}
	}
	return names
}

// Backend describes one registered completion backend
type Backend struct {
	Name       string   `json:"name"`
	Models     []string `json:"models"`
	Primary    bool     `json:"default"`
	Configured bool     `json:"configured"`
}

// Describe lists every registered backend sorted by name
func (r *Router) Describe() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Backend, 0, len(r.backends))
	for name, p := range r.backends {
		out = append(out, Backend{
			Name:       name,
			Models:     p.AvailableModels(),
			Primary:    name == r.primary,
			Configured: p.IsConfigured(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
