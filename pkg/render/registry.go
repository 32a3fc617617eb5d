package render

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNoRenderer is returned when no registered renderer matches a lookup.
var ErrNoRenderer = errors.New("render: no renderer registered")

// Registry stores renderers by theme hook name, e.g. "group_content" or a
// more specific suggestion such as "group_content__article".
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		renderers: make(map[string]Renderer),
	}
}

// Register adds a renderer under its Name(). Duplicate names return an error.
func (r *Registry) Register(renderer Renderer) error {
	if renderer == nil {
		return errors.New("render: renderer is required")
	}
	return r.RegisterAs(renderer.Name(), renderer)
}

// RegisterAs adds a renderer under an explicit hook name, letting one
// renderer serve several suggestions.
func (r *Registry) RegisterAs(name string, renderer Renderer) error {
	if renderer == nil {
		return errors.New("render: renderer is required")
	}
	if name == "" {
		return errors.New("render: renderer name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.renderers[name]; exists {
		return fmt.Errorf("render: renderer %q already registered", name)
	}
	r.renderers[name] = renderer
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(renderer Renderer) {
	if err := r.Register(renderer); err != nil {
		panic(err)
	}
}

// Unregister removes a renderer, reporting whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.renderers[name]; !ok {
		return false
	}
	delete(r.renderers, name)
	return true
}

// Get retrieves a renderer by name.
func (r *Registry) Get(name string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	renderer, ok := r.renderers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoRenderer, name)
	}
	return renderer, nil
}

// MustGet panics if the renderer is missing.
func (r *Registry) MustGet(name string) Renderer {
	renderer, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return renderer
}

// Resolve returns the renderer for the first suggestion that has one, along
// with the suggestion it matched.
func (r *Registry) Resolve(suggestions ...string) (Renderer, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range suggestions {
		if renderer, ok := r.renderers[name]; ok {
			return renderer, name, nil
		}
	}
	return nil, "", fmt.Errorf("%w: tried %v", ErrNoRenderer, suggestions)
}

// List returns a sorted list of renderer names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.renderers))
	for name := range r.renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a renderer is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.renderers[name]
	return ok
}
