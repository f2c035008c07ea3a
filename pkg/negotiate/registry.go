package negotiate

import (
	"strings"
	"sync"
)

// Registry maps media ranges to renderers.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
	fallback  Renderer
}

// NewRegistry returns an empty registry that falls back to fallback.
func NewRegistry(fallback Renderer) *Registry {
	return &Registry{
		renderers: make(map[string]Renderer),
		fallback:  fallback,
	}
}

// DefaultRegistry serves RDAP JSON by default, plain JSON and YAML on request.
func DefaultRegistry() *Registry {
	rdap := NewJSONRenderer(MediaTypeRDAP)
	r := NewRegistry(rdap)
	r.Register(rdap, MediaTypeRDAP, "application/*", "*/*")
	r.Register(NewJSONRenderer(MediaTypeJSON), MediaTypeJSON)
	r.Register(NewYAMLRenderer(MediaTypeYAML), MediaTypeYAML)
	r.Register(NewYAMLRenderer(MediaTypeText), MediaTypeText, "text/*")
	return r
}

// Register adds renderer under each media range, replacing earlier entries.
func (r *Registry) Register(renderer Renderer, mediaRanges ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mr := range mediaRanges {
		r.renderers[strings.ToLower(strings.TrimSpace(mr))] = renderer
	}
}

// Default returns the fallback renderer.
func (r *Registry) Default() Renderer {
	return r.fallback
}

// Lookup returns the renderer registered under exactly mediaRange.
func (r *Registry) Lookup(mediaRange string) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.renderers[strings.ToLower(mediaRange)]
	return renderer, ok
}

// Select returns the renderer of the most preferred registered range of
// header, or the default renderer.
func (r *Registry) Select(header string) Renderer {
	for _, mr := range ParseAccept(header) {
		if renderer, ok := r.Lookup(mr.String()); ok {
			return renderer
		}
	}
	return r.fallback
}
