package platform

import (
	"sync"

	"replykit/internal/domain"
)

// Registry holds the adapters in registration order. The first adapter
// whose CanHandle accepts a URL serves it.
type Registry struct {
	mu       sync.RWMutex
	adapters []Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Default returns a registry with the Reddit, Twitter and Facebook adapters.
func Default(selectors *SelectorRegistry) *Registry {
	r := NewRegistry()
	r.Register(NewRedditAdapter(selectors))
	r.Register(NewTwitterAdapter(selectors))
	r.Register(NewFacebookAdapter(selectors))
	return r
}

// Register appends a. A second adapter for an already registered platform
// is ignored and Register reports false.
func (r *Registry) Register(a Adapter) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.adapters {
		if existing.Platform() == a.Platform() {
			return false
		}
	}
	r.adapters = append(r.adapters, a)
	return true
}

// Adapter returns the first adapter that handles rawURL, or nil.
func (r *Registry) Adapter(rawURL string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.adapters {
		if a.CanHandle(rawURL) {
			return a
		}
	}
	return nil
}

// ForPlatform returns the adapter registered for p, or nil.
func (r *Registry) ForPlatform(p domain.Platform) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.adapters {
		if a.Platform() == p {
			return a
		}
	}
	return nil
}

// All returns a copy of the registered adapters.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Adapter(nil), r.adapters...)
}
