// Package registry holds the provider registry: the immutable, loaded-once
// description of every configured search backend.
package registry

import (
	"fmt"

	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/sirupsen/logrus"
)

// Registry indexes providers by id. It is populated once at startup from
// configuration and never mutated afterwards, so lookups need no locking.
type Registry struct {
	providers map[string]search.Provider
	ordered   []search.Provider
}

// New builds a registry from the configured provider set. The slice must
// already be in (priority, id) order; the registry preserves it.
func New(providers []search.Provider, logger *logrus.Logger) *Registry {
	r := &Registry{
		providers: make(map[string]search.Provider, len(providers)),
		ordered:   providers,
	}
	for _, p := range providers {
		r.providers[p.ID] = p
		logger.WithFields(logrus.Fields{
			"provider": p.ID,
			"kind":     p.Kind,
			"enabled":  p.Enabled,
			"adapter":  p.Adapter,
		}).Debug("Registered search provider")
	}
	return r
}

// Get returns the provider with the given id.
func (r *Registry) Get(id string) (search.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return search.Provider{}, fmt.Errorf("%w: %s", search.ErrProviderNotFound, id)
	}
	return p, nil
}

// Has reports whether a provider id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.providers[id]
	return ok
}

// ListEnabled returns every enabled provider in (priority, id) order.
func (r *Registry) ListEnabled() []search.Provider {
	enabled := make([]search.Provider, 0, len(r.ordered))
	for _, p := range r.ordered {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

// ListAll returns every registered provider in (priority, id) order.
func (r *Registry) ListAll() []search.Provider {
	out := make([]search.Provider, len(r.ordered))
	copy(out, r.ordered)
	return out
}
