// Package transport owns the connection layer: one lazily-constructed,
// cached handle per provider, plus the stdio and HTTP clients those handles
// are built on.
package transport

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/omnisearch/omnisearch/internal/registry"
	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Handle is one live connection to a provider backend. Concrete handles are
// *HTTPHandle for direct-api providers and *ToolHandle for subprocess tools.
type Handle interface {
	ProviderID() string
	Close() error
}

// Manager lazily establishes and caches one handle per provider id. It is
// the only mutable shared structure with concurrent-construction risk:
// construction is deduplicated so two requests racing on an uncached
// provider share a single handle.
type Manager struct {
	registry *registry.Registry
	logger   *logrus.Logger

	mu      sync.RWMutex
	handles map[string]Handle
	group   singleflight.Group
	closed  bool
}

// NewManager creates a connection manager over the registry.
func NewManager(reg *registry.Registry, logger *logrus.Logger) *Manager {
	return &Manager{
		registry: reg,
		logger:   logger,
		handles:  make(map[string]Handle),
	}
}

// GetHandle returns the cached handle for a provider, constructing it on
// first use. Construction failures are not cached, so a later call retries.
func (m *Manager) GetHandle(ctx context.Context, providerID string) (Handle, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: connection manager is shut down", search.ErrProviderUnavailable)
	}
	if h, ok := m.handles[providerID]; ok {
		m.mu.RUnlock()
		return h, nil
	}
	m.mu.RUnlock()

	v, err, _ := m.group.Do(providerID, func() (any, error) {
		// Re-check under the group: a concurrent caller may have finished
		// construction between the cache miss and this closure running.
		m.mu.RLock()
		h, ok := m.handles[providerID]
		m.mu.RUnlock()
		if ok {
			return h, nil
		}

		handle, err := m.construct(ctx, providerID)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			_ = handle.Close()
			return nil, fmt.Errorf("%w: connection manager is shut down", search.ErrProviderUnavailable)
		}
		m.handles[providerID] = handle
		m.mu.Unlock()
		return handle, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Handle), nil
}

func (m *Manager) construct(ctx context.Context, providerID string) (Handle, error) {
	provider, err := m.registry.Get(providerID)
	if err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"provider": providerID,
		"kind":     provider.Kind,
	}).Debug("Constructing provider handle")

	switch provider.Kind {
	case search.KindSubprocessTool:
		return StartTool(ctx, provider, m.logger)
	case search.KindDirectAPI:
		return NewHTTPHandle(provider, m.logger)
	default:
		// Unreachable for validated configuration.
		return nil, fmt.Errorf("%w: %s has unsupported kind %q", search.ErrProviderUnavailable, providerID, provider.Kind)
	}
}

// Connected returns the ids of providers with a live cached handle, sorted.
func (m *Manager) Connected() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseAll releases every cached handle. Invoked once at process shutdown;
// subsequent GetHandle calls fail.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	handles := m.handles
	m.handles = make(map[string]Handle)
	m.closed = true
	m.mu.Unlock()

	var firstErr error
	for id, h := range handles {
		if err := h.Close(); err != nil {
			m.logger.WithField("provider", id).WithError(err).Warn("Failed to close provider handle")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
