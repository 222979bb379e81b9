// Package executor invokes a single provider through its adapter: uniform
// request in, normalized results out, with exactly one invocation record
// emitted per attempt.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/omnisearch/omnisearch/internal/adapters"
	"github.com/omnisearch/omnisearch/internal/metrics"
	"github.com/omnisearch/omnisearch/internal/registry"
	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/omnisearch/omnisearch/internal/transport"
	"github.com/sirupsen/logrus"
)

// Executor performs per-provider searches.
type Executor struct {
	registry *registry.Registry
	manager  *transport.Manager
	monitor  *metrics.Monitor
	logger   *logrus.Logger
}

// New creates an executor over the connection manager, with every attempt
// reported to the monitor.
func New(reg *registry.Registry, manager *transport.Manager, monitor *metrics.Monitor, logger *logrus.Logger) *Executor {
	return &Executor{registry: reg, manager: manager, monitor: monitor, logger: logger}
}

// Search invokes one provider and returns its normalized results, truncated
// to maxResults. Transport and invocation failures propagate; unparseable
// payloads do not: they normalize to a single opaque-text result.
func (e *Executor) Search(ctx context.Context, providerID, query string, maxResults int) ([]search.Result, error) {
	start := time.Now()
	results, err := e.search(ctx, providerID, query, maxResults)

	record := search.InvocationRecord{
		Provider: providerID,
		Start:    start,
		Duration: time.Since(start),
		Success:  err == nil,
	}
	if err != nil {
		record.Error = err.Error()
	}
	e.monitor.Record(record)

	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"provider": providerID,
			"duration": record.Duration,
		}).WithError(err).Debug("Provider invocation failed")
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"provider":     providerID,
		"duration":     record.Duration,
		"result_count": len(results),
	}).Debug("Provider invocation completed")
	return results, nil
}

func (e *Executor) search(ctx context.Context, providerID, query string, maxResults int) ([]search.Result, error) {
	provider, err := e.registry.Get(providerID)
	if err != nil {
		return nil, err
	}

	adapter, err := adapters.Get(provider.Adapter)
	if err != nil {
		return nil, err
	}

	handle, err := e.manager.GetHandle(ctx, providerID)
	if err != nil {
		return nil, err
	}

	invokeCtx := ctx
	if provider.Timeout > 0 {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithTimeout(ctx, provider.Timeout)
		defer cancel()
	}

	raw, err := adapter.Invoke(invokeCtx, handle, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("provider %s invocation failed: %w", providerID, err)
	}

	results := adapter.Normalize(providerID, query, raw)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}
