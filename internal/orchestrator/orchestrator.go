// Package orchestrator is the engine's public entry point: it wires the
// classifier, routing engine, executor, result processor, and performance
// monitor together per request.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/omnisearch/omnisearch/internal/classifier"
	"github.com/omnisearch/omnisearch/internal/config"
	"github.com/omnisearch/omnisearch/internal/metrics"
	"github.com/omnisearch/omnisearch/internal/registry"
	"github.com/omnisearch/omnisearch/internal/results"
	"github.com/omnisearch/omnisearch/internal/routing"
	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/omnisearch/omnisearch/internal/transport"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

// ProviderSearcher invokes a single provider. Satisfied by executor.Executor.
type ProviderSearcher interface {
	Search(ctx context.Context, providerID, query string, maxResults int) ([]search.Result, error)
}

// requestState tracks a request through its lifecycle for diagnostics.
type requestState string

const (
	stateClassifying requestState = "classifying"
	stateRouting     requestState = "routing"
	stateExecuting   requestState = "executing"
	stateAggregating requestState = "aggregating"
	stateDone        requestState = "done"
	stateFailed      requestState = "failed"
)

// Request is one hybrid search invocation.
type Request struct {
	Query      string
	MaxResults int
	Strategy   string
	// Providers, when non-empty, overrides strategy-based selection entirely.
	Providers []string
}

// ProviderStatus is the diagnostic view of one provider.
type ProviderStatus struct {
	Enabled     bool          `json:"enabled"`
	Connected   bool          `json:"connected"`
	Invocations int           `json:"invocations"`
	Failures    int           `json:"failures"`
	AvgLatency  time.Duration `json:"avg_latency"`
}

// Status is the engine-wide diagnostic view backed by the monitor.
type Status struct {
	TotalQueries int                       `json:"total_queries"`
	SuccessRate  float64                   `json:"success_rate"`
	Providers    map[string]ProviderStatus `json:"per_provider"`
	RecentErrors []string                  `json:"recent_errors,omitempty"`
}

// Orchestrator owns the per-process engine state: registry, connections,
// metrics. Created once at startup and torn down with Close.
type Orchestrator struct {
	cfg        *config.Config
	registry   *registry.Registry
	classifier *classifier.Classifier
	engine     *routing.Engine
	searcher   ProviderSearcher
	processor  *results.Processor
	monitor    *metrics.Monitor
	manager    *transport.Manager
	logger     *logrus.Logger
}

// New wires an orchestrator from already-constructed components.
func New(
	cfg *config.Config,
	reg *registry.Registry,
	cls *classifier.Classifier,
	engine *routing.Engine,
	searcher ProviderSearcher,
	processor *results.Processor,
	monitor *metrics.Monitor,
	manager *transport.Manager,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		registry:   reg,
		classifier: cls,
		engine:     engine,
		searcher:   searcher,
		processor:  processor,
		monitor:    monitor,
		manager:    manager,
		logger:     logger,
	}
}

// HybridSearch runs one query end to end: classify, route, execute under the
// strategy's semantics, aggregate. Partial provider failures surface in the
// response's errors list; the request itself fails only for configuration
// errors, all-providers-failed, or a deadline with nothing collected.
func (o *Orchestrator) HybridSearch(ctx context.Context, req Request) (*search.Response, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if req.MaxResults <= 0 {
		req.MaxResults = o.cfg.Defaults.MaxResults
	}
	if req.Strategy == "" {
		req.Strategy = o.cfg.Defaults.Strategy
	}

	requestID := uuid.NewString()
	log := o.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"strategy":   req.Strategy,
	})
	o.monitor.RecordQuery()

	log.WithField("state", stateClassifying).Debug("Hybrid search started")
	classification := o.classifier.Classify(req.Query)
	log.WithFields(logrus.Fields{
		"state":      stateRouting,
		"query_type": classification.Type,
		"confidence": classification.Confidence,
	}).Debug("Query classified")

	var selection routing.Selection
	var err error
	if len(req.Providers) > 0 {
		selection, err = o.engine.SelectExplicit(req.Providers)
	} else {
		selection, err = o.engine.SelectProviders(classification, req.Strategy)
	}
	if err != nil {
		log.WithField("state", stateFailed).WithError(err).Debug("Routing failed")
		return nil, err
	}

	log.WithField("state", stateExecuting).Debug("Executing provider selection")
	var outcome executionOutcome
	if selection.Sequential {
		outcome = o.executeSequential(ctx, selection, req)
	} else {
		outcome = o.executeParallel(ctx, selection, req)
	}

	if len(outcome.results) == 0 {
		if outcome.deadlineHit {
			log.WithField("state", stateFailed).Warn("Request deadline elapsed with no results")
			return nil, fmt.Errorf("%w (strategy %s)", search.ErrRequestTimeout, req.Strategy)
		}
		if len(outcome.errors) > 0 && outcome.attempted == len(outcome.errors) {
			err := &search.AllFailedError{Attempts: outcome.errors}
			log.WithField("state", stateFailed).WithError(err).Warn("All selected providers failed")
			return nil, err
		}
	}

	log.WithField("state", stateAggregating).Debug("Aggregating results")
	processed := o.processor.Process(outcome.results, req.Query)
	if len(processed) > req.MaxResults {
		processed = processed[:req.MaxResults]
	}

	response := &search.Response{
		RequestID:     requestID,
		Query:         req.Query,
		Strategy:      req.Strategy,
		ProvidersUsed: outcome.used,
		Results:       processed,
		TotalResults:  len(processed),
		Errors:        outcome.errors,
		Timestamp:     time.Now(),
	}

	log.WithFields(logrus.Fields{
		"state":          stateDone,
		"providers_used": outcome.used,
		"total_results":  response.TotalResults,
		"errors":         len(outcome.errors),
	}).Info("Hybrid search completed")
	return response, nil
}

// executionOutcome collects what a strategy execution produced.
type executionOutcome struct {
	results     []search.Result
	used        []string
	errors      []search.InvocationError
	attempted   int
	deadlineHit bool
}

// executeSequential implements cascade semantics: strictly ordered attempts,
// stopping at the first provider that returns at least one result. A later
// provider is never invoked once an earlier one has yielded results.
func (o *Orchestrator) executeSequential(ctx context.Context, selection routing.Selection, req Request) executionOutcome {
	var outcome executionOutcome
	for _, provider := range selection.Providers {
		if ctx.Err() != nil {
			outcome.deadlineHit = true
			break
		}

		outcome.attempted++
		providerResults, err := o.searcher.Search(ctx, provider.ID, req.Query, req.MaxResults)
		if err != nil {
			outcome.errors = append(outcome.errors, search.InvocationError{
				Provider: provider.ID,
				Message:  err.Error(),
			})
			if ctx.Err() != nil {
				outcome.deadlineHit = true
				break
			}
			continue
		}

		if len(providerResults) > 0 {
			outcome.results = providerResults
			outcome.used = []string{provider.ID}
			break
		}
		// Zero results without error: the cascade moves on.
	}
	return outcome
}

// executeParallel implements parallel-best semantics: every selected provider
// is invoked concurrently on a bounded worker pool and all non-error
// responses are merged in arrival order.
func (o *Orchestrator) executeParallel(ctx context.Context, selection routing.Selection, req Request) executionOutcome {
	poolSize := selection.MaxParallel
	if poolSize <= 0 || poolSize > len(selection.Providers) {
		poolSize = len(selection.Providers)
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		// Pool construction only fails for invalid sizes; fall back to the
		// sequential path rather than dropping the request.
		o.logger.WithError(err).Warn("Worker pool construction failed, executing sequentially")
		return o.executeSequential(ctx, selection, req)
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		outcome executionOutcome
	)
	outcome.attempted = len(selection.Providers)

	for _, provider := range selection.Providers {
		providerID := provider.ID
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			providerResults, err := o.searcher.Search(ctx, providerID, req.Query, req.MaxResults)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcome.errors = append(outcome.errors, search.InvocationError{
					Provider: providerID,
					Message:  err.Error(),
				})
				return
			}
			if len(providerResults) > 0 {
				outcome.results = append(outcome.results, providerResults...)
				outcome.used = append(outcome.used, providerID)
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			outcome.errors = append(outcome.errors, search.InvocationError{
				Provider: providerID,
				Message:  fmt.Sprintf("failed to schedule invocation: %v", submitErr),
			})
			mu.Unlock()
		}
	}

	wg.Wait()

	if ctx.Err() != nil {
		outcome.deadlineHit = true
	}
	return outcome
}

// Status reports the diagnostic view over every provider, backed by the
// performance monitor and the connection manager.
func (o *Orchestrator) Status() Status {
	stats := o.monitor.Stats()
	connected := make(map[string]bool)
	for _, id := range o.manager.Connected() {
		connected[id] = true
	}

	status := Status{
		TotalQueries: stats.TotalQueries,
		SuccessRate:  stats.SuccessRate,
		Providers:    make(map[string]ProviderStatus),
		RecentErrors: stats.RecentErrors,
	}
	for _, provider := range o.registry.ListAll() {
		ps := stats.PerProvider[provider.ID]
		status.Providers[provider.ID] = ProviderStatus{
			Enabled:     provider.Enabled,
			Connected:   connected[provider.ID],
			Invocations: ps.Invocations,
			Failures:    ps.Failures,
			AvgLatency:  ps.AvgLatency,
		}
	}
	return status
}

// Close releases every provider connection. Invoked once at shutdown.
func (o *Orchestrator) Close() error {
	return o.manager.CloseAll()
}

// Build assembles the full engine from configuration: registry, classifier
// (seeded with the default strategy's cascade conditions as provider
// suggestions), routing engine, connection manager, executor, processor,
// and monitor.
func Build(cfg *config.Config, searcherFor func(*registry.Registry, *transport.Manager, *metrics.Monitor) ProviderSearcher, logger *logrus.Logger) *Orchestrator {
	reg := registry.New(cfg.BuildProviders(), logger)
	monitor := metrics.NewMonitor()
	manager := transport.NewManager(reg, logger)
	engine := routing.NewEngine(cfg.Strategies, reg, logger)
	cls := classifier.New(cfg.QueryAnalysis, suggestionsFromStrategy(cfg))
	processor := results.NewProcessor(cfg.ResultProcessing.MinContentLength, cfg.SimilarityThreshold())
	return New(cfg, reg, cls, engine, searcherFor(reg, manager, monitor), processor, monitor, manager, logger)
}

// suggestionsFromStrategy derives the classifier's suggested-provider table
// from the default strategy's cascade steps: each condition suggests the
// providers its step declares.
func suggestionsFromStrategy(cfg *config.Config) map[string][]string {
	strategy, ok := cfg.Strategies[cfg.Defaults.Strategy]
	if !ok || strategy.Kind != config.StrategyCascade {
		return nil
	}
	suggestions := make(map[string][]string, len(strategy.Steps))
	for _, step := range strategy.Steps {
		if _, exists := suggestions[step.Condition]; !exists {
			suggestions[step.Condition] = step.Providers
		}
	}
	return suggestions
}

// IsConfigurationError reports whether a request failure is a configuration
// problem (unknown strategy or provider) rather than a provider outage.
func IsConfigurationError(err error) bool {
	return errors.Is(err, search.ErrUnknownStrategy) || errors.Is(err, search.ErrProviderNotFound)
}
