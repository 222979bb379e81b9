// Package routing turns a classified query and a named strategy into an
// ordered or concurrency-bounded provider selection. Strategy definitions are
// data loaded at startup; the engine itself is stateless.
package routing

import (
	"fmt"
	"slices"
	"sort"

	"github.com/omnisearch/omnisearch/internal/config"
	"github.com/omnisearch/omnisearch/internal/registry"
	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/sirupsen/logrus"
)

// conditionDefault always matches and is used as a cascade catch-all step.
const conditionDefault = "default"

// Selection is the outcome of routing: which providers to try and how.
type Selection struct {
	// Providers in attempt order (cascade) or invocation set (parallel).
	Providers []search.Provider

	// Sequential providers are tried in order, stopping at the first
	// provider that returns at least one result. Non-sequential selections
	// are invoked concurrently, bounded by MaxParallel.
	Sequential bool

	// MaxParallel bounds concurrent invocations for parallel selections.
	MaxParallel int
}

// Engine selects providers per request.
type Engine struct {
	strategies map[string]config.StrategyConfig
	registry   *registry.Registry
	logger     *logrus.Logger
}

// NewEngine creates a routing engine over the configured strategies.
func NewEngine(strategies map[string]config.StrategyConfig, reg *registry.Registry, logger *logrus.Logger) *Engine {
	return &Engine{strategies: strategies, registry: reg, logger: logger}
}

// SelectProviders resolves the named strategy against the classification.
// An unknown strategy name is a configuration error and fails the request.
func (e *Engine) SelectProviders(classification search.Classification, strategyName string) (Selection, error) {
	strategy, ok := e.strategies[strategyName]
	if !ok {
		return Selection{}, fmt.Errorf("%w: %q", search.ErrUnknownStrategy, strategyName)
	}

	var selection Selection
	switch strategy.Kind {
	case config.StrategyCascade:
		selection = e.selectCascade(strategy, classification)
	case config.StrategyParallelBest:
		selection = e.selectParallelBest(strategy)
	case config.StrategyCostOptimized:
		selection = e.selectCostOptimized()
	default:
		// Unreachable for validated configuration.
		return Selection{}, fmt.Errorf("%w: %q has unsupported kind %q", search.ErrUnknownStrategy, strategyName, strategy.Kind)
	}

	if len(selection.Providers) == 0 {
		return Selection{}, fmt.Errorf("%w: strategy %q matched no enabled providers", search.ErrNoProvidersSelected, strategyName)
	}

	e.logger.WithFields(logrus.Fields{
		"strategy":   strategyName,
		"query_type": classification.Type,
		"providers":  providerIDs(selection.Providers),
		"sequential": selection.Sequential,
	}).Debug("Routing selection made")

	return selection, nil
}

// SelectExplicit bypasses strategies entirely for a caller-supplied provider
// list. Order is preserved; disabled or unknown ids fail the request.
func (e *Engine) SelectExplicit(ids []string) (Selection, error) {
	providers := make([]search.Provider, 0, len(ids))
	for _, id := range ids {
		p, err := e.registry.Get(id)
		if err != nil {
			return Selection{}, err
		}
		if !p.Enabled {
			return Selection{}, fmt.Errorf("%w: %s is disabled", search.ErrProviderUnavailable, id)
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return Selection{}, search.ErrNoProvidersSelected
	}
	return Selection{Providers: providers, Sequential: true}, nil
}

// selectCascade scans steps in declaration order. A step matches when its
// condition equals the classification's primary type, appears among the
// matched tags, or is the literal "default".
func (e *Engine) selectCascade(strategy config.StrategyConfig, classification search.Classification) Selection {
	for _, step := range strategy.Steps {
		if !stepMatches(step.Condition, classification) {
			continue
		}
		providers := e.enabledInOrder(step.Providers)
		if len(providers) == 0 {
			// A matching step with nothing enabled does not fall through to
			// later steps; the cascade condition already won.
			e.logger.WithField("condition", step.Condition).Warn("Cascade step matched but no listed provider is enabled")
		}
		return Selection{Providers: providers, Sequential: true}
	}
	return Selection{Sequential: true}
}

func stepMatches(condition string, classification search.Classification) bool {
	if condition == conditionDefault {
		return true
	}
	if condition == classification.Type {
		return true
	}
	return slices.Contains(classification.Matched, condition)
}

// selectParallelBest filters the declared list to enabled providers and
// truncates it to the concurrency bound.
func (e *Engine) selectParallelBest(strategy config.StrategyConfig) Selection {
	providers := e.enabledInOrder(strategy.Providers)
	if len(providers) > strategy.MaxParallel {
		providers = providers[:strategy.MaxParallel]
	}
	return Selection{Providers: providers, MaxParallel: strategy.MaxParallel}
}

// selectCostOptimized orders every enabled provider by ascending cost score,
// breaking ties on declared priority then id, and applies cascade semantics.
func (e *Engine) selectCostOptimized() Selection {
	providers := e.registry.ListEnabled()
	sort.SliceStable(providers, func(i, j int) bool {
		if providers[i].CostScore != providers[j].CostScore {
			return providers[i].CostScore < providers[j].CostScore
		}
		if providers[i].Priority != providers[j].Priority {
			return providers[i].Priority < providers[j].Priority
		}
		return providers[i].ID < providers[j].ID
	})
	return Selection{Providers: providers, Sequential: true}
}

func (e *Engine) enabledInOrder(ids []string) []search.Provider {
	providers := make([]search.Provider, 0, len(ids))
	for _, id := range ids {
		p, err := e.registry.Get(id)
		if err != nil || !p.Enabled {
			continue
		}
		providers = append(providers, p)
	}
	return providers
}

func providerIDs(providers []search.Provider) []string {
	ids := make([]string, 0, len(providers))
	for _, p := range providers {
		ids = append(ids, p.ID)
	}
	return ids
}
