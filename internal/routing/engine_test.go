package routing

import (
	"testing"

	"github.com/omnisearch/omnisearch/internal/config"
	"github.com/omnisearch/omnisearch/internal/registry"
	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	providers := []search.Provider{
		{ID: "fetchTool", Enabled: true, Priority: 1, CostScore: 0.1},
		{ID: "searxng", Enabled: true, Priority: 2, CostScore: 0.0},
		{ID: "brave", Enabled: true, Priority: 3, CostScore: 0.5},
		{ID: "ragBrowser", Enabled: false, Priority: 4, CostScore: 0.8},
	}
	reg := registry.New(providers, logger)

	strategies := map[string]config.StrategyConfig{
		"smart_cascade": {
			Kind: config.StrategyCascade,
			Steps: []config.StrategyStep{
				{Condition: "url", Providers: []string{"fetchTool", "ragBrowser"}},
				{Condition: "news", Providers: []string{"brave", "searxng"}},
				{Condition: "default", Providers: []string{"searxng", "brave"}},
			},
		},
		"fanout": {
			Kind:        config.StrategyParallelBest,
			Providers:   []string{"searxng", "brave", "ragBrowser", "fetchTool"},
			MaxParallel: 2,
		},
		"cheap_first": {
			Kind: config.StrategyCostOptimized,
		},
	}
	return NewEngine(strategies, reg, logger)
}

func TestCascadeMatchesPrimaryType(t *testing.T) {
	e := testEngine(t)

	selection, err := e.SelectProviders(search.Classification{Type: "url"}, "smart_cascade")
	require.NoError(t, err)

	assert.True(t, selection.Sequential)
	// ragBrowser is disabled and filtered out.
	assert.Equal(t, []string{"fetchTool"}, providerIDs(selection.Providers))
}

func TestCascadeMatchesTag(t *testing.T) {
	e := testEngine(t)

	// Primary type general, but the news tag matched during classification.
	selection, err := e.SelectProviders(search.Classification{
		Type:    "general",
		Matched: []string{"news"},
	}, "smart_cascade")
	require.NoError(t, err)

	assert.Equal(t, []string{"brave", "searxng"}, providerIDs(selection.Providers))
}

func TestCascadeFallsThroughToDefault(t *testing.T) {
	e := testEngine(t)

	selection, err := e.SelectProviders(search.Classification{Type: "general"}, "smart_cascade")
	require.NoError(t, err)

	assert.Equal(t, []string{"searxng", "brave"}, providerIDs(selection.Providers))
}

func TestParallelBestTruncatesToBound(t *testing.T) {
	e := testEngine(t)

	selection, err := e.SelectProviders(search.Classification{Type: "general"}, "fanout")
	require.NoError(t, err)

	assert.False(t, selection.Sequential)
	assert.Equal(t, 2, selection.MaxParallel)
	// Declared order, enabled only, truncated to max_parallel.
	assert.Equal(t, []string{"searxng", "brave"}, providerIDs(selection.Providers))
}

func TestCostOptimizedOrdersByCost(t *testing.T) {
	e := testEngine(t)

	selection, err := e.SelectProviders(search.Classification{Type: "general"}, "cheap_first")
	require.NoError(t, err)

	assert.True(t, selection.Sequential)
	assert.Equal(t, []string{"searxng", "fetchTool", "brave"}, providerIDs(selection.Providers))
}

func TestUnknownStrategyFailsTheRequest(t *testing.T) {
	e := testEngine(t)

	_, err := e.SelectProviders(search.Classification{Type: "general"}, "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrUnknownStrategy)
}

func TestSelectExplicitOverridesStrategy(t *testing.T) {
	e := testEngine(t)

	selection, err := e.SelectExplicit([]string{"brave", "searxng"})
	require.NoError(t, err)
	assert.True(t, selection.Sequential)
	assert.Equal(t, []string{"brave", "searxng"}, providerIDs(selection.Providers))

	_, err = e.SelectExplicit([]string{"ghost"})
	assert.ErrorIs(t, err, search.ErrProviderNotFound)

	_, err = e.SelectExplicit([]string{"ragBrowser"})
	assert.ErrorIs(t, err, search.ErrProviderUnavailable)
}
