// Package hybridsearch exposes the orchestrator's hybrid search as an MCP
// tool.
package hybridsearch

import (
	"context"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/omnisearch/omnisearch/internal/config"
	"github.com/omnisearch/omnisearch/internal/orchestrator"
	"github.com/omnisearch/omnisearch/internal/tools"
	"github.com/sirupsen/logrus"
)

// Tool routes search queries across the configured providers.
type Tool struct {
	orchestrator *orchestrator.Orchestrator
	cfg          *config.Config
}

// New creates the hybrid search tool over an orchestrator.
func New(o *orchestrator.Orchestrator, cfg *config.Config) *Tool {
	return &Tool{orchestrator: o, cfg: cfg}
}

// Definition returns the tool's definition for MCP registration.
func (t *Tool) Definition() mcp.Tool {
	strategies := make([]string, 0, len(t.cfg.Strategies))
	for name := range t.cfg.Strategies {
		strategies = append(strategies, name)
	}
	sort.Strings(strategies)

	description := fmt.Sprintf(`Search across multiple backend providers with automatic routing.

The query is classified (url, technical, news, ...) and routed by the chosen
strategy. Cascade strategies try providers in order and stop at the first
that returns results; parallel strategies query several providers at once
and merge. Failed providers are reported in the response errors list.

Available strategies: %v
Default strategy: %s

Examples:
- {"query": "golang context cancellation"}
- {"query": "latest AI announcements", "strategy": "%s", "max_results": 5}
- {"query": "https://example.com/page", "providers": ["fetchTool"]}
`, strategies, t.cfg.Defaults.Strategy, t.cfg.Defaults.Strategy)

	return mcp.NewTool("hybrid_search",
		mcp.WithDescription(description),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query term or URL"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to return"),
			mcp.DefaultNumber(float64(t.cfg.Defaults.MaxResults)),
		),
		mcp.WithString("strategy",
			mcp.Description(fmt.Sprintf("Routing strategy (default: %s)", t.cfg.Defaults.Strategy)),
			mcp.DefaultString(t.cfg.Defaults.Strategy),
			mcp.Enum(strategies...),
		),
		mcp.WithArray("providers",
			mcp.Description("Explicit provider ids to query, overriding strategy selection"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

// Execute runs one hybrid search.
func (t *Tool) Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, fmt.Errorf("missing or invalid required parameter: query")
	}

	req := orchestrator.Request{Query: query}

	if maxRaw, ok := args["max_results"].(float64); ok {
		if maxRaw < 1 {
			return nil, fmt.Errorf("max_results must be >= 1, got %v", maxRaw)
		}
		req.MaxResults = int(maxRaw)
	}

	if strategy, ok := args["strategy"].(string); ok && strategy != "" {
		req.Strategy = strategy
	}

	if providersRaw, exists := args["providers"]; exists {
		providersArray, ok := providersRaw.([]any)
		if !ok {
			return nil, fmt.Errorf("providers must be an array of provider ids")
		}
		for _, item := range providersArray {
			id, ok := item.(string)
			if !ok || id == "" {
				return nil, fmt.Errorf("providers must contain non-empty strings")
			}
			req.Providers = append(req.Providers, id)
		}
	}

	logger.WithFields(logrus.Fields{
		"query":    query,
		"strategy": req.Strategy,
	}).Info("Executing hybrid search")

	response, err := t.orchestrator.HybridSearch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}
	return tools.NewToolResultJSON(response)
}
