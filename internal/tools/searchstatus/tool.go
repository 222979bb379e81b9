// Package searchstatus exposes the engine's diagnostic view as an MCP tool.
package searchstatus

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/omnisearch/omnisearch/internal/orchestrator"
	"github.com/omnisearch/omnisearch/internal/tools"
	"github.com/sirupsen/logrus"
)

// Tool reports per-provider invocation statistics and recent errors.
type Tool struct {
	orchestrator *orchestrator.Orchestrator
}

// New creates the status tool over an orchestrator.
func New(o *orchestrator.Orchestrator) *Tool {
	return &Tool{orchestrator: o}
}

// Definition returns the tool's definition for MCP registration.
func (t *Tool) Definition() mcp.Tool {
	return mcp.NewTool("search_status",
		mcp.WithDescription("Report search engine diagnostics: success rate, per-provider invocation counts, average latency, connection state, and recent errors."),
	)
}

// Execute returns the current diagnostic snapshot.
func (t *Tool) Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	status := t.orchestrator.Status()
	logger.WithFields(logrus.Fields{
		"total_queries": status.TotalQueries,
		"success_rate":  status.SuccessRate,
	}).Debug("Reporting search status")
	return tools.NewToolResultJSON(status)
}
