// Package tools defines the MCP tool contract the engine exposes to chat and
// agent clients.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// Tool is the interface every MCP tool implementation must satisfy.
type Tool interface {
	// Definition returns the tool's definition for MCP registration.
	Definition() mcp.Tool

	// Execute runs the tool's logic with parsed arguments.
	Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error)
}

// NewToolResultJSON creates a tool result with indented JSON content.
func NewToolResultJSON(data any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
