package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/omnisearch/omnisearch/internal/cli"
	"github.com/omnisearch/omnisearch/internal/config"
	"github.com/omnisearch/omnisearch/internal/executor"
	"github.com/omnisearch/omnisearch/internal/metrics"
	"github.com/omnisearch/omnisearch/internal/orchestrator"
	"github.com/omnisearch/omnisearch/internal/registry"
	"github.com/omnisearch/omnisearch/internal/tools"
	"github.com/omnisearch/omnisearch/internal/tools/hybridsearch"
	"github.com/omnisearch/omnisearch/internal/tools/searchstatus"
	"github.com/omnisearch/omnisearch/internal/transport"
	"github.com/sirupsen/logrus"
	ucli "github.com/urfave/cli/v2"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// parseLogLevel parses the LOG_LEVEL environment variable.
// Defaults to WarnLevel if not set or invalid.
func parseLogLevel() logrus.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}

func newLogger(stdioMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(parseLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if stdioMode {
		// Stdout carries the MCP protocol in stdio mode; logs must not.
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func buildOrchestrator(configPath string, logger *logrus.Logger) (*orchestrator.Orchestrator, *config.Config, error) {
	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		return nil, nil, err
	}
	o := orchestrator.Build(cfg, func(reg *registry.Registry, manager *transport.Manager, monitor *metrics.Monitor) orchestrator.ProviderSearcher {
		return executor.New(reg, manager, monitor, logger)
	}, logger)
	return o, cfg, nil
}

func main() {
	// Best-effort .env loading; absence is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &ucli.App{
		Name:    "omnisearch",
		Usage:   "Hybrid multi-provider search routing engine",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file",
				EnvVars: []string{config.ConfigPathEnvVar},
			},
		},
		Commands: []*ucli.Command{
			{
				Name:  "serve",
				Usage: "Serve the search engine over MCP",
				Flags: []ucli.Flag{
					&ucli.StringFlag{
						Name:    "transport",
						Aliases: []string{"t"},
						Value:   "stdio",
						Usage:   "Transport type (stdio or http)",
					},
					&ucli.StringFlag{
						Name:  "port",
						Value: "18080",
						Usage: "Port for the HTTP transport",
					},
					&ucli.StringFlag{
						Name:  "endpoint-path",
						Value: "/mcp",
						Usage: "Endpoint path for the HTTP transport",
					},
				},
				Action: func(c *ucli.Context) error {
					return runServe(ctx, c)
				},
			},
			{
				Name:      "search",
				Usage:     "Run one search query in-process",
				ArgsUsage: "<query>",
				Flags: []ucli.Flag{
					&ucli.StringFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Usage:   "Routing strategy to use",
					},
					&ucli.IntFlag{
						Name:    "max-results",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
					},
					&ucli.StringSliceFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   "Explicit provider id (repeatable); overrides the strategy",
					},
					&ucli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format (text or json)",
					},
				},
				Action: func(c *ucli.Context) error {
					return runSearch(ctx, c)
				},
			},
			{
				Name:  "status",
				Usage: "Show per-provider diagnostics",
				Flags: []ucli.Flag{
					&ucli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format (text or json)",
					},
				},
				Action: func(c *ucli.Context) error {
					return runStatus(c)
				},
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, c *ucli.Context) error {
	transportMode := c.String("transport")
	stdioMode := transportMode == "stdio"
	logger := newLogger(stdioMode)

	o, cfg, err := buildOrchestrator(c.String("config"), logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := o.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close provider connections")
		}
	}()

	srv := mcpserver.NewMCPServer("omnisearch", Version)
	registerTool(srv, hybridsearch.New(o, cfg), logger)
	registerTool(srv, searchstatus.New(o), logger)

	switch transportMode {
	case "stdio":
		logger.Info("Starting omnisearch MCP server on stdio")
		return mcpserver.ServeStdio(srv)
	case "http":
		addr := fmt.Sprintf(":%s", c.String("port"))
		httpServer := mcpserver.NewStreamableHTTPServer(srv,
			mcpserver.WithEndpointPath(c.String("endpoint-path")),
		)
		logger.WithField("addr", addr).Info("Starting omnisearch MCP server on HTTP")

		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.Start(addr)
		}()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return httpServer.Shutdown(context.Background())
		}
	default:
		return fmt.Errorf("unsupported transport: %s (expected stdio or http)", transportMode)
	}
}

// registerTool bridges the internal tool contract onto the MCP server.
func registerTool(srv *mcpserver.MCPServer, tool tools.Tool, logger *logrus.Logger) {
	srv.AddTool(tool.Definition(), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return tool.Execute(ctx, logger, request.GetArguments())
	})
}

func runSearch(ctx context.Context, c *ucli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("usage: omnisearch search <query>")
	}

	logger := newLogger(false)
	o, _, err := buildOrchestrator(c.String("config"), logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := o.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close provider connections")
		}
	}()

	runner := cli.NewRunner(o, outputFormat(c.String("format")))
	return runner.Search(ctx, orchestrator.Request{
		Query:      query,
		MaxResults: c.Int("max-results"),
		Strategy:   c.String("strategy"),
		Providers:  c.StringSlice("provider"),
	})
}

func runStatus(c *ucli.Context) error {
	logger := newLogger(false)
	o, _, err := buildOrchestrator(c.String("config"), logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := o.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close provider connections")
		}
	}()

	runner := cli.NewRunner(o, outputFormat(c.String("format")))
	return runner.Status()
}

func outputFormat(format string) cli.OutputFormat {
	if strings.EqualFold(format, "json") {
		return cli.OutputJSON
	}
	return cli.OutputText
}
