// Package cli provides a direct command-line interface to the search engine,
// bypassing the MCP server entirely. The orchestrator is invoked in-process,
// so no server or network round-trip is needed.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/omnisearch/omnisearch/internal/orchestrator"
)

// OutputFormat controls how results are rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Runner executes CLI commands against the orchestrator.
type Runner struct {
	orchestrator *orchestrator.Orchestrator
	output       OutputFormat
	stdout       io.Writer
}

// NewRunner creates a Runner over the orchestrator with the given output
// format.
func NewRunner(o *orchestrator.Orchestrator, output OutputFormat) *Runner {
	return &Runner{orchestrator: o, output: output, stdout: os.Stdout}
}

// Search runs one query and prints the ranked results.
func (r *Runner) Search(ctx context.Context, req orchestrator.Request) error {
	response, err := r.orchestrator.HybridSearch(ctx, req)
	if err != nil {
		return err
	}

	if r.output == OutputJSON {
		return writeJSON(r.stdout, response)
	}

	heading := color.New(color.Bold)
	dim := color.New(color.Faint)

	_, _ = heading.Fprintf(r.stdout, "%d result(s) for %q", response.TotalResults, response.Query)
	_, _ = dim.Fprintf(r.stdout, "  [strategy: %s, providers: %v]\n\n", response.Strategy, response.ProvidersUsed)

	for i, result := range response.Results {
		title := result.Title
		if title == "" {
			title = "(untitled)"
		}
		_, _ = heading.Fprintf(r.stdout, "%d. %s\n", i+1, title)
		if result.URL != "" {
			_, _ = color.New(color.FgBlue).Fprintf(r.stdout, "   %s\n", result.URL)
		}
		if result.Content != "" {
			fmt.Fprintf(r.stdout, "   %s\n", firstLine(result.Content))
		}
		_, _ = dim.Fprintf(r.stdout, "   provider: %s, relevance: %.2f\n\n", result.Provider, result.Relevance)
	}

	for _, invErr := range response.Errors {
		_, _ = color.New(color.FgYellow).Fprintf(r.stdout, "warning: provider %s failed: %s\n", invErr.Provider, invErr.Message)
	}
	return nil
}

// Status prints the diagnostic snapshot.
func (r *Runner) Status() error {
	status := r.orchestrator.Status()

	if r.output == OutputJSON {
		return writeJSON(r.stdout, status)
	}

	fmt.Fprintf(r.stdout, "queries: %d  success rate: %.0f%%\n\n", status.TotalQueries, status.SuccessRate*100)

	ids := make([]string, 0, len(status.Providers))
	for id := range status.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	w := tabwriter.NewWriter(r.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tENABLED\tCONNECTED\tINVOCATIONS\tFAILURES\tAVG LATENCY")
	for _, id := range ids {
		ps := status.Providers[id]
		fmt.Fprintf(w, "%s\t%v\t%v\t%d\t%d\t%s\n", id, ps.Enabled, ps.Connected, ps.Invocations, ps.Failures, ps.AvgLatency)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(status.RecentErrors) > 0 {
		fmt.Fprintln(r.stdout, "\nRecent errors:")
		for _, msg := range status.RecentErrors {
			_, _ = color.New(color.FgYellow).Fprintf(r.stdout, "  %s\n", msg)
		}
	}
	return nil
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}
