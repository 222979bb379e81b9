package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/omnisearch/omnisearch/internal/transport"
)

// toolAdapter speaks the subprocess tool protocol: a "search" call whose
// result carries a results array.
type toolAdapter struct{}

type toolSearchResult struct {
	Results []toolResult `json:"results"`
}

type toolResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Snippet string `json:"snippet"`
}

func (toolAdapter) Invoke(ctx context.Context, handle transport.Handle, query string, maxResults int) ([]byte, error) {
	h, ok := handle.(*transport.ToolHandle)
	if !ok {
		return nil, fmt.Errorf("adapter %q requires a subprocess-tool provider, got %T", "tool", handle)
	}
	result, err := h.Call(ctx, "search", map[string]any{
		"query":       query,
		"max_results": maxResults,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (toolAdapter) Normalize(providerID, query string, raw []byte) []search.Result {
	var response toolSearchResult
	if err := json.Unmarshal(raw, &response); err != nil || response.Results == nil {
		// Some tools answer with a bare array of results.
		var list []toolResult
		if err := json.Unmarshal(raw, &list); err != nil || list == nil {
			return opaqueTextResult(providerID, raw)
		}
		response.Results = list
	}

	results := make([]search.Result, 0, len(response.Results))
	now := time.Now()
	for _, r := range response.Results {
		content := r.Content
		if content == "" {
			content = r.Snippet
		}
		results = append(results, search.Result{
			Title:     r.Title,
			URL:       r.URL,
			Content:   content,
			Provider:  providerID,
			Timestamp: now,
		})
	}
	return results
}
