package adapters

import (
	"context"
	"encoding/json"
	"time"

	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/omnisearch/omnisearch/internal/transport"
)

// searxngAdapter speaks the SearXNG JSON API: GET /search with a flat
// results array.
type searxngAdapter struct{}

type searxngResponse struct {
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

func (searxngAdapter) Invoke(ctx context.Context, handle transport.Handle, query string, maxResults int) ([]byte, error) {
	h, err := httpHandle(handle, "searxng")
	if err != nil {
		return nil, err
	}
	params := queryParams(
		"q", query,
		"format", "json",
		"categories", "general",
	)
	return h.Get(ctx, "/search", params)
}

func (searxngAdapter) Normalize(providerID, query string, raw []byte) []search.Result {
	var response searxngResponse
	if err := json.Unmarshal(raw, &response); err != nil || response.Results == nil {
		return opaqueTextResult(providerID, raw)
	}

	results := make([]search.Result, 0, len(response.Results))
	now := time.Now()
	for _, r := range response.Results {
		results = append(results, search.Result{
			Title:     r.Title,
			URL:       r.URL,
			Content:   r.Content,
			Provider:  providerID,
			Timestamp: now,
		})
	}
	return results
}
