package adapters

import (
	"context"
	"encoding/json"
	"html"
	"time"

	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/omnisearch/omnisearch/internal/transport"
)

// braveAdapter speaks the Brave Search API: GET /web/search with results
// nested under web.results.
type braveAdapter struct{}

type braveResponse struct {
	Web *braveWebResults `json:"web"`
}

type braveWebResults struct {
	Results []braveWebResult `json:"results"`
}

type braveWebResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (braveAdapter) Invoke(ctx context.Context, handle transport.Handle, query string, maxResults int) ([]byte, error) {
	h, err := httpHandle(handle, "brave")
	if err != nil {
		return nil, err
	}
	params := queryParams(
		"q", query,
		"count", formatCount(maxResults),
	)
	return h.Get(ctx, "/web/search", params)
}

func (braveAdapter) Normalize(providerID, query string, raw []byte) []search.Result {
	var response braveResponse
	if err := json.Unmarshal(raw, &response); err != nil || response.Web == nil {
		return opaqueTextResult(providerID, raw)
	}

	results := make([]search.Result, 0, len(response.Web.Results))
	now := time.Now()
	for _, r := range response.Web.Results {
		results = append(results, search.Result{
			Title:     html.UnescapeString(r.Title),
			URL:       r.URL,
			Content:   html.UnescapeString(r.Description),
			Provider:  providerID,
			Timestamp: now,
		})
	}
	return results
}
