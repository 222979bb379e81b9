// Package adapters maps each provider's native request/response shape onto
// the uniform search contract. Adapters form a small closed set selected by
// the provider's adapter identifier; supporting a new provider shape means
// adding a variant here, never branching inside existing ones.
package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/omnisearch/omnisearch/internal/transport"
)

// Adapter is the per-provider translation layer: Invoke performs the
// provider-specific call over an established handle, Normalize converts the
// raw payload into normalized results.
//
// Normalize is tolerant: a payload that is not the expected structure is
// treated as a single low-confidence opaque-text result rather than an
// error. Transport failures, by contrast, propagate from Invoke.
type Adapter interface {
	Invoke(ctx context.Context, handle transport.Handle, query string, maxResults int) ([]byte, error)
	Normalize(providerID, query string, raw []byte) []search.Result
}

var table = map[string]Adapter{
	"searxng": searxngAdapter{},
	"brave":   braveAdapter{},
	"tool":    toolAdapter{},
	"webpage": webpageAdapter{},
}

// Get returns the adapter registered under the given identifier.
func Get(id string) (Adapter, error) {
	adapter, ok := table[id]
	if !ok {
		return nil, fmt.Errorf("unknown adapter: %q", id)
	}
	return adapter, nil
}

// Known reports whether an adapter identifier is registered.
func Known(id string) bool {
	_, ok := table[id]
	return ok
}

// requiredKinds pins each adapter to the transport kind it can drive.
var requiredKinds = map[string]search.ProviderKind{
	"searxng": search.KindDirectAPI,
	"brave":   search.KindDirectAPI,
	"webpage": search.KindDirectAPI,
	"tool":    search.KindSubprocessTool,
}

// RequiredKind returns the provider kind an adapter needs.
func RequiredKind(id string) (search.ProviderKind, bool) {
	kind, ok := requiredKinds[id]
	return kind, ok
}

// fallbackRelevance marks results synthesised from an unparseable payload.
const fallbackRelevance = 0.1

// maxOpaqueContent bounds the content carried by an opaque-text fallback
// result.
const maxOpaqueContent = 2000

// opaqueTextResult wraps a raw payload as a single low-confidence result.
func opaqueTextResult(providerID string, raw []byte) []search.Result {
	content := truncateContent(string(raw), maxOpaqueContent)
	return []search.Result{{
		Content:   content,
		Provider:  providerID,
		Relevance: fallbackRelevance,
		Timestamp: time.Now(),
	}}
}

func httpHandle(handle transport.Handle, adapter string) (*transport.HTTPHandle, error) {
	h, ok := handle.(*transport.HTTPHandle)
	if !ok {
		return nil, fmt.Errorf("adapter %q requires a direct-api provider, got %T", adapter, handle)
	}
	return h, nil
}

// truncateContent caps a string at max bytes without splitting a rune.
func truncateContent(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func formatCount(maxResults int) string {
	return strconv.Itoa(maxResults)
}

func queryParams(pairs ...string) url.Values {
	params := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		params.Set(pairs[i], pairs[i+1])
	}
	return params
}
