package adapters

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/omnisearch/omnisearch/internal/transport"
)

// webpageAdapter fetches a URL-shaped query directly and normalizes the page
// into a single result. This backs fetch-style providers that answer "search"
// for a URL by retrieving the page itself.
type webpageAdapter struct{}

// maxPageExcerpt bounds the body text carried in the result content.
const maxPageExcerpt = 1500

func (webpageAdapter) Invoke(ctx context.Context, handle transport.Handle, query string, maxResults int) ([]byte, error) {
	h, err := httpHandle(handle, "webpage")
	if err != nil {
		return nil, err
	}

	target := strings.TrimSpace(query)
	parsed, err := url.Parse(target)
	if err != nil || !parsed.IsAbs() {
		return nil, fmt.Errorf("webpage adapter requires a URL query, got %q", query)
	}
	return h.GetURL(ctx, target)
}

func (webpageAdapter) Normalize(providerID, query string, raw []byte) []search.Result {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return opaqueTextResult(providerID, raw)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	content, _ := doc.Find(`meta[name="description"]`).Attr("content")
	content = strings.TrimSpace(content)
	if content == "" {
		doc.Find("script, style, noscript").Remove()
		content = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	}
	content = truncateContent(content, maxPageExcerpt)

	if title == "" && content == "" {
		return opaqueTextResult(providerID, raw)
	}

	return []search.Result{{
		Title:     title,
		URL:       strings.TrimSpace(query),
		Content:   content,
		Provider:  providerID,
		Timestamp: time.Now(),
	}}
}
