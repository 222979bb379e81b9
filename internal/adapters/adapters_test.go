package adapters

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKnownAdapters(t *testing.T) {
	for _, id := range []string{"searxng", "brave", "tool", "webpage"} {
		adapter, err := Get(id)
		require.NoError(t, err, id)
		assert.NotNil(t, adapter, id)
		assert.True(t, Known(id))
	}

	_, err := Get("google")
	assert.ErrorContains(t, err, "unknown adapter")
	assert.False(t, Known("google"))
}

func TestRequiredKind(t *testing.T) {
	kind, ok := RequiredKind("tool")
	require.True(t, ok)
	assert.Equal(t, search.KindSubprocessTool, kind)

	kind, ok = RequiredKind("brave")
	require.True(t, ok)
	assert.Equal(t, search.KindDirectAPI, kind)

	_, ok = RequiredKind("missing")
	assert.False(t, ok)
}

func TestSearxngNormalize(t *testing.T) {
	raw := []byte(`{
		"results": [
			{"title": "Go", "url": "https://go.dev", "content": "The Go project"},
			{"title": "Go blog", "url": "https://go.dev/blog", "content": "Articles"}
		]
	}`)

	results := searxngAdapter{}.Normalize("searxng", "golang", raw)
	require.Len(t, results, 2)
	assert.Equal(t, "Go", results[0].Title)
	assert.Equal(t, "https://go.dev", results[0].URL)
	assert.Equal(t, "The Go project", results[0].Content)
	assert.Equal(t, "searxng", results[0].Provider)
	assert.False(t, results[0].Timestamp.IsZero())
}

func TestSearxngNormalizeOpaqueFallback(t *testing.T) {
	results := searxngAdapter{}.Normalize("searxng", "golang", []byte("service unavailable"))
	require.Len(t, results, 1)
	assert.Equal(t, "service unavailable", results[0].Content)
	assert.InDelta(t, fallbackRelevance, results[0].Relevance, 1e-9)
	assert.Empty(t, results[0].URL)
}

func TestSearxngNormalizeMissingResultsKey(t *testing.T) {
	// Valid JSON but not the expected shape still falls back.
	results := searxngAdapter{}.Normalize("searxng", "golang", []byte(`{"error": "rate limited"}`))
	require.Len(t, results, 1)
	assert.InDelta(t, fallbackRelevance, results[0].Relevance, 1e-9)
}

func TestBraveNormalizeUnescapesEntities(t *testing.T) {
	raw := []byte(`{
		"web": {
			"results": [
				{"title": "Tips &amp; tricks", "url": "https://example.com", "description": "Faster &lt;code&gt;"}
			]
		}
	}`)

	results := braveAdapter{}.Normalize("brave", "tips", raw)
	require.Len(t, results, 1)
	assert.Equal(t, "Tips & tricks", results[0].Title)
	assert.Equal(t, "Faster <code>", results[0].Content)
	assert.Equal(t, "brave", results[0].Provider)
}

func TestBraveNormalizeMissingWebSection(t *testing.T) {
	results := braveAdapter{}.Normalize("brave", "tips", []byte(`{"query": {"original": "tips"}}`))
	require.Len(t, results, 1)
	assert.InDelta(t, fallbackRelevance, results[0].Relevance, 1e-9)
}

func TestToolNormalizeObjectAndBareArray(t *testing.T) {
	object := []byte(`{"results": [{"title": "Doc", "url": "https://example.com/doc", "snippet": "An excerpt"}]}`)
	results := toolAdapter{}.Normalize("fetchTool", "doc", object)
	require.Len(t, results, 1)
	assert.Equal(t, "Doc", results[0].Title)
	// Snippet backfills an empty content field.
	assert.Equal(t, "An excerpt", results[0].Content)

	bare := []byte(`[{"title": "Doc", "url": "https://example.com/doc", "content": "Body"}]`)
	results = toolAdapter{}.Normalize("fetchTool", "doc", bare)
	require.Len(t, results, 1)
	assert.Equal(t, "Body", results[0].Content)
}

func TestToolNormalizeOpaqueFallback(t *testing.T) {
	results := toolAdapter{}.Normalize("fetchTool", "doc", []byte("plain text answer"))
	require.Len(t, results, 1)
	assert.Equal(t, "plain text answer", results[0].Content)
	assert.InDelta(t, fallbackRelevance, results[0].Relevance, 1e-9)
}

func TestWebpageNormalize(t *testing.T) {
	page := []byte(`<html><head>
		<title>Example Domain</title>
		<meta name="description" content="An illustrative page">
	</head><body><p>Ignored: meta description wins.</p></body></html>`)

	results := webpageAdapter{}.Normalize("fetch", "https://example.com", page)
	require.Len(t, results, 1)
	assert.Equal(t, "Example Domain", results[0].Title)
	assert.Equal(t, "https://example.com", results[0].URL)
	assert.Equal(t, "An illustrative page", results[0].Content)
}

func TestWebpageNormalizeBodyFallback(t *testing.T) {
	page := []byte(`<html><head><title>Plain</title></head>
		<body><script>var x = 1;</script><p>First   paragraph.</p> <p>Second.</p></body></html>`)

	results := webpageAdapter{}.Normalize("fetch", "https://example.com/plain", page)
	require.Len(t, results, 1)
	assert.Equal(t, "Plain", results[0].Title)
	assert.Equal(t, "First paragraph. Second.", results[0].Content)
	assert.NotContains(t, results[0].Content, "var x")
}

func TestOpaqueTextResultTruncates(t *testing.T) {
	raw := make([]byte, maxOpaqueContent+500)
	for i := range raw {
		raw[i] = 'x'
	}
	results := opaqueTextResult("p", raw)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Content, maxOpaqueContent)
}

func TestOpaqueTextResultTruncatesOnRuneBoundary(t *testing.T) {
	// The two-byte rune straddles the content cap; truncation must not leave
	// a dangling leading byte.
	raw := []byte(strings.Repeat("x", maxOpaqueContent-1) + "é")
	results := opaqueTextResult("p", raw)
	require.Len(t, results, 1)
	assert.True(t, utf8.ValidString(results[0].Content))
	assert.Equal(t, strings.Repeat("x", maxOpaqueContent-1), results[0].Content)
}

func TestTruncateContent(t *testing.T) {
	assert.Equal(t, "héllo", truncateContent("héllo", 10))
	assert.Equal(t, "h", truncateContent("héllo", 2))
	assert.Equal(t, "hé", truncateContent("héllo", 3))
	assert.True(t, utf8.ValidString(truncateContent(strings.Repeat("日", 100), 50)))
}
