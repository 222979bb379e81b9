package results

import (
	"testing"

	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityFilterDropsShortContent(t *testing.T) {
	p := NewProcessor(10, 0.8)

	out := p.Process([]search.Result{
		{Title: "keep", Content: "long enough content here"},
		{Title: "drop", Content: "short"},
	}, "query")

	require.Len(t, out, 1)
	assert.Equal(t, "keep", out[0].Title)
}

func TestQualityFilterDisabledByDefault(t *testing.T) {
	p := NewProcessor(0, 0.8)

	out := p.Process([]search.Result{{Title: "a", Content: ""}}, "q")
	assert.Len(t, out, 1)
}

func TestDedupeByURL(t *testing.T) {
	p := NewProcessor(0, 0.8)

	out := p.Process([]search.Result{
		{Title: "first occurrence", URL: "https://example.com/a", Content: "x"},
		{Title: "totally different title", URL: "https://example.com/a", Content: "y"},
		{Title: "other page", URL: "https://example.com/b", Content: "z"},
	}, "nomatch")

	require.Len(t, out, 2)
	assert.Equal(t, "first occurrence", out[0].Title)
	assert.Equal(t, "other page", out[1].Title)
}

func TestDedupeByTitleOverlap(t *testing.T) {
	p := NewProcessor(0, 0.8)

	out := p.Process([]search.Result{
		{Title: "Go Concurrency Patterns Explained"},
		{Title: "Go Concurrency Patterns Explained Again"}, // 4/5 = 0.8, not above threshold
		{Title: "go concurrency patterns explained"},       // 4/4 = 1.0, duplicate
	}, "nomatch")

	require.Len(t, out, 2)
}

func TestEmptyTitlesNeverMatch(t *testing.T) {
	p := NewProcessor(0, 0.8)

	out := p.Process([]search.Result{
		{Content: "a"},
		{Content: "b"},
	}, "nomatch")
	assert.Len(t, out, 2)
}

func TestRankingWeights(t *testing.T) {
	p := NewProcessor(0, 0.8)

	out := p.Process([]search.Result{
		{Title: "nothing relevant", Content: "nope", URL: "https://x.test/1"},
		{Title: "all about golang", Content: "golang guide", URL: "https://x.test/golang"},
		{Title: "irrelevant", Content: "mentions golang once", URL: "https://x.test/2"},
	}, "golang")

	require.Len(t, out, 3)
	assert.Equal(t, "all about golang", out[0].Title)
	assert.InDelta(t, 0.9, out[0].Relevance, 1e-9)
	assert.InDelta(t, 0.3, out[1].Relevance, 1e-9)
	assert.InDelta(t, 0.0, out[2].Relevance, 1e-9)
}

func TestRankingIsStable(t *testing.T) {
	p := NewProcessor(0, 0.8)

	input := []search.Result{
		{Title: "alpha result", Content: "no match"},
		{Title: "beta entry", Content: "no match"},
		{Title: "gamma item", Content: "no match"},
	}
	out := p.Process(input, "zzz")

	require.Len(t, out, 3)
	assert.Equal(t, "alpha result", out[0].Title)
	assert.Equal(t, "beta entry", out[1].Title)
	assert.Equal(t, "gamma item", out[2].Title)
}

func TestProcessIsIdempotent(t *testing.T) {
	p := NewProcessor(5, 0.8)

	input := []search.Result{
		{Title: "golang tutorial", Content: "a golang walkthrough", URL: "https://x.test/go"},
		{Title: "golang tutorial", Content: "duplicate of the above", URL: "https://x.test/go"},
		{Title: "short", Content: "tiny"},
		{Title: "unrelated article", Content: "nothing to see here"},
	}

	once := p.Process(input, "golang")
	twice := p.Process(once, "golang")
	assert.Equal(t, once, twice)
}
