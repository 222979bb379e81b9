package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyURL(t *testing.T) {
	c := New(nil, nil)

	got := c.Classify("https://example.com/page")
	assert.Equal(t, "url", got.Type)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.Contains(t, got.Matched, "url")
}

func TestClassifyTechnical(t *testing.T) {
	c := New(nil, nil)

	got := c.Classify("golang context cancellation explained")
	assert.Equal(t, "technical", got.Type)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
}

func TestClassifyGeneralFallback(t *testing.T) {
	c := New(nil, nil)

	got := c.Classify("best coffee in melbourne")
	assert.Equal(t, TypeGeneral, got.Type)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
	assert.Empty(t, got.Matched)
}

func TestClassifyAccumulatesTags(t *testing.T) {
	c := New(nil, nil)

	// Matches both url (primary, higher priority) and news.
	got := c.Classify("latest news about https://example.com")
	assert.Equal(t, "url", got.Type)
	assert.Contains(t, got.Matched, "url")
	assert.Contains(t, got.Matched, "news")
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := New(map[string][]string{
		"zebra": {`\bzebra\b`},
		"alpha": {`\balpha\b`},
	}, nil)

	query := "alpha zebra golang https://example.com news today"
	first := c.Classify(query)
	for range 10 {
		assert.Equal(t, first, c.Classify(query))
	}
}

func TestConfiguredCategoryReplacesBuiltin(t *testing.T) {
	c := New(map[string][]string{
		"news": {`\bmoon landing\b`},
	}, nil)

	// The built-in news patterns no longer apply.
	got := c.Classify("latest headlines today")
	assert.Equal(t, TypeGeneral, got.Type)

	got = c.Classify("the moon landing anniversary")
	assert.Equal(t, "news", got.Type)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
}

func TestCustomCategoryConfidenceAndOrder(t *testing.T) {
	c := New(map[string][]string{
		"shopping": {`\bbuy\b`},
	}, nil)

	got := c.Classify("where to buy a mechanical keyboard")
	assert.Equal(t, "shopping", got.Type)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)

	// Built-in categories win over custom ones when both match.
	got = c.Classify("buy golang books")
	assert.Equal(t, "technical", got.Type)
	assert.Contains(t, got.Matched, "shopping")
}

func TestSuggestedProviders(t *testing.T) {
	c := New(nil, map[string][]string{
		"url": {"fetchTool", "ragBrowser"},
	})

	got := c.Classify("https://example.com/page")
	require.Equal(t, "url", got.Type)
	assert.Equal(t, []string{"fetchTool", "ragBrowser"}, got.Suggested)

	got = c.Classify("anything else entirely")
	assert.Empty(t, got.Suggested)
}
