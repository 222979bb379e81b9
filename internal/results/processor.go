// Package results post-processes merged provider output: quality filtering,
// similarity-based deduplication, and relevance ranking, applied in that
// fixed order.
package results

import (
	"sort"
	"strings"

	"github.com/omnisearch/omnisearch/internal/search"
)

// Relevance score weights. The split is a tunable inherited from the
// original system, not a semantically load-bearing constant.
const (
	titleWeight   = 0.4
	contentWeight = 0.3
	urlWeight     = 0.2
)

// Processor filters, deduplicates, and ranks results.
type Processor struct {
	minContentLength    int
	similarityThreshold float64
}

// NewProcessor creates a processor. minContentLength of 0 disables the
// quality filter; similarityThreshold is the title-word-overlap ratio above
// which two results are duplicates.
func NewProcessor(minContentLength int, similarityThreshold float64) *Processor {
	return &Processor{
		minContentLength:    minContentLength,
		similarityThreshold: similarityThreshold,
	}
}

// Process applies quality filtering, deduplication, and ranking. Truncation
// to the requested result count is the caller's concern. Process is
// idempotent: running it on its own output is a no-op.
func (p *Processor) Process(results []search.Result, query string) []search.Result {
	filtered := p.filter(results)
	deduped := p.dedupe(filtered)
	return p.rank(deduped, query)
}

// filter drops results whose content is shorter than the configured minimum.
func (p *Processor) filter(results []search.Result) []search.Result {
	if p.minContentLength <= 0 {
		return results
	}
	kept := make([]search.Result, 0, len(results))
	for _, r := range results {
		if len(r.Content) >= p.minContentLength {
			kept = append(kept, r)
		}
	}
	return kept
}

// dedupe walks results in arrival order, keeping the first occurrence of
// each duplicate group. Two results are duplicates when their URLs are
// identical (both non-empty) or their title word overlap exceeds the
// threshold.
func (p *Processor) dedupe(results []search.Result) []search.Result {
	kept := make([]search.Result, 0, len(results))
	for _, candidate := range results {
		duplicate := false
		for _, existing := range kept {
			if p.isDuplicate(candidate, existing) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func (p *Processor) isDuplicate(a, b search.Result) bool {
	if a.URL != "" && b.URL != "" && a.URL == b.URL {
		return true
	}
	return titleOverlap(a.Title, b.Title) > p.similarityThreshold
}

// titleOverlap computes shared words divided by the larger title's word
// count. Empty titles never match.
func titleOverlap(a, b string) float64 {
	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		setA[w] = true
	}
	shared := 0
	seen := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		if setA[w] && !seen[w] {
			shared++
			seen[w] = true
		}
	}

	larger := len(wordsA)
	if len(wordsB) > larger {
		larger = len(wordsB)
	}
	return float64(shared) / float64(larger)
}

// rank scores each result by query presence in title, content, and URL, and
// sorts descending by score. The sort is stable: equal scores keep arrival
// order.
func (p *Processor) rank(results []search.Result, query string) []search.Result {
	needle := strings.ToLower(query)
	ranked := make([]search.Result, len(results))
	copy(ranked, results)

	for i := range ranked {
		score := 0.0
		if needle != "" {
			if strings.Contains(strings.ToLower(ranked[i].Title), needle) {
				score += titleWeight
			}
			if strings.Contains(strings.ToLower(ranked[i].Content), needle) {
				score += contentWeight
			}
			if strings.Contains(strings.ToLower(ranked[i].URL), needle) {
				score += urlWeight
			}
		}
		ranked[i].Relevance = score
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Relevance > ranked[j].Relevance
	})
	return ranked
}
