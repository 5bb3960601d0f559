// Package match fuzzy-matches publication records across data sources by
// normalized title-token overlap. Precision is favored over recall: a wrong
// citation count attached to a publication is worse than a missing one.
package match

import (
	"strings"

	"github.com/bbalet/stopwords"

	"scholar/api"
)

// Thresholds by source confidence. Exact normalized-title equality always
// matches regardless of threshold.
const (
	HighConfidenceThreshold = 0.8
	NoisySourceThreshold    = 0.7
)

// Match finds the candidate whose title best matches base. It returns the
// index of the highest-overlap candidate at or above threshold, or false if
// none qualifies.
func Match(base api.Publication, candidates []api.Publication, threshold float64) (int, bool) {
	baseNorm := NormalizeTitle(base.Title)
	if baseNorm == "" {
		return 0, false
	}
	baseTokens := tokenize(baseNorm)

	bestIdx, bestOverlap := -1, 0.0
	for i, candidate := range candidates {
		candNorm := NormalizeTitle(candidate.Title)
		if candNorm == "" {
			continue
		}

		if candNorm == baseNorm {
			return i, true
		}

		overlap := tokenOverlap(baseTokens, tokenize(candNorm))
		if overlap >= threshold && overlap > bestOverlap {
			bestIdx, bestOverlap = i, overlap
		}
	}

	if bestIdx < 0 {
		return 0, false
	}
	return bestIdx, true
}

// NormalizeTitle lowercases a title and strips everything that is not a
// letter or digit, collapsing runs of separators to single spaces.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastWasSpace := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasSpace = false
		default:
			if !lastWasSpace {
				b.WriteByte(' ')
				lastWasSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// tokenize splits a normalized title into discriminating tokens, dropping
// stopwords and short tokens that carry no signal.
func tokenize(normalized string) map[string]bool {
	tokens := make(map[string]bool)
	for _, token := range strings.Fields(stopwords.CleanString(normalized, "en", false)) {
		if len(token) > 3 {
			tokens[token] = true
		}
	}
	return tokens
}

// tokenOverlap is |common| / max(|a|, |b|). Dividing by the larger set
// penalizes candidates that merely contain the base title as a prefix.
func tokenOverlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	common := 0
	for token := range a {
		if b[token] {
			common++
		}
	}

	return float64(common) / float64(max(len(a), len(b)))
}
