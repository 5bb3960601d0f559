// Package metrics derives bibliometric indicators from per-publication
// citation counts.
package metrics

import (
	"sort"

	"scholar/api"
)

// HIndex is the largest h such that at least h publications have h or more
// citations each. Unknown counts are treated as zero.
func HIndex(citations []int) int {
	sorted := make([]int, 0, len(citations))
	for _, c := range citations {
		if c < 0 {
			c = 0
		}
		sorted = append(sorted, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	h := 0
	for i, c := range sorted {
		if c >= i+1 {
			h = i + 1
		} else {
			break
		}
	}
	return h
}

// TotalCitations sums known counts, treating unknown entries as zero. The
// total itself is only known if at least one entry carries a known positive
// value; a list of purely unknown counts does not produce a confident zero.
func TotalCitations(citations []api.Count) api.Count {
	total := api.Count(0)
	known := false
	for _, c := range citations {
		if c > 0 {
			known = true
			total += c
		}
	}
	if !known {
		return api.Unknown
	}
	return total
}

// CitationValues extracts the citation counts of a publication list for
// h-index computation, mapping unknown to zero.
func CitationValues(publications []api.Publication) []int {
	values := make([]int, 0, len(publications))
	for _, pub := range publications {
		if pub.CitationCount.Known() {
			values = append(values, int(pub.CitationCount))
		} else {
			values = append(values, 0)
		}
	}
	return values
}
