package metrics_test

import (
	"testing"

	"scholar/api"
	"scholar/metrics"
)

func TestHIndex(t *testing.T) {
	cases := []struct {
		citations []int
		expected  int
	}{
		{[]int{10, 8, 5, 4, 3}, 4},
		{[]int{}, 0},
		{[]int{1, 1, 1}, 1},
		{[]int{25}, 1},
		{[]int{0, 0, 0}, 0},
		{[]int{3, 10, 8, 4, 5}, 4}, // order must not matter
		{[]int{-1, -1, 7, 7}, 2},   // unknown treated as zero
	}

	for _, tc := range cases {
		if got := metrics.HIndex(tc.citations); got != tc.expected {
			t.Fatalf("HIndex(%v) = %d, expected %d", tc.citations, got, tc.expected)
		}
	}
}

func TestTotalCitations(t *testing.T) {
	total := metrics.TotalCitations([]api.Count{10, api.Unknown, 5, 0})
	if total != 15 {
		t.Fatalf("expected 15, got %d", total)
	}
}

func TestTotalCitationsAllUnknown(t *testing.T) {
	total := metrics.TotalCitations([]api.Count{api.Unknown, api.Unknown})
	if total != api.Unknown {
		t.Fatalf("expected unknown total, got %d", total)
	}

	// A list of confirmed zeros is still not a known positive signal.
	if metrics.TotalCitations([]api.Count{0, 0}) != api.Unknown {
		t.Fatal("expected unknown total for all-zero counts")
	}
}

func TestCitationValues(t *testing.T) {
	values := metrics.CitationValues([]api.Publication{
		{Title: "a", CitationCount: 7},
		{Title: "b", CitationCount: api.Unknown},
		{Title: "c", CitationCount: 0},
	})
	if len(values) != 3 || values[0] != 7 || values[1] != 0 || values[2] != 0 {
		t.Fatalf("unexpected values %v", values)
	}
}
