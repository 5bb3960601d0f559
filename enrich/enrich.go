// Package enrich merges bibliometric-source data onto registry publications
// and fills in derived metrics. Sources are strictly optional: the
// orchestrator returns the best answer it can assemble from whichever
// sources respond in time.
package enrich

import (
	"context"
	"log/slog"
	"time"

	"scholar/api"
	"scholar/biblio"
	"scholar/match"
	"scholar/metrics"
	"scholar/pool"
)

// Publication lists are capped so a single prolific author cannot blow up
// response sizes and downstream rendering.
const maxPublications = 50

const perSourceTimeout = 10 * time.Second

const maxSourceWorkers = 4

type Result struct {
	Publications   []api.Publication
	TotalCitations api.Count
	HIndex         api.Count
	SourcesUsed    []string
}

type Orchestrator struct {
	sources []biblio.Source
	logger  *slog.Logger
}

func NewOrchestrator(sources ...biblio.Source) *Orchestrator {
	return &Orchestrator{sources: sources, logger: slog.With("logger", "enrich")}
}

// Enrich queries every source for authorName concurrently, merges matched
// records onto the base publications, and computes any still-unknown
// metrics. Individual source failures never fail the call; if every source
// comes back empty the base data is returned untouched with no sources
// recorded.
func (o *Orchestrator) Enrich(ctx context.Context, authorName string, base []api.Publication, totalCitations, hIndex api.Count) Result {
	type sourceAnswer struct {
		name         string
		threshold    float64
		publications []api.Publication
	}

	answers := pool.SettleAll(func(source biblio.Source) (sourceAnswer, error) {
		sourceCtx, cancel := context.WithTimeout(ctx, perSourceTimeout)
		defer cancel()

		return sourceAnswer{
			name:         source.Name(),
			threshold:    source.MatchThreshold(),
			publications: source.SearchByAuthor(sourceCtx, authorName),
		}, nil
	}, o.sources, maxSourceWorkers)

	merged := make([]api.Publication, len(base))
	copy(merged, base)

	sourcesUsed := make([]string, 0, len(o.sources))

	// Answers arrive in source-declaration order, which keeps merging and
	// seeding deterministic for identical upstream responses.
	for _, answer := range answers {
		if answer.Error != nil || len(answer.Result.publications) == 0 {
			continue
		}
		candidates := answer.Result.publications

		if len(merged) == 0 {
			merged = capPublications(candidates)
			sourcesUsed = append(sourcesUsed, answer.Result.name)
			o.logger.Info("seeded publications from source", "source", answer.Result.name, "author", authorName, "count", len(merged))
			continue
		}

		contributed := false
		for i := range merged {
			idx, ok := match.Match(merged[i], candidates, answer.Result.threshold)
			if !ok {
				continue
			}
			if mergeRecord(&merged[i], candidates[idx]) {
				contributed = true
			}
		}

		if contributed {
			sourcesUsed = append(sourcesUsed, answer.Result.name)
		}
	}

	if len(sourcesUsed) > 0 {
		if !totalCitations.Known() {
			counts := make([]api.Count, 0, len(merged))
			for _, pub := range merged {
				counts = append(counts, pub.CitationCount)
			}
			totalCitations = metrics.TotalCitations(counts)
		}
		if !hIndex.Known() {
			hIndex = api.Count(metrics.HIndex(metrics.CitationValues(merged)))
		}
	}

	return Result{
		Publications:   capPublications(merged),
		TotalCitations: totalCitations,
		HIndex:         hIndex,
		SourcesUsed:    sourcesUsed,
	}
}

// mergeRecord copies fields the matched candidate knows and the base record
// does not. A known citation count is never overwritten, in particular not
// back to unknown. Reports whether anything changed.
func mergeRecord(base *api.Publication, candidate api.Publication) bool {
	changed := false

	if !base.CitationCount.Known() && candidate.CitationCount.Known() {
		base.CitationCount = candidate.CitationCount
		changed = true
	}
	if base.Venue == "" && candidate.Venue != "" {
		base.Venue = candidate.Venue
		changed = true
	}
	if base.Doi == "" && candidate.Doi != "" {
		base.Doi = candidate.Doi
		changed = true
	}

	return changed
}

func capPublications(publications []api.Publication) []api.Publication {
	if len(publications) > maxPublications {
		return publications[:maxPublications]
	}
	return publications
}
