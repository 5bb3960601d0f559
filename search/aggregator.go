// Package search turns free-text researcher queries into ranked candidate
// lists, coordinating the registry, the person cache, and enrichment.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"scholar/api"
	"scholar/cache"
	"scholar/enrich"
	"scholar/monitoring"
	"scholar/orcid"
	"scholar/pool"
)

var ErrSearchFailed = errors.New("error performing search")

const (
	// Registry rows requested per strategy.
	searchRows = 30

	// Strategy 2 kicks in when the country-scoped query finds fewer
	// candidates than this.
	minCandidates = 5

	// Candidates are processed in small concurrent batches to bound
	// outstanding registry and source calls.
	candidateWorkers = 4

	maxResults  = 20
	maxKeywords = 5
)

// Enricher attaches citation and publication counts to a candidate.
type Enricher interface {
	Enrich(ctx context.Context, authorName string, base []api.Publication, totalCitations, hIndex api.Count) enrich.Result
}

type Aggregator struct {
	registry    orcid.Registry
	enricher    Enricher
	personCache *cache.Cache[orcid.Person]
	resultCache *cache.Cache[[]api.ResearcherCandidate]
	logger      *slog.Logger
}

func NewAggregator(registry orcid.Registry, enricher Enricher, personCache *cache.Cache[orcid.Person], resultCache *cache.Cache[[]api.ResearcherCandidate]) *Aggregator {
	return &Aggregator{
		registry:    registry,
		enricher:    enricher,
		personCache: personCache,
		resultCache: resultCache,
		logger:      slog.With("logger", "search"),
	}
}

// Search executes a name or keyword query, optionally filtered by country,
// and returns ranked candidates. Enrichment failures degrade individual
// candidates; only a registry failure across every strategy surfaces as an
// error, so callers can distinguish "no matches" from "search broken".
func (a *Aggregator) Search(ctx context.Context, query, searchType, country string) ([]api.ResearcherCandidate, error) {
	clause, err := buildClause(query, searchType)
	if err != nil {
		return nil, err
	}

	cacheKey := resultCacheKey(query, searchType, country)
	if a.resultCache != nil {
		if cached := a.resultCache.Lookup(cacheKey); cached != nil {
			monitoring.CacheLookups.WithLabelValues("search_result", "hit").Inc()
			return *cached, nil
		}
		monitoring.CacheLookups.WithLabelValues("search_result", "miss").Inc()
	}

	hits, err := a.collectHits(ctx, clause, country)
	if err != nil {
		return nil, err
	}

	candidates := a.processCandidates(ctx, hits, country)
	ranked := Rank(candidates, maxResults)

	if a.resultCache != nil {
		a.resultCache.Update(cacheKey, ranked)
	}

	return ranked, nil
}

func buildClause(query, searchType string) (orcid.Clause, error) {
	var clause orcid.Clause
	switch searchType {
	case api.SearchTypeName:
		clause = nameClause(query)
	case api.SearchTypeKeywords:
		clause = keywordClause(query)
	default:
		return nil, fmt.Errorf("invalid search type %q", searchType)
	}

	if clause == nil {
		return nil, errors.New("empty query")
	}
	return clause, nil
}

func resultCacheKey(query, searchType, country string) string {
	return searchType + "|" + strings.Join(strings.Fields(strings.ToLower(query)), " ") + "|" + strings.ToUpper(strings.TrimSpace(country))
}

// collectHits runs the query strategies in order: country-scoped, then
// general if the first round came up short, then a plain last-resort query
// if both raised.
func (a *Aggregator) collectHits(ctx context.Context, clause orcid.Clause, country string) ([]orcid.SearchHit, error) {
	var hits []orcid.SearchHit
	var strategyErrs []error

	if country != "" {
		scoped, err := a.registry.SearchByQuery(ctx, orcid.Render(orcid.And{clause, countryClause(country)}), searchRows, 0)
		if err != nil {
			a.logger.Error("country-scoped search failed", "country", country, "error", err)
			strategyErrs = append(strategyErrs, err)
		} else {
			hits = scoped
		}
	}

	if len(hits) < minCandidates {
		general, err := a.registry.SearchByQuery(ctx, orcid.Render(clause), searchRows, 0)
		if err != nil {
			a.logger.Error("general search failed", "error", err)
			strategyErrs = append(strategyErrs, err)
		} else {
			hits = mergeHits(hits, general)
		}
	}

	triedStrategies := 1
	if country != "" {
		triedStrategies = 2
	}

	if len(strategyErrs) == triedStrategies {
		// Both strategies raised; one plain query as a last resort.
		plain, err := a.registry.SearchByQuery(ctx, orcid.Render(clause), searchRows, 0)
		if err != nil {
			a.logger.Error("last-resort search failed", "error", err)
			return nil, ErrSearchFailed
		}
		hits = plain
	}

	return hits, nil
}

func mergeHits(existing, incoming []orcid.SearchHit) []orcid.SearchHit {
	seen := make(map[string]bool, len(existing))
	for _, hit := range existing {
		seen[hit.RegistryId] = true
	}

	for _, hit := range incoming {
		if !seen[hit.RegistryId] {
			seen[hit.RegistryId] = true
			existing = append(existing, hit)
		}
	}
	return existing
}

// processCandidates resolves each raw hit into a candidate: minimal person
// lookup (cached), country post-filter, then enrichment for counts. Hits are
// settled in submission order so discovery order survives as the ranking
// tie-break.
func (a *Aggregator) processCandidates(ctx context.Context, hits []orcid.SearchHit, country string) []api.ResearcherCandidate {
	settled := pool.SettleAll(func(hit orcid.SearchHit) (*api.ResearcherCandidate, error) {
		return a.processCandidate(ctx, hit, country), nil
	}, hits, candidateWorkers)

	candidates := make([]api.ResearcherCandidate, 0, len(hits))
	for _, task := range settled {
		if task.Result != nil {
			candidates = append(candidates, *task.Result)
		}
	}
	return candidates
}

func (a *Aggregator) processCandidate(ctx context.Context, hit orcid.SearchHit, country string) *api.ResearcherCandidate {
	person := a.lookupPerson(ctx, hit)

	if country != "" && !countryMatches(person.Country, country) {
		return nil
	}

	candidate := api.ResearcherCandidate{
		RegistryId:       hit.RegistryId,
		DisplayName:      person.DisplayName,
		Country:          countryOrUnknown(person.Country),
		Keywords:         truncateKeywords(person.Keywords),
		CitationCount:    api.Unknown,
		PublicationCount: api.Unknown,
	}

	enriched := a.enricher.Enrich(ctx, candidate.DisplayName, nil, api.Unknown, api.Unknown)
	candidate.CitationCount = enriched.TotalCitations
	if len(enriched.SourcesUsed) > 0 {
		candidate.PublicationCount = api.Count(len(enriched.Publications))
	}

	return &candidate
}

// lookupPerson fetches the minimal profile for a hit, preferring the shared
// person cache. A failed lookup degrades to the summary fields already
// present in the hit.
func (a *Aggregator) lookupPerson(ctx context.Context, hit orcid.SearchHit) orcid.Person {
	if a.personCache != nil {
		if cached := a.personCache.Lookup(hit.RegistryId); cached != nil {
			monitoring.CacheLookups.WithLabelValues("person", "hit").Inc()
			return *cached
		}
		monitoring.CacheLookups.WithLabelValues("person", "miss").Inc()
	}

	person, err := a.registry.GetPerson(ctx, hit.RegistryId)
	if err != nil {
		a.logger.Error("person lookup failed, using search summary", "registry_id", hit.RegistryId, "error", err)
		return orcid.Person{RegistryId: hit.RegistryId, DisplayName: hit.DisplayName}
	}

	if person.DisplayName == "" {
		person.DisplayName = hit.DisplayName
	}

	if a.personCache != nil {
		a.personCache.Update(hit.RegistryId, person)
	}

	return person
}

func countryOrUnknown(country string) string {
	if strings.TrimSpace(country) == "" {
		return "unknown"
	}
	return country
}

func truncateKeywords(keywords []string) []string {
	if keywords == nil {
		keywords = []string{}
	}
	if len(keywords) > maxKeywords {
		return keywords[:maxKeywords]
	}
	return keywords
}

// Rank sorts candidates by citation count, then publication count, with
// discovery order breaking remaining ties, assigns dense 1-based ranks, and
// truncates to limit.
func Rank(candidates []api.ResearcherCandidate, limit int) []api.ResearcherCandidate {
	ranked := make([]api.ResearcherCandidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].CitationCount != ranked[j].CitationCount {
			return ranked[i].CitationCount > ranked[j].CitationCount
		}
		return ranked[i].PublicationCount > ranked[j].PublicationCount
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}
