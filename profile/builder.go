// Package profile assembles a researcher's aggregated profile from the
// registry and the enrichment pipeline.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"scholar/api"
	"scholar/cache"
	"scholar/enrich"
	"scholar/match"
	"scholar/monitoring"
	"scholar/orcid"
	"scholar/pool"
)

const (
	maxKeywords = 5

	// Per-work detail fetches run in a small pool; a slow detail lookup
	// falls back to summary fields rather than stalling the profile.
	detailWorkers = 4
	detailTimeout = 8 * time.Second
)

// Enricher attaches citation data and metrics to the extracted publications.
type Enricher interface {
	Enrich(ctx context.Context, authorName string, base []api.Publication, totalCitations, hIndex api.Count) enrich.Result
}

type Builder struct {
	registry orcid.Registry
	enricher Enricher
	cache    *cache.Cache[api.ResearcherProfile]
	logger   *slog.Logger
}

func NewBuilder(registry orcid.Registry, enricher Enricher, profileCache *cache.Cache[api.ResearcherProfile]) *Builder {
	return &Builder{
		registry: registry,
		enricher: enricher,
		cache:    profileCache,
		logger:   slog.With("logger", "profile"),
	}
}

// GetProfile builds the aggregated profile for a registry id. The person
// record is required: its absence is a NotFound for the whole profile.
// Works, employments, and educations degrade to empty sections on failure.
func (b *Builder) GetProfile(ctx context.Context, id string) (api.ResearcherProfile, error) {
	if b.cache != nil {
		if cached := b.cache.Lookup(id); cached != nil {
			monitoring.CacheLookups.WithLabelValues("profile", "hit").Inc()
			return *cached, nil
		}
		monitoring.CacheLookups.WithLabelValues("profile", "miss").Inc()
	}

	parts := b.fetchParts(ctx, id)
	if parts.personErr != nil {
		if errors.Is(parts.personErr, api.ErrNotFound) {
			return api.ResearcherProfile{}, api.ErrNotFound
		}
		return api.ResearcherProfile{}, parts.personErr
	}

	publications := b.extractPublications(ctx, id, parts.works)

	enriched := b.enricher.Enrich(ctx, parts.person.DisplayName, publications, api.Unknown, api.Unknown)

	result := api.ResearcherProfile{
		RegistryId:     id,
		DisplayName:    parts.person.DisplayName,
		Country:        countryOrUnknown(parts.person.Country),
		Email:          parts.person.Email,
		Website:        parts.person.Website,
		Biography:      parts.person.Biography,
		Keywords:       truncateKeywords(parts.person.Keywords),
		Publications:   dedupByTitle(enriched.Publications),
		TotalCitations: enriched.TotalCitations,
		HIndex:         enriched.HIndex,
		Employments:    mostRecentFirst(parts.employments),
		Educations:     parts.educations,
		EnhancedWith:   enriched.SourcesUsed,
	}

	if b.cache != nil {
		b.cache.Update(id, result)
	}

	return result, nil
}

type profileParts struct {
	person      orcid.Person
	personErr   error
	works       []orcid.WorkSummary
	employments []api.Affiliation
	educations  []api.Affiliation
}

// fetchParts issues the four registry lookups concurrently and waits for all
// of them to settle. Only the person error is preserved; the optional
// sections log and degrade.
func (b *Builder) fetchParts(ctx context.Context, id string) profileParts {
	parts := profileParts{
		employments: []api.Affiliation{},
		educations:  []api.Affiliation{},
	}

	settled := pool.SettleAll(func(fetch func() error) (struct{}, error) {
		return struct{}{}, fetch()
	}, []func() error{
		func() error {
			person, err := b.registry.GetPerson(ctx, id)
			parts.person, parts.personErr = person, err
			return err
		},
		func() error {
			works, err := b.registry.GetWorks(ctx, id)
			if err == nil {
				parts.works = works
			}
			return err
		},
		func() error {
			employments, err := b.registry.GetEmployments(ctx, id)
			if err == nil {
				parts.employments = convertAffiliations(employments)
			}
			return err
		},
		func() error {
			educations, err := b.registry.GetEducations(ctx, id)
			if err == nil {
				parts.educations = convertAffiliations(educations)
			}
			return err
		},
	}, 4)

	for i, task := range settled {
		if task.Error != nil && i != 0 {
			b.logger.Error("optional profile section failed", "registry_id", id, "section", i, "error", task.Error)
		}
	}

	return parts
}

// extractPublications resolves each work reference to its full detail when
// possible, falling back to the summary fields. A work is never dropped
// because its detail lookup failed.
func (b *Builder) extractPublications(ctx context.Context, id string, works []orcid.WorkSummary) []api.Publication {
	details := pool.SettleAll(func(work orcid.WorkSummary) (orcid.WorkSummary, error) {
		detailCtx, cancel := context.WithTimeout(ctx, detailTimeout)
		defer cancel()

		detail, err := b.registry.GetWorkDetail(detailCtx, id, work.PutCode)
		if err != nil {
			return work, nil // summary fields are the fallback
		}
		return mergeWork(work, detail), nil
	}, works, detailWorkers)

	publications := make([]api.Publication, 0, len(works))
	for _, task := range details {
		work := task.Result
		if work.Title == "" {
			continue
		}
		publications = append(publications, api.Publication{
			Title:         work.Title,
			Year:          yearOrCurrent(work.Year),
			Venue:         work.Venue,
			CitationCount: api.Unknown,
			Doi:           work.Doi,
		})
	}

	return publications
}

// mergeWork prefers detail fields, keeping the summary's where the detail is
// sparse.
func mergeWork(summary, detail orcid.WorkSummary) orcid.WorkSummary {
	merged := detail
	merged.PutCode = summary.PutCode
	if merged.Title == "" {
		merged.Title = summary.Title
	}
	if merged.Venue == "" {
		merged.Venue = summary.Venue
	}
	if merged.Year == 0 {
		merged.Year = summary.Year
	}
	if merged.Doi == "" {
		merged.Doi = summary.Doi
	}
	return merged
}

func convertAffiliations(records []orcid.AffiliationRecord) []api.Affiliation {
	affiliations := make([]api.Affiliation, 0, len(records))
	for _, record := range records {
		affiliations = append(affiliations, api.Affiliation{
			Organization: record.Organization,
			Role:         record.Role,
			StartYear:    record.StartYear,
			EndYear:      record.EndYear,
		})
	}
	return affiliations
}

// mostRecentFirst orders employments by end year descending, with ongoing
// positions (no end year) first, then by start year descending.
func mostRecentFirst(affiliations []api.Affiliation) []api.Affiliation {
	sorted := make([]api.Affiliation, len(affiliations))
	copy(sorted, affiliations)

	sort.SliceStable(sorted, func(i, j int) bool {
		endI, endJ := sorted[i].EndYear, sorted[j].EndYear
		if (endI == 0) != (endJ == 0) {
			return endI == 0
		}
		if endI != endJ {
			return endI > endJ
		}
		return sorted[i].StartYear > sorted[j].StartYear
	})

	return sorted
}

// dedupByTitle keeps the first occurrence of each normalized title.
func dedupByTitle(publications []api.Publication) []api.Publication {
	seen := make(map[string]bool, len(publications))
	unique := make([]api.Publication, 0, len(publications))
	for _, pub := range publications {
		norm := match.NormalizeTitle(pub.Title)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		unique = append(unique, pub)
	}
	return unique
}

func countryOrUnknown(country string) string {
	if country == "" {
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

func yearOrCurrent(year int) int {
	if year <= 0 {
		return time.Now().Year()
	}
	return year
}
