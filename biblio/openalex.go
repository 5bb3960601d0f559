package biblio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"scholar/api"
	"scholar/match"
)

// OpenAlex allows ~10 requests per second for polite-pool clients.
const openAlexSpacing = 110 * time.Millisecond

type OpenAlex struct {
	client  *resty.Client
	limiter *rate.Limiter
	cache   *AuthorCache
	mailto  string
	logger  *slog.Logger
}

func NewOpenAlex(baseUrl, mailto string, authorCache *AuthorCache) *OpenAlex {
	return &OpenAlex{
		client:  newSourceClient(baseUrl, api.OpenAlexSource, 10*time.Second),
		limiter: rate.NewLimiter(rate.Every(openAlexSpacing), 1),
		cache:   authorCache,
		mailto:  mailto,
		logger:  slog.With("logger", "openalex"),
	}
}

func (oa *OpenAlex) Name() string {
	return api.OpenAlexSource
}

func (oa *OpenAlex) MatchThreshold() float64 {
	return match.HighConfidenceThreshold
}

func (oa *OpenAlex) SearchByAuthor(ctx context.Context, authorName string) []api.Publication {
	return cachedSearch(ctx, api.OpenAlexSource, authorName, oa.cache, oa.limiter, oa.logger,
		func(ctx context.Context) ([]api.Publication, error) {
			return oa.searchByAuthor(ctx, authorName)
		})
}

type openAlexAuthors struct {
	Results []struct {
		Id           string `json:"id"`
		DisplayName  string `json:"display_name"`
		WorksCount   int    `json:"works_count"`
		CitedByCount int    `json:"cited_by_count"`
	} `json:"results"`
}

type openAlexWorks struct {
	Results []struct {
		DisplayName     string `json:"display_name"`
		PublicationYear int    `json:"publication_year"`
		CitedByCount    int    `json:"cited_by_count"`
		Doi             string `json:"doi"`
		PrimaryLocation struct {
			Source struct {
				DisplayName string `json:"display_name"`
			} `json:"source"`
		} `json:"primary_location"`
	} `json:"results"`
}

func (oa *OpenAlex) searchByAuthor(ctx context.Context, authorName string) ([]api.Publication, error) {
	res, err := oa.client.R().
		SetContext(ctx).
		SetResult(&openAlexAuthors{}).
		SetQueryParam("search", authorName).
		SetQueryParam("per-page", "1").
		SetQueryParam("mailto", oa.mailto).
		Get("/authors")

	if err != nil {
		return nil, fmt.Errorf("author lookup failed: %w", err)
	}
	if !res.IsSuccess() {
		return nil, &api.UpstreamError{Status: res.StatusCode()}
	}

	authors := res.Result().(*openAlexAuthors)
	if len(authors.Results) == 0 {
		return []api.Publication{}, nil
	}

	if err := oa.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err = oa.client.R().
		SetContext(ctx).
		SetResult(&openAlexWorks{}).
		SetQueryParam("filter", "author.id:"+authors.Results[0].Id).
		SetQueryParam("sort", "cited_by_count:desc").
		SetQueryParam("per-page", "50").
		SetQueryParam("mailto", oa.mailto).
		Get("/works")

	if err != nil {
		return nil, fmt.Errorf("works lookup failed: %w", err)
	}
	if !res.IsSuccess() {
		return nil, &api.UpstreamError{Status: res.StatusCode()}
	}

	works := res.Result().(*openAlexWorks)

	publications := make([]api.Publication, 0, len(works.Results))
	for _, work := range works.Results {
		if work.DisplayName == "" {
			continue
		}
		publications = append(publications, api.Publication{
			Title:         work.DisplayName,
			Year:          yearOrCurrent(work.PublicationYear),
			Venue:         work.PrimaryLocation.Source.DisplayName,
			CitationCount: api.Count(work.CitedByCount),
			Doi:           work.Doi,
		})
	}

	return publications, nil
}
