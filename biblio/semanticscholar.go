package biblio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"scholar/api"
	"scholar/match"
)

// Semantic Scholar enforces 1 req/s for unauthenticated clients.
const semanticScholarSpacing = 1100 * time.Millisecond

type SemanticScholar struct {
	client  *resty.Client
	limiter *rate.Limiter
	cache   *AuthorCache
	logger  *slog.Logger
}

func NewSemanticScholar(baseUrl string, authorCache *AuthorCache) *SemanticScholar {
	return &SemanticScholar{
		client:  newSourceClient(baseUrl, api.SemanticScholarSource, 10*time.Second),
		limiter: rate.NewLimiter(rate.Every(semanticScholarSpacing), 1),
		cache:   authorCache,
		logger:  slog.With("logger", "semantic_scholar"),
	}
}

func (ss *SemanticScholar) Name() string {
	return api.SemanticScholarSource
}

func (ss *SemanticScholar) MatchThreshold() float64 {
	return match.HighConfidenceThreshold
}

func (ss *SemanticScholar) SearchByAuthor(ctx context.Context, authorName string) []api.Publication {
	return cachedSearch(ctx, api.SemanticScholarSource, authorName, ss.cache, ss.limiter, ss.logger,
		func(ctx context.Context) ([]api.Publication, error) {
			return ss.searchByAuthor(ctx, authorName)
		})
}

type semanticScholarAuthors struct {
	Data []struct {
		Name   string `json:"name"`
		Papers []struct {
			Title         string `json:"title"`
			Year          int    `json:"year"`
			Venue         string `json:"venue"`
			CitationCount int    `json:"citationCount"`
			ExternalIds   struct {
				Doi string `json:"DOI"`
			} `json:"externalIds"`
		} `json:"papers"`
	} `json:"data"`
}

func (ss *SemanticScholar) searchByAuthor(ctx context.Context, authorName string) ([]api.Publication, error) {
	res, err := ss.client.R().
		SetContext(ctx).
		SetResult(&semanticScholarAuthors{}).
		SetQueryParam("query", authorName).
		SetQueryParam("fields", "name,papers.title,papers.year,papers.venue,papers.citationCount,papers.externalIds").
		SetQueryParam("limit", "3").
		Get("/author/search")

	if err != nil {
		return nil, fmt.Errorf("author search failed: %w", err)
	}
	if !res.IsSuccess() {
		return nil, &api.UpstreamError{Status: res.StatusCode()}
	}

	authors := res.Result().(*semanticScholarAuthors)

	// The search is ranked; take the first author whose name shares a token
	// with the query to avoid picking up an unrelated namesake list.
	queryTokens := strings.Fields(strings.ToLower(authorName))
	for _, author := range authors.Data {
		if !nameSharesToken(author.Name, queryTokens) {
			continue
		}

		publications := make([]api.Publication, 0, len(author.Papers))
		for _, paper := range author.Papers {
			if paper.Title == "" {
				continue
			}
			publications = append(publications, api.Publication{
				Title:         paper.Title,
				Year:          yearOrCurrent(paper.Year),
				Venue:         paper.Venue,
				CitationCount: api.Count(paper.CitationCount),
				Doi:           paper.ExternalIds.Doi,
			})
		}
		return publications, nil
	}

	return []api.Publication{}, nil
}

func nameSharesToken(name string, queryTokens []string) bool {
	for _, part := range strings.Fields(strings.ToLower(name)) {
		for _, token := range queryTokens {
			if part == token {
				return true
			}
		}
	}
	return false
}
