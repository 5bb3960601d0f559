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

// Crossref's polite pool asks for no more than ~20 req/s; stay well under.
const crossrefSpacing = 55 * time.Millisecond

// Crossref matches works by free-text author queries, which is noisier than
// an author-id lookup, so merges from it require a lower-confidence
// threshold and the matcher's precision bias does the rest.
type Crossref struct {
	client  *resty.Client
	limiter *rate.Limiter
	cache   *AuthorCache
	mailto  string
	logger  *slog.Logger
}

func NewCrossref(baseUrl, mailto string, authorCache *AuthorCache) *Crossref {
	return &Crossref{
		client:  newSourceClient(baseUrl, api.CrossrefSource, 10*time.Second),
		limiter: rate.NewLimiter(rate.Every(crossrefSpacing), 1),
		cache:   authorCache,
		mailto:  mailto,
		logger:  slog.With("logger", "crossref"),
	}
}

func (cr *Crossref) Name() string {
	return api.CrossrefSource
}

func (cr *Crossref) MatchThreshold() float64 {
	return match.NoisySourceThreshold
}

func (cr *Crossref) SearchByAuthor(ctx context.Context, authorName string) []api.Publication {
	return cachedSearch(ctx, api.CrossrefSource, authorName, cr.cache, cr.limiter, cr.logger,
		func(ctx context.Context) ([]api.Publication, error) {
			return cr.searchByAuthor(ctx, authorName)
		})
}

type crossrefWorks struct {
	Message struct {
		Items []struct {
			Title             []string     `json:"title"`
			ContainerTitle    []string     `json:"container-title"`
			IsReferencedByCnt int          `json:"is-referenced-by-count"`
			Doi               string       `json:"DOI"`
			PublishedPrint    crossrefDate `json:"published-print"`
			PublishedOnline   crossrefDate `json:"published-online"`
		} `json:"items"`
	} `json:"message"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d crossrefDate) year() int {
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
		return d.DateParts[0][0]
	}
	return 0
}

func (cr *Crossref) searchByAuthor(ctx context.Context, authorName string) ([]api.Publication, error) {
	res, err := cr.client.R().
		SetContext(ctx).
		SetResult(&crossrefWorks{}).
		SetQueryParam("query.author", authorName).
		SetQueryParam("rows", "50").
		SetQueryParam("select", "title,container-title,is-referenced-by-count,DOI,published-print,published-online").
		SetQueryParam("mailto", cr.mailto).
		Get("/works")

	if err != nil {
		return nil, fmt.Errorf("works query failed: %w", err)
	}
	if !res.IsSuccess() {
		return nil, &api.UpstreamError{Status: res.StatusCode()}
	}

	works := res.Result().(*crossrefWorks)

	publications := make([]api.Publication, 0, len(works.Message.Items))
	for _, item := range works.Message.Items {
		if len(item.Title) == 0 || strings.TrimSpace(item.Title[0]) == "" {
			continue
		}

		year := item.PublishedPrint.year()
		if year == 0 {
			year = item.PublishedOnline.year()
		}

		venue := ""
		if len(item.ContainerTitle) > 0 {
			venue = item.ContainerTitle[0]
		}

		publications = append(publications, api.Publication{
			Title:         item.Title[0],
			Year:          yearOrCurrent(year),
			Venue:         venue,
			CitationCount: api.Count(item.IsReferencedByCnt),
			Doi:           item.Doi,
		})
	}

	return publications, nil
}
