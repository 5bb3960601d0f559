// Package biblio implements clients for the bibliometric data sources used
// to enrich registry publications with citation counts. Every source is
// optional: a client that cannot answer returns an empty list, never an
// error, so enrichment degrades instead of failing the request.
package biblio

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"scholar/api"
	"scholar/cache"
	"scholar/monitoring"
)

// Source is one bibliometric provider queried during enrichment.
type Source interface {
	Name() string

	// MatchThreshold is the title-overlap confidence required to merge one
	// of this source's records onto a registry publication.
	MatchThreshold() float64

	// SearchByAuthor returns candidate publications with citation counts for
	// an author name. It degrades to an empty list on any failure.
	SearchByAuthor(ctx context.Context, authorName string) []api.Publication
}

// AuthorCache caches per-source author lookups. Author bibliographies move
// slowly, so entries stay valid for a day.
type AuthorCache = cache.Cache[[]api.Publication]

const AuthorCacheTTL = 24 * time.Hour

// newSourceClient builds a resty client with the shared upstream policy:
// retry on 5xx and 429 with exponential backoff and jitter, never on other
// 4xx, and a call counter per source.
func newSourceClient(baseUrl, source string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseUrl).
		SetTimeout(timeout).
		AddRetryCondition(func(response *resty.Response, err error) bool {
			if err != nil {
				return true // The err can be non nil for some network errors.
			}
			// There's no reason to retry other 400 requests since the outcome should not change
			return response != nil && (response.StatusCode() > 499 || response.StatusCode() == http.StatusTooManyRequests)
		}).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		OnAfterResponse(func(client *resty.Client, response *resty.Response) error {
			monitoring.BiblioSourceCalls.WithLabelValues(source, strconv.Itoa(response.StatusCode())).Inc()
			return nil
		})
}

// cachedSearch wraps a source lookup with the author cache and the source's
// courtesy rate limiter.
func cachedSearch(
	ctx context.Context,
	source string,
	authorName string,
	authorCache *AuthorCache,
	limiter *rate.Limiter,
	logger *slog.Logger,
	lookup func(ctx context.Context) ([]api.Publication, error),
) []api.Publication {
	key := source + "|" + NormalizeAuthorName(authorName)

	if authorCache != nil {
		if cached := authorCache.Lookup(key); cached != nil {
			monitoring.CacheLookups.WithLabelValues("biblio_author", "hit").Inc()
			return *cached
		}
		monitoring.CacheLookups.WithLabelValues("biblio_author", "miss").Inc()
	}

	if err := limiter.Wait(ctx); err != nil {
		logger.Error("rate limiter wait aborted", "author", authorName, "error", err)
		return []api.Publication{}
	}

	publications, err := lookup(ctx)
	if err != nil {
		logger.Error("author search failed", "author", authorName, "error", err)
		return []api.Publication{}
	}

	if authorCache != nil {
		authorCache.Update(key, publications)
	}

	return publications
}

// NormalizeAuthorName produces the cache key form of an author name.
func NormalizeAuthorName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func yearOrCurrent(year int) int {
	if year <= 0 {
		return time.Now().Year()
	}
	return year
}
