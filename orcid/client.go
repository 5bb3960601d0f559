package orcid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"scholar/api"
	"scholar/monitoring"
)

// Per-call budgets. Searches and person lookups sit on the interactive path
// and get the short budget; works listings can be large and get the longer
// one.
const (
	lookupTimeout   = 8 * time.Second
	assemblyTimeout = 15 * time.Second
)

type tokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// RemoteRegistry talks to the public registry API. Calls never retry; the
// caller owns the retry policy.
type RemoteRegistry struct {
	client *resty.Client
	tokens tokenSource
	logger *slog.Logger
}

func NewRemoteRegistry(baseUrl string, tokens tokenSource) *RemoteRegistry {
	client := resty.New().
		SetBaseURL(baseUrl).
		SetHeader("Accept", "application/json").
		OnAfterResponse(func(client *resty.Client, response *resty.Response) error {
			monitoring.RegistryCalls.WithLabelValues(strconv.Itoa(response.StatusCode())).Inc()
			return nil
		})

	return &RemoteRegistry{
		client: client,
		tokens: tokens,
		logger: slog.With("logger", "registry"),
	}
}

func (r *RemoteRegistry) get(ctx context.Context, timeout time.Duration, path string, params map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token, err := r.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	res, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(params).
		Get(path)

	if err != nil {
		if isTimeout(err) {
			r.logger.Error("registry request timed out", "path", path)
			return nil, api.ErrUpstreamTimeout
		}
		r.logger.Error("registry request failed", "path", path, "error", err)
		return nil, fmt.Errorf("registry request failed: %w", err)
	}

	if res.StatusCode() == http.StatusNotFound {
		return nil, api.ErrNotFound
	}

	if !res.IsSuccess() {
		r.logger.Error("registry returned error", "path", path, "status_code", res.StatusCode())
		return nil, &api.UpstreamError{Status: res.StatusCode()}
	}

	return res.Body(), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (r *RemoteRegistry) SearchByQuery(ctx context.Context, query string, rows, start int) ([]SearchHit, error) {
	body, err := r.get(ctx, lookupTimeout, "/expanded-search/", map[string]string{
		"q":     query,
		"rows":  strconv.Itoa(rows),
		"start": strconv.Itoa(start),
	})
	if err != nil {
		return nil, err
	}

	results := gjson.GetBytes(body, "expanded-result")

	hits := make([]SearchHit, 0, int(results.Get("#").Int()))
	results.ForEach(func(_, result gjson.Result) bool {
		id := result.Get("orcid-id").String()
		if id == "" {
			return true
		}

		institutions := make([]string, 0)
		result.Get("institution-name").ForEach(func(_, name gjson.Result) bool {
			institutions = append(institutions, name.String())
			return true
		})

		hits = append(hits, SearchHit{
			RegistryId:   id,
			DisplayName:  joinName(result.Get("given-names").String(), result.Get("family-names").String()),
			Institutions: institutions,
		})
		return true
	})

	return hits, nil
}

func (r *RemoteRegistry) GetPerson(ctx context.Context, id string) (Person, error) {
	body, err := r.get(ctx, lookupTimeout, fmt.Sprintf("/%s/person", id), nil)
	if err != nil {
		return Person{}, err
	}

	root := gjson.ParseBytes(body)

	person := Person{
		RegistryId: id,
		DisplayName: joinName(
			root.Get("name.given-names.value").String(),
			root.Get("name.family-name.value").String(),
		),
		Country:   root.Get("addresses.address.0.country.value").String(),
		Email:     root.Get("emails.email.0.email").String(),
		Website:   root.Get("researcher-urls.researcher-url.0.url.value").String(),
		Biography: root.Get("biography.content").String(),
	}

	root.Get("keywords.keyword").ForEach(func(_, keyword gjson.Result) bool {
		if content := keyword.Get("content").String(); content != "" {
			person.Keywords = append(person.Keywords, content)
		}
		return true
	})

	return person, nil
}

func (r *RemoteRegistry) GetWorks(ctx context.Context, id string) ([]WorkSummary, error) {
	body, err := r.get(ctx, assemblyTimeout, fmt.Sprintf("/%s/works", id), nil)
	if err != nil {
		return nil, err
	}

	works := make([]WorkSummary, 0)
	gjson.GetBytes(body, "group").ForEach(func(_, group gjson.Result) bool {
		// Each group holds the same work reported by different sources; the
		// first summary is the registry's preferred version.
		summary := group.Get("work-summary.0")
		if !summary.Exists() {
			return true
		}
		works = append(works, parseWork(summary))
		return true
	})

	return works, nil
}

func (r *RemoteRegistry) GetWorkDetail(ctx context.Context, id string, putCode int64) (WorkSummary, error) {
	body, err := r.get(ctx, lookupTimeout, fmt.Sprintf("/%s/work/%d", id, putCode), nil)
	if err != nil {
		return WorkSummary{}, err
	}

	work := parseWork(gjson.ParseBytes(body))
	work.PutCode = putCode
	return work, nil
}

func (r *RemoteRegistry) GetEmployments(ctx context.Context, id string) ([]AffiliationRecord, error) {
	return r.getAffiliations(ctx, fmt.Sprintf("/%s/employments", id), "employment-summary")
}

func (r *RemoteRegistry) GetEducations(ctx context.Context, id string) ([]AffiliationRecord, error) {
	return r.getAffiliations(ctx, fmt.Sprintf("/%s/educations", id), "education-summary")
}

func (r *RemoteRegistry) getAffiliations(ctx context.Context, path, summaryKey string) ([]AffiliationRecord, error) {
	body, err := r.get(ctx, assemblyTimeout, path, nil)
	if err != nil {
		return nil, err
	}

	records := make([]AffiliationRecord, 0)
	gjson.GetBytes(body, "affiliation-group").ForEach(func(_, group gjson.Result) bool {
		group.Get("summaries").ForEach(func(_, entry gjson.Result) bool {
			summary := entry.Get(summaryKey)
			if !summary.Exists() {
				return true
			}
			records = append(records, AffiliationRecord{
				Organization: summary.Get("organization.name").String(),
				Role:         summary.Get("role-title").String(),
				StartYear:    int(summary.Get("start-date.year.value").Int()),
				EndYear:      int(summary.Get("end-date.year.value").Int()),
			})
			return true
		})
		return true
	})

	return records, nil
}

func parseWork(work gjson.Result) WorkSummary {
	summary := WorkSummary{
		PutCode: work.Get("put-code").Int(),
		Title:   work.Get("title.title.value").String(),
		Venue:   work.Get("journal-title.value").String(),
		Year:    int(work.Get("publication-date.year.value").Int()),
	}

	work.Get("external-ids.external-id").ForEach(func(_, extId gjson.Result) bool {
		if strings.EqualFold(extId.Get("external-id-type").String(), "doi") {
			summary.Doi = extId.Get("external-id-value").String()
			return false
		}
		return true
	})

	return summary
}

func joinName(given, family string) string {
	return strings.TrimSpace(given + " " + family)
}
