// Package orcid implements the client for the public researcher registry.
package orcid

import "context"

// SearchHit is one raw result from a registry search, before any filtering
// or enrichment.
type SearchHit struct {
	RegistryId   string
	DisplayName  string
	Institutions []string
}

type Person struct {
	RegistryId  string
	DisplayName string
	Country     string
	Email       string
	Website     string
	Biography   string
	Keywords    []string
}

type WorkSummary struct {
	PutCode int64
	Title   string
	Venue   string
	Year    int
	Doi     string
}

type AffiliationRecord struct {
	Organization string
	Role         string
	StartYear    int
	EndYear      int
}

// Registry is the read surface of the researcher registry. The aggregation
// layer depends on this interface so tests can substitute fakes.
type Registry interface {
	SearchByQuery(ctx context.Context, query string, rows, start int) ([]SearchHit, error)

	GetPerson(ctx context.Context, id string) (Person, error)

	GetWorks(ctx context.Context, id string) ([]WorkSummary, error)

	GetEmployments(ctx context.Context, id string) ([]AffiliationRecord, error)

	GetEducations(ctx context.Context, id string) ([]AffiliationRecord, error)

	GetWorkDetail(ctx context.Context, id string, putCode int64) (WorkSummary, error)
}
