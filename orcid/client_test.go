package orcid_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"scholar/api"
	"scholar/orcid"
)

type staticTokens struct{}

func (staticTokens) AccessToken(ctx context.Context) (string, error) {
	return "test-token", nil
}

const personBody = `{
	"name": {"given-names": {"value": "Maria"}, "family-name": {"value": "Silva"}},
	"biography": {"content": "Works on tropical ecology."},
	"emails": {"email": [{"email": "maria@example.edu"}]},
	"addresses": {"address": [{"country": {"value": "BR"}}]},
	"keywords": {"keyword": [{"content": "ecology"}, {"content": "biodiversity"}]},
	"researcher-urls": {"researcher-url": [{"url": {"value": "https://example.edu/~maria"}}]}
}`

const worksBody = `{
	"group": [
		{"work-summary": [{
			"put-code": 101,
			"title": {"title": {"value": "Forest fragmentation effects"}},
			"journal-title": {"value": "Ecology Letters"},
			"publication-date": {"year": {"value": "2019"}},
			"external-ids": {"external-id": [
				{"external-id-type": "issn", "external-id-value": "1234-5678"},
				{"external-id-type": "doi", "external-id-value": "10.1000/frag"}
			]}
		}]},
		{"work-summary": [{
			"put-code": 102,
			"title": {"title": {"value": "Soil carbon dynamics"}}
		}]}
	]
}`

const searchBody = `{
	"num-found": 2,
	"expanded-result": [
		{"orcid-id": "0000-0001-0000-0001", "given-names": "Maria", "family-names": "Silva",
		 "institution-name": ["Universidade de São Paulo"]},
		{"orcid-id": "0000-0001-0000-0002", "given-names": "M", "family-names": "Silva"}
	]
}`

func fakeRegistryServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/expanded-search/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("rows") == "" {
			http.Error(w, "missing rows", http.StatusBadRequest)
			return
		}
		w.Write([]byte(searchBody))
	})
	mux.HandleFunc("/0000-0001-0000-0001/person", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(personBody))
	})
	mux.HandleFunc("/0000-0001-0000-0001/works", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(worksBody))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func TestSearchByQuery(t *testing.T) {
	server := fakeRegistryServer(t)
	defer server.Close()

	registry := orcid.NewRemoteRegistry(server.URL, staticTokens{})

	hits, err := registry.SearchByQuery(context.Background(), "family-name:silva*", 20, 0)
	if err != nil {
		t.Fatal(err)
	}

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].RegistryId != "0000-0001-0000-0001" || hits[0].DisplayName != "Maria Silva" {
		t.Fatalf("unexpected first hit %+v", hits[0])
	}
	if len(hits[0].Institutions) != 1 {
		t.Fatalf("expected 1 institution, got %v", hits[0].Institutions)
	}
}

func TestGetPerson(t *testing.T) {
	server := fakeRegistryServer(t)
	defer server.Close()

	registry := orcid.NewRemoteRegistry(server.URL, staticTokens{})

	person, err := registry.GetPerson(context.Background(), "0000-0001-0000-0001")
	if err != nil {
		t.Fatal(err)
	}

	if person.DisplayName != "Maria Silva" {
		t.Fatalf("unexpected name %q", person.DisplayName)
	}
	if person.Country != "BR" {
		t.Fatalf("unexpected country %q", person.Country)
	}
	if person.Email != "maria@example.edu" || person.Website != "https://example.edu/~maria" {
		t.Fatalf("unexpected contact fields %+v", person)
	}
	if len(person.Keywords) != 2 || person.Keywords[0] != "ecology" {
		t.Fatalf("unexpected keywords %v", person.Keywords)
	}
}

func TestGetPersonNotFound(t *testing.T) {
	server := fakeRegistryServer(t)
	defer server.Close()

	registry := orcid.NewRemoteRegistry(server.URL, staticTokens{})

	_, err := registry.GetPerson(context.Background(), "0000-0000-0000-0000")
	if !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetWorks(t *testing.T) {
	server := fakeRegistryServer(t)
	defer server.Close()

	registry := orcid.NewRemoteRegistry(server.URL, staticTokens{})

	works, err := registry.GetWorks(context.Background(), "0000-0001-0000-0001")
	if err != nil {
		t.Fatal(err)
	}

	if len(works) != 2 {
		t.Fatalf("expected 2 works, got %d", len(works))
	}
	first := works[0]
	if first.PutCode != 101 || first.Title != "Forest fragmentation effects" ||
		first.Venue != "Ecology Letters" || first.Year != 2019 || first.Doi != "10.1000/frag" {
		t.Fatalf("unexpected work %+v", first)
	}
	if works[1].Year != 0 || works[1].Doi != "" {
		t.Fatalf("expected empty fields on sparse work, got %+v", works[1])
	}
}

func TestUpstreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusBadGateway)
	}))
	defer server.Close()

	registry := orcid.NewRemoteRegistry(server.URL, staticTokens{})

	_, err := registry.GetWorks(context.Background(), "0000-0001-0000-0001")

	var upstreamErr *api.UpstreamError
	if !errors.As(err, &upstreamErr) || upstreamErr.Status != http.StatusBadGateway {
		t.Fatalf("expected UpstreamError with status 502, got %v", err)
	}
}
