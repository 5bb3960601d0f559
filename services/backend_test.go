package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"scholar/api"
	"scholar/history"
	"scholar/llms"
	"scholar/search"
	"scholar/services"
)

type fakeSearcher struct {
	results []api.ResearcherCandidate
	err     error

	lastQuery, lastType, lastCountry string
}

func (f *fakeSearcher) Search(ctx context.Context, query, searchType, country string) ([]api.ResearcherCandidate, error) {
	f.lastQuery, f.lastType, f.lastCountry = query, searchType, country
	return f.results, f.err
}

type fakeProfiles struct {
	profiles map[string]api.ResearcherProfile
}

func (f *fakeProfiles) GetProfile(ctx context.Context, id string) (api.ResearcherProfile, error) {
	profile, ok := f.profiles[id]
	if !ok {
		return api.ResearcherProfile{}, api.ErrNotFound
	}
	return profile, nil
}

type fakeLLM struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts *llms.Options) (string, error) {
	f.lastPrompt = prompt
	return f.reply, f.err
}

func testProfile() api.ResearcherProfile {
	return api.ResearcherProfile{
		RegistryId:  "0000-0002-1825-0097",
		DisplayName: "Josiah Carberry",
		Country:     "US",
		Keywords:    []string{"psychoceramics"},
		Publications: []api.Publication{
			{Title: "Toward a Unified Theory of High-Energy Metaphysics", Year: 2008, CitationCount: 12},
		},
		TotalCitations: 12,
		HIndex:         1,
		EnhancedWith:   []string{api.OpenAlexSource},
	}
}

type testBackend struct {
	handler  http.Handler
	searcher *fakeSearcher
	llm      *fakeLLM
	store    *history.Store
}

func createBackend(t *testing.T) *testBackend {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}

	searcher := &fakeSearcher{
		results: []api.ResearcherCandidate{
			{RegistryId: "0000-0002-1825-0097", DisplayName: "Josiah Carberry", Country: "US", CitationCount: 12, PublicationCount: 1, Rank: 1},
		},
	}
	profiles := &fakeProfiles{profiles: map[string]api.ResearcherProfile{
		"0000-0002-1825-0097": testProfile(),
	}}
	llm := &fakeLLM{reply: "Their h-index is 1."}

	backend := services.NewBackendService(searcher, profiles, llm, store)

	return &testBackend{handler: backend.Routes(), searcher: searcher, llm: llm, store: store}
}

func mockRequest(handler http.Handler, method, endpoint string, jsonBody any, result any) (int, error) {
	var body io.Reader
	if jsonBody != nil {
		data := new(bytes.Buffer)
		if err := json.NewEncoder(data).Encode(jsonBody); err != nil {
			return 0, fmt.Errorf("error encoding json body for endpoint %v: %w", endpoint, err)
		}
		body = data
	}

	req := httptest.NewRequest(method, endpoint, body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if result != nil && rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(result); err != nil {
			return rec.Code, fmt.Errorf("error decoding response from endpoint %v: %w", endpoint, err)
		}
	}
	return rec.Code, nil
}

func TestSearchEndpoint(t *testing.T) {
	backend := createBackend(t)

	var res api.SearchResponse
	code, err := mockRequest(backend.handler, "GET", "/search?query=josiah+carberry&type=name&country=US", nil, &res)
	if err != nil {
		t.Fatal(err)
	}
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if len(res.Researchers) != 1 || res.Researchers[0].DisplayName != "Josiah Carberry" {
		t.Fatalf("unexpected search response %+v", res)
	}
	if backend.searcher.lastQuery != "josiah carberry" || backend.searcher.lastType != "name" || backend.searcher.lastCountry != "US" {
		t.Fatalf("search params not forwarded: %+v", backend.searcher)
	}

	events, err := backend.store.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Kind != history.EventSearch {
		t.Fatalf("expected a recorded search event, got %+v", events)
	}
}

func TestSearchEndpointDefaultsToNameSearch(t *testing.T) {
	backend := createBackend(t)

	code, err := mockRequest(backend.handler, "GET", "/search?query=carberry", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if backend.searcher.lastType != api.SearchTypeName {
		t.Fatalf("expected default search type, got %q", backend.searcher.lastType)
	}
}

func TestSearchEndpointMissingQuery(t *testing.T) {
	backend := createBackend(t)

	code, err := mockRequest(backend.handler, "GET", "/search", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestSearchEndpointUpstreamFailure(t *testing.T) {
	backend := createBackend(t)
	backend.searcher.err = search.ErrSearchFailed

	req := httptest.NewRequest("GET", "/search?query=carberry", nil)
	rec := httptest.NewRecorder()
	backend.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	var payload api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.Error == "" || payload.Message == "" {
		t.Fatalf("expected explicit error payload, got %+v", payload)
	}
}

func TestGetProfileEndpoint(t *testing.T) {
	backend := createBackend(t)

	var profile api.ResearcherProfile
	code, err := mockRequest(backend.handler, "GET", "/researcher/0000-0002-1825-0097", nil, &profile)
	if err != nil {
		t.Fatal(err)
	}
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if profile.DisplayName != "Josiah Carberry" || profile.HIndex != 1 {
		t.Fatalf("unexpected profile %+v", profile)
	}

	events, err := backend.store.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Kind != history.EventProfileView {
		t.Fatalf("expected a recorded profile view, got %+v", events)
	}
}

func TestGetProfileEndpointNotFound(t *testing.T) {
	backend := createBackend(t)

	code, err := mockRequest(backend.handler, "GET", "/researcher/0000-0000-0000-0000", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestExportEndpoint(t *testing.T) {
	backend := createBackend(t)

	for _, tc := range []struct {
		format      string
		contentType string
	}{
		{"pdf", "application/pdf"},
		{"csv", "text/csv"},
		{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	} {
		endpoint := "/researcher/0000-0002-1825-0097/export?format=" + url.QueryEscape(tc.format)
		req := httptest.NewRequest("GET", endpoint, nil)
		rec := httptest.NewRecorder()
		backend.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("format %s: unexpected status %d", tc.format, rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != tc.contentType {
			t.Fatalf("format %s: unexpected content type %s", tc.format, got)
		}
		if disposition := rec.Header().Get("Content-Disposition"); !strings.Contains(disposition, "attachment") {
			t.Fatalf("format %s: missing attachment disposition %q", tc.format, disposition)
		}
		if rec.Body.Len() == 0 {
			t.Fatalf("format %s: empty export body", tc.format)
		}
	}
}

func TestExportEndpointInvalidFormat(t *testing.T) {
	backend := createBackend(t)

	req := httptest.NewRequest("GET", "/researcher/0000-0002-1825-0097/export?format=docx", nil)
	rec := httptest.NewRecorder()
	backend.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	backend := createBackend(t)

	var res api.ChatResponse
	code, err := mockRequest(backend.handler, "POST", "/chat/0000-0002-1825-0097", api.ChatRequest{Message: "what is their h-index?"}, &res)
	if err != nil {
		t.Fatal(err)
	}
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if res.Reply != "Their h-index is 1." {
		t.Fatalf("unexpected reply %q", res.Reply)
	}

	if !strings.Contains(backend.llm.lastPrompt, "Josiah Carberry") {
		t.Fatal("prompt does not include profile data")
	}
	if !strings.Contains(backend.llm.lastPrompt, "what is their h-index?") {
		t.Fatal("prompt does not include the user question")
	}

	events, err := backend.store.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Kind != history.EventChat {
		t.Fatalf("expected a recorded chat event, got %+v", events)
	}
}

func TestChatEndpointMissingMessage(t *testing.T) {
	backend := createBackend(t)

	code, err := mockRequest(backend.handler, "POST", "/chat/0000-0002-1825-0097", api.ChatRequest{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestChatEndpointGenerationFailure(t *testing.T) {
	backend := createBackend(t)
	backend.llm.err = llms.ErrGenerationFailed

	code, err := mockRequest(backend.handler, "POST", "/chat/0000-0002-1825-0097", api.ChatRequest{Message: "hi"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	backend := createBackend(t)

	if _, err := mockRequest(backend.handler, "GET", "/search?query=carberry", nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := mockRequest(backend.handler, "GET", "/researcher/0000-0002-1825-0097", nil, nil); err != nil {
		t.Fatal(err)
	}

	var res struct {
		Events []history.Event `json:"events"`
	}
	code, err := mockRequest(backend.handler, "GET", "/history", nil, &res)
	if err != nil {
		t.Fatal(err)
	}
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if len(res.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(res.Events))
	}

	code, err = mockRequest(backend.handler, "GET", "/history?limit=1", nil, &res)
	if err != nil {
		t.Fatal(err)
	}
	if code != http.StatusOK || len(res.Events) != 1 {
		t.Fatalf("expected 1 event with limit, got status %d and %d events", code, len(res.Events))
	}

	code, err = mockRequest(backend.handler, "GET", "/history?limit=zero", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid limit, got %d", code)
	}
}
