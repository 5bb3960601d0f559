package services

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"scholar/api"
	"scholar/history"
	"scholar/llms"
)

// Searcher runs ranked researcher searches.
type Searcher interface {
	Search(ctx context.Context, query, searchType, country string) ([]api.ResearcherCandidate, error)
}

// ProfileProvider assembles full researcher profiles.
type ProfileProvider interface {
	GetProfile(ctx context.Context, id string) (api.ResearcherProfile, error)
}

type BackendService struct {
	search     SearchService
	researcher ResearcherService
	chat       ChatService
	history    HistoryService
}

func NewBackendService(searcher Searcher, profiles ProfileProvider, llm llms.LLM, store *history.Store) *BackendService {
	return &BackendService{
		search:     SearchService{searcher: searcher, history: store},
		researcher: ResearcherService{profiles: profiles, history: store},
		chat:       ChatService{profiles: profiles, llm: llm, history: store},
		history:    HistoryService{store: store},
	}
}

func (s *BackendService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Mount("/search", s.search.Routes())
	r.Mount("/researcher", s.researcher.Routes())
	r.Mount("/chat", s.chat.Routes())
	r.Mount("/history", s.history.Routes())

	return r
}
