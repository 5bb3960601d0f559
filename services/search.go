package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scholar/api"
	"scholar/history"
	"scholar/search"
)

type SearchService struct {
	searcher Searcher
	history  *history.Store
}

func (s *SearchService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", WrapRestHandler(s.Search))

	return r
}

func (s *SearchService) Search(r *http.Request) (any, error) {
	params := r.URL.Query()
	query := params.Get("query")
	searchType := params.Get("type")
	country := params.Get("country")

	if query == "" {
		return nil, CodedError(fmt.Errorf("missing required parameter 'query'"), http.StatusBadRequest)
	}
	if searchType == "" {
		searchType = api.SearchTypeName
	}

	results, err := s.searcher.Search(r.Context(), query, searchType, country)
	if err != nil {
		if errors.Is(err, search.ErrSearchFailed) {
			return nil, CodedError(err, http.StatusBadGateway)
		}
		return nil, CodedError(err, http.StatusBadRequest)
	}

	if s.history != nil {
		if err := s.history.RecordSearch(query, searchType, country); err != nil {
			slog.Error("error recording search history", "error", err)
		}
	}

	return api.SearchResponse{Researchers: results}, nil
}
