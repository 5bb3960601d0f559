package services

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"scholar/history"
)

const defaultHistoryLimit = 50

type HistoryService struct {
	store *history.Store
}

func (s *HistoryService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", WrapRestHandler(s.List))

	return r
}

func (s *HistoryService) List(r *http.Request) (any, error) {
	limit := defaultHistoryLimit
	if param := r.URL.Query().Get("limit"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed < 1 {
			return nil, CodedError(fmt.Errorf("invalid limit '%s'", param), http.StatusBadRequest)
		}
		limit = parsed
	}

	events, err := s.store.Recent(limit)
	if err != nil {
		return nil, err
	}

	return map[string]any{"events": events}, nil
}
