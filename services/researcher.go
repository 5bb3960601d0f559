package services

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scholar/api"
	"scholar/export"
	"scholar/history"
)

type ResearcherService struct {
	profiles ProfileProvider
	history  *history.Store
}

func (s *ResearcherService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{id}", WrapRestHandler(s.GetProfile))
	r.Get("/{id}/export", s.ExportProfile)

	return r
}

func (s *ResearcherService) GetProfile(r *http.Request) (any, error) {
	id := chi.URLParam(r, "id")

	profile, err := s.profiles.GetProfile(r.Context(), id)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, CodedError(err, http.StatusNotFound)
		}
		return nil, CodedError(fmt.Errorf("error building profile: %w", err), http.StatusInternalServerError)
	}

	if s.history != nil {
		if err := s.history.RecordProfileView(id); err != nil {
			slog.Error("error recording profile view", "error", err)
		}
	}

	return profile, nil
}

func (s *ResearcherService) ExportProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatPdf
	}

	profile, err := s.profiles.GetProfile(r.Context(), id)
	if err != nil {
		if api.IsNotFound(err) {
			WriteJsonError(w, err, http.StatusNotFound)
			return
		}
		WriteJsonError(w, fmt.Errorf("error building profile: %w", err), http.StatusInternalServerError)
		return
	}

	data, contentType, err := export.Render(profile, format)
	if err != nil {
		WriteJsonError(w, err, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-profile.%s", id, format))
	if _, err := w.Write(data); err != nil {
		slog.Error("error writing export response", "error", err)
	}
}
