package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scholar/api"
	"scholar/history"
	"scholar/llms"
)

const chatSystemPrompt = "You are an assistant that answers questions about a researcher. " +
	"Answer using only the profile data provided. If the profile does not contain " +
	"the answer, say so instead of guessing."

type ChatService struct {
	profiles ProfileProvider
	llm      llms.LLM
	history  *history.Store
}

func (s *ChatService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/{id}", WrapRestHandler(s.Chat))

	return r
}

func (s *ChatService) Chat(r *http.Request) (any, error) {
	id := chi.URLParam(r, "id")

	req, err := ParseRequestBody[api.ChatRequest](r)
	if err != nil {
		return nil, CodedError(err, http.StatusBadRequest)
	}
	if req.Message == "" {
		return nil, CodedError(fmt.Errorf("missing required field 'message'"), http.StatusBadRequest)
	}

	profile, err := s.profiles.GetProfile(r.Context(), id)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, CodedError(err, http.StatusNotFound)
		}
		return nil, CodedError(fmt.Errorf("error building profile: %w", err), http.StatusInternalServerError)
	}

	prompt, err := chatPrompt(profile, req.Message)
	if err != nil {
		return nil, err
	}

	reply, err := s.llm.Generate(r.Context(), prompt, &llms.Options{SystemPrompt: chatSystemPrompt})
	if err != nil {
		return nil, CodedError(fmt.Errorf("error generating reply: %w", err), http.StatusBadGateway)
	}

	if s.history != nil {
		if err := s.history.RecordChat(id, req.Message); err != nil {
			slog.Error("error recording chat history", "error", err)
		}
	}

	return api.ChatResponse{Reply: reply}, nil
}

func chatPrompt(profile api.ResearcherProfile, message string) (string, error) {
	profileJson, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error serializing profile: %w", err)
	}
	return fmt.Sprintf("Researcher profile:\n%s\n\nQuestion: %s", profileJson, message), nil
}
