package httpserver

import (
	"net/http"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

type predictionRequest struct {
	Niche    string `json:"niche" validate:"required,max=200"`
	Language string `json:"language" validate:"omitempty,max=8"`
}

type accountRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Context  string `json:"context" validate:"max=4000"`
	Language string `json:"language" validate:"omitempty,max=8"`
}

type compareRequest struct {
	User1    string `json:"user1" validate:"required,max=100"`
	User2    string `json:"user2" validate:"required,max=100"`
	Language string `json:"language" validate:"omitempty,max=8"`
}

type visualRequest struct {
	Image    string `json:"image" validate:"required"`
	Language string `json:"language" validate:"omitempty,max=8"`
}

type chatRequest struct {
	History  []domain.ChatMessage `json:"history" validate:"max=200,dive"`
	Message  string               `json:"message" validate:"required,max=8000"`
	Language string               `json:"language" validate:"omitempty,max=8"`
}

// PredictionsHandler forecasts upcoming viral topics for a niche.
func (s *Server) PredictionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req predictionRequest
		if !s.decode(w, r, &req) {
			return
		}
		preds, err := s.Analysis.PredictViral(r.Context(), SanitizeString(req.Niche), domain.ParseLanguage(req.Language))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"predictions": preds})
	}
}

// AnalyzeAccountHandler audits a public account using web-grounded search.
func (s *Server) AnalyzeAccountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accountRequest
		if !s.decode(w, r, &req) {
			return
		}
		res, err := s.Analysis.AnalyzeAccount(r.Context(), SanitizeString(req.Username), SanitizeString(req.Context), domain.ParseLanguage(req.Language))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// CompareAccountsHandler compares two accounts head to head.
func (s *Server) CompareAccountsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req compareRequest
		if !s.decode(w, r, &req) {
			return
		}
		res, err := s.Analysis.CompareAccounts(r.Context(), SanitizeString(req.User1), SanitizeString(req.User2), domain.ParseLanguage(req.Language))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// VisualAnalysisHandler scores an uploaded thumbnail or frame.
func (s *Server) VisualAnalysisHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req visualRequest
		if !s.decode(w, r, &req) {
			return
		}
		res, err := s.Analysis.AnalyzeVisual(r.Context(), req.Image, domain.ParseLanguage(req.Language))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ChatHandler continues a strategist conversation.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !s.decode(w, r, &req) {
			return
		}
		reply, err := s.Chat.Send(r.Context(), req.History, req.Message, domain.ParseLanguage(req.Language))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
	}
}
