package httpserver

import (
	"net/http"
	"strconv"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

type contentRequest struct {
	TrendName string `json:"trendName" validate:"required,max=200"`
	TrendIdea string `json:"trendIdea" validate:"max=4000"`
	Language  string `json:"language" validate:"omitempty,max=8"`
}

type descriptionRequest struct {
	Description string `json:"description" validate:"required,max=4000"`
}

type rewriteRequest struct {
	Script   domain.VideoScript `json:"script"`
	Modifier string             `json:"modifier" validate:"required,oneof=funny genz controversial professional shorter"`
	Language string             `json:"language" validate:"omitempty,max=8"`
}

// GenerateContentHandler builds a script, caption and hashtags for a trend.
func (s *Server) GenerateContentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contentRequest
		if !s.decode(w, r, &req) {
			return
		}
		pkg, err := s.Content.GeneratePackage(r.Context(), SanitizeString(req.TrendName), SanitizeString(req.TrendIdea), domain.ParseLanguage(req.Language))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, pkg)
	}
}

// ScriptHandler generates a standalone video script.
func (s *Server) ScriptHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contentRequest
		if !s.decode(w, r, &req) {
			return
		}
		script, err := s.Content.GenerateScript(r.Context(), SanitizeString(req.TrendName), SanitizeString(req.TrendIdea), domain.ParseLanguage(req.Language))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, script)
	}
}

// RewriteScriptHandler rewrites a script in the requested tone.
func (s *Server) RewriteScriptHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rewriteRequest
		if !s.decode(w, r, &req) {
			return
		}
		script, err := s.Content.RewriteScript(r.Context(), req.Script, domain.ScriptModifier(req.Modifier), domain.ParseLanguage(req.Language))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, script)
	}
}

// ThumbnailHandler renders a cover image and returns it as a data URL.
func (s *Server) ThumbnailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req descriptionRequest
		if !s.decode(w, r, &req) {
			return
		}
		img, err := s.Content.GenerateThumbnail(r.Context(), SanitizeString(req.Description))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"image": img})
	}
}

// RenderVideoHandler blocks until the video job finishes and streams the file back.
func (s *Server) RenderVideoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req descriptionRequest
		if !s.decode(w, r, &req) {
			return
		}
		v, err := s.Content.RenderVideo(r.Context(), SanitizeString(req.Description))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("Content-Type", v.MIMEType)
		w.Header().Set("Content-Length", strconv.Itoa(len(v.Data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(v.Data); err != nil {
			LoggerFrom(r).Warn("video write failed", "error", err)
		}
	}
}
