package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/trendpulse/internal/config"
	"github.com/fairyhunter13/trendpulse/internal/domain"
	"github.com/fairyhunter13/trendpulse/internal/usecase"
)

// ReadinessCheck checks one dependency for /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server aggregates dependencies for HTTP handlers.
type Server struct {
	Cfg      config.Config
	Trends   *usecase.TrendService
	Content  *usecase.ContentService
	Analysis *usecase.AnalysisService
	Chat     *usecase.ChatService
	Checks   []ReadinessCheck
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns a validator that reports fields by their JSON names.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// NewServer constructs a Server with the provided dependencies.
func NewServer(cfg config.Config, trends *usecase.TrendService, content *usecase.ContentService, analysis *usecase.AnalysisService, chat *usecase.ChatService, checks ...ReadinessCheck) *Server {
	return &Server{Cfg: cfg, Trends: trends, Content: content, Analysis: analysis, Chat: chat, Checks: checks}
}

func (s *Server) maxBodyBytes() int64 {
	if s.Cfg.MaxBodyMB <= 0 {
		return 1 << 20
	}
	return s.Cfg.MaxBodyMB << 20
}

// decode reads a JSON body into dst and validates it. On failure the error
// response has already been written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
				Code:    "PAYLOAD_TOO_LARGE",
				Message: "request body too large",
				Details: map[string]any{"max_bytes": tooLarge.Limit},
			}})
			return false
		}
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		return false
	}
	if err := getValidator().Struct(dst); err != nil {
		verrs := map[string]string{}
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				verrs[fieldPath(fe.Namespace())] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
		return false
	}
	return true
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// HealthHandler reports that the process is up.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "TrendPulse Backend Online"})
	}
}

// ReadyzHandler checks every configured dependency.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, len(s.Checks))
		ok := true
		for _, c := range s.Checks {
			if c.Check == nil {
				continue
			}
			if err := c.Check(ctx); err != nil {
				ok = false
				checks = append(checks, check{Name: c.Name, Details: err.Error()})
				continue
			}
			checks = append(checks, check{Name: c.Name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

type trendsRequest struct {
	Category string `json:"category" validate:"required,max=100"`
	Language string `json:"language" validate:"omitempty,max=8"`
}

// TrendsHandler returns the current trends for a category.
func (s *Server) TrendsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req trendsRequest
		if !s.decode(w, r, &req) {
			return
		}
		trends, err := s.Trends.Fetch(r.Context(), SanitizeString(req.Category), domain.ParseLanguage(req.Language))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"trends": trends})
	}
}

// ArchiveHandler lists trends captured by the scan worker.
func (s *Server) ArchiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		category, limit := q.Get("category"), q.Get("limit")
		if res := ValidateArchiveQuery(category, limit); !res.Valid {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), res.Errors)
			return
		}
		n, _ := strconv.Atoi(limit)
		trends, err := s.Trends.Archive(r.Context(), SanitizeString(category), n)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"trends": trends})
	}
}
