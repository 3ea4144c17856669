package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/trendpulse/internal/adapter/httpserver"
	"github.com/fairyhunter13/trendpulse/internal/adapter/observability"
	"github.com/fairyhunter13/trendpulse/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/readyz", srv.ReadyzHandler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", srv.HealthHandler())

		api.Group(func(wr chi.Router) {
			// limit before auth so failed logins also spend the budget
			if cfg.RateLimitPerMin > 0 {
				wr.Use(httprate.Limit(cfg.RateLimitPerMin, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(httpserver.RateLimitExceeded),
				))
			}
			if cfg.AuthEnabled() {
				wr.Use(httpserver.BasicAuth(cfg.ProxyUsername, cfg.ProxyPasswordHash))
			}
			if cfg.RequestTimeout > 0 {
				wr.Use(httpserver.TimeoutMiddleware(cfg.RequestTimeout))
			}
			wr.Post("/trends", srv.TrendsHandler())
			wr.Get("/trends/archive", srv.ArchiveHandler())
			wr.Post("/generate-content", srv.GenerateContentHandler())
			wr.Post("/render-video", srv.RenderVideoHandler())
			wr.Post("/scripts", srv.ScriptHandler())
			wr.Post("/scripts/rewrite", srv.RewriteScriptHandler())
			wr.Post("/thumbnails", srv.ThumbnailHandler())
			wr.Post("/predictions", srv.PredictionsHandler())
			wr.Post("/accounts/analyze", srv.AnalyzeAccountHandler())
			wr.Post("/accounts/compare", srv.CompareAccountsHandler())
			wr.Post("/visual-analysis", srv.VisualAnalysisHandler())
			wr.Post("/chat", srv.ChatHandler())
		})
	})

	return httpserver.SecurityHeaders(r)
}
