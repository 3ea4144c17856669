package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpserver "github.com/fairyhunter13/trendpulse/internal/adapter/httpserver"
	"github.com/fairyhunter13/trendpulse/internal/app"
	"github.com/fairyhunter13/trendpulse/internal/config"
	"github.com/fairyhunter13/trendpulse/internal/domain"
	"github.com/fairyhunter13/trendpulse/internal/domain/mocks"
	"github.com/fairyhunter13/trendpulse/internal/service/retry"
	"github.com/fairyhunter13/trendpulse/internal/usecase"
)

func newRouter(t *testing.T, cfg config.Config, client *mocks.MockGenAIClient, checks ...httpserver.ReadinessCheck) http.Handler {
	t.Helper()
	gen := usecase.NewGenerator(client, usecase.Models{Text: "t", Chat: "c", Image: "i", Video: "v"}, retry.Policy{BaseDelay: time.Millisecond})
	srv := httpserver.NewServer(cfg,
		usecase.NewTrendService(gen, nil, 0, nil),
		usecase.NewContentService(gen, 0, time.Millisecond),
		usecase.NewAnalysisService(gen),
		usecase.NewChatService(gen, nil, 0),
		checks...,
	)
	return app.BuildRouter(cfg, srv)
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestBuildRouter_HealthEndpoints(t *testing.T) {
	failing := httpserver.ReadinessCheck{Name: "db", Check: func(context.Context) error { return errors.New("down") }}
	h := newRouter(t, config.Config{}, &mocks.MockGenAIClient{}, failing)

	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, httptest.NewRequest(http.MethodGet, "/readyz", nil)).Code)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"TrendPulse Backend Online"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestBuildRouter_RoutesToHandlers(t *testing.T) {
	client := &mocks.MockGenAIClient{}
	client.On("GenerateText", mock.Anything, mock.Anything).Return(domain.TextResponse{Text: "hello"}, nil).Once()
	h := newRouter(t, config.Config{}, client)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"hello"}`, rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/trends/archive", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no archive without a database")

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBuildRouter_BasicAuth(t *testing.T) {
	hash, err := httpserver.HashPassword("pw", httpserver.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLen: 8, KeyLen: 16})
	require.NoError(t, err)
	cfg := config.Config{ProxyUsername: "team", ProxyPasswordHash: hash}
	h := newRouter(t, cfg, &mocks.MockGenAIClient{})

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/trends", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/trends", strings.NewReader(`{}`))
	req.SetBasicAuth("team", "pw")
	assert.Equal(t, http.StatusBadRequest, serve(h, req).Code, "authenticated, then validated")

	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/api/health", nil)).Code, "health stays open")
}

func TestBuildRouter_RateLimited(t *testing.T) {
	h := newRouter(t, config.Config{RateLimitPerMin: 1}, &mocks.MockGenAIClient{})

	first := serve(h, httptest.NewRequest(http.MethodPost, "/api/trends", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := serve(h, httptest.NewRequest(http.MethodPost, "/api/trends", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), `"RATE_LIMITED"`)
}

func TestBuildRouter_RateLimitCoversFailedLogins(t *testing.T) {
	hash, err := httpserver.HashPassword("pw", httpserver.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLen: 8, KeyLen: 16})
	require.NoError(t, err)
	h := newRouter(t, config.Config{ProxyUsername: "team", ProxyPasswordHash: hash, RateLimitPerMin: 2}, &mocks.MockGenAIClient{})

	guess := func(pass string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/trends", strings.NewReader(`{}`))
		req.SetBasicAuth("team", pass)
		return serve(h, req)
	}
	assert.Equal(t, http.StatusUnauthorized, guess("a").Code)
	assert.Equal(t, http.StatusUnauthorized, guess("b").Code)

	third := guess("pw")
	assert.Equal(t, http.StatusTooManyRequests, third.Code, "wrong passwords exhaust the per-IP budget")
	assert.Contains(t, third.Body.String(), `"RATE_LIMITED"`)
}

func TestBuildRouter_CORSPreflight(t *testing.T) {
	h := newRouter(t, config.Config{CORSAllowOrigins: "https://app.example"}, &mocks.MockGenAIClient{})
	req := httptest.NewRequest(http.MethodOptions, "/api/trends", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
