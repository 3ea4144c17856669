package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/trendpulse/internal/adapter/ai"
	obs "github.com/fairyhunter13/trendpulse/internal/adapter/observability"
	"github.com/fairyhunter13/trendpulse/internal/domain"
	"github.com/fairyhunter13/trendpulse/internal/observability"
)

const (
	defaultArchiveLimit = 20
	maxArchiveLimit     = 100
)

// TrendService discovers current trends and serves archived ones.
type TrendService struct {
	Gen      *Generator
	Cache    domain.Cache
	CacheTTL time.Duration
	Store    domain.TrendArchive
	newID    func() string
}

// NewTrendService constructs a TrendService. cache and store may be nil.
func NewTrendService(gen *Generator, cache domain.Cache, ttl time.Duration, store domain.TrendArchive) *TrendService {
	return &TrendService{Gen: gen, Cache: cache, CacheTTL: ttl, Store: store, newID: newTrendID}
}

func newTrendID() string { return "trend-" + uuid.NewString() }

// Fetch returns the current trends for a category, serving from cache when possible.
func (s *TrendService) Fetch(ctx domain.Context, category string, lang domain.Language) ([]domain.Trend, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("%w: category required", domain.ErrInvalidArgument)
	}
	lg := observability.LoggerFromContext(ctx)

	key := ai.KeyFor("trends", category, string(lang))
	if s.Cache != nil {
		var cached []domain.Trend
		hit, err := s.Cache.Get(ctx, key, &cached)
		if err != nil {
			lg.Warn("trend cache read failed", slog.String("category", category), slog.Any("error", err))
		}
		obs.RecordCacheLookup("trends", hit && err == nil)
		if hit && err == nil {
			return cached, nil
		}
	}

	trends, err := s.generate(ctx, category, lang)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil && s.CacheTTL > 0 && len(trends) > 0 {
		if err := s.Cache.Set(ctx, key, trends, s.CacheTTL); err != nil {
			lg.Warn("trend cache write failed", slog.String("category", category), slog.Any("error", err))
		}
	}
	return trends, nil
}

// generate always asks the model; the worker uses it to bypass the cache.
func (s *TrendService) generate(ctx domain.Context, category string, lang domain.Language) ([]domain.Trend, error) {
	var out struct {
		Trends []domain.Trend `json:"trends"`
	}
	req := domain.TextRequest{
		Model:          s.Gen.Models.Text,
		Prompt:         trendPrompt(category, lang),
		ResponseSchema: trendSchema,
	}
	if err := s.Gen.JSON(ctx, "trends.fetch", req, &out); err != nil {
		return nil, err
	}
	trends := make([]domain.Trend, 0, len(out.Trends))
	for _, t := range out.Trends {
		// ids are ours, never the model's
		t.ID = s.newID()
		if t.Category == "" {
			t.Category = category
		}
		t.Hashtags = orEmpty(t.Hashtags)
		t.UGCExamples = orEmpty(t.UGCExamples)
		trends = append(trends, t)
	}
	return trends, nil
}

// Archive returns the most recently archived trends, newest first. An empty
// category matches all categories.
func (s *TrendService) Archive(ctx domain.Context, category string, limit int) ([]domain.ArchivedTrend, error) {
	if s.Store == nil {
		return nil, fmt.Errorf("%w: trend archive not configured", domain.ErrNotFound)
	}
	switch {
	case limit <= 0:
		limit = defaultArchiveLimit
	case limit > maxArchiveLimit:
		limit = maxArchiveLimit
	}
	trends, err := s.Store.Latest(ctx, strings.TrimSpace(category), limit)
	if err != nil {
		return nil, fmt.Errorf("op=usecase.trends.archive: %w", err)
	}
	if trends == nil {
		trends = []domain.ArchivedTrend{}
	}
	return trends, nil
}
