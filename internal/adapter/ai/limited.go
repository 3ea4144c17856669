package ai

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/trendpulse/internal/domain"
	"github.com/fairyhunter13/trendpulse/internal/observability"
	"github.com/fairyhunter13/trendpulse/internal/service/ratelimiter"
)

// LimitedClient spends one token from a per-model bucket before each
// upstream call. An empty bucket is reported as an upstream quota error so
// that the retry wrapper backs off exactly as it would for a real 429.
type LimitedClient struct {
	base    domain.GenAIClient
	limiter ratelimiter.Limiter
}

// NewLimitedClient returns base unchanged when limiter is nil.
func NewLimitedClient(base domain.GenAIClient, limiter ratelimiter.Limiter) domain.GenAIClient {
	if limiter == nil {
		return base
	}
	return &LimitedClient{base: base, limiter: limiter}
}

func (c *LimitedClient) take(ctx domain.Context, key, operation string) error {
	allowed, retryAfter, err := c.limiter.Allow(ctx, key, 1)
	if err != nil {
		// limiter fails open
		observability.LoggerFromContext(ctx).Warn("upstream limiter unavailable", slog.String("key", key), slog.Any("error", err))
		return nil
	}
	if allowed {
		return nil
	}
	return &domain.UpstreamError{
		Operation:  operation,
		StatusCode: 429,
		Status:     "RESOURCE_EXHAUSTED",
		Message:    fmt.Sprintf("local budget for %s exhausted, retry after %s", key, retryAfter.Round(time.Millisecond)),
	}
}

func (c *LimitedClient) GenerateText(ctx domain.Context, req domain.TextRequest) (domain.TextResponse, error) {
	if err := c.take(ctx, req.Model, "generateContent"); err != nil {
		return domain.TextResponse{}, err
	}
	return c.base.GenerateText(ctx, req)
}

func (c *LimitedClient) GenerateImage(ctx domain.Context, req domain.ImageRequest) (domain.GeneratedImage, error) {
	if err := c.take(ctx, req.Model, "predict"); err != nil {
		return domain.GeneratedImage{}, err
	}
	return c.base.GenerateImage(ctx, req)
}

func (c *LimitedClient) StartVideo(ctx domain.Context, req domain.VideoRequest) (string, error) {
	if err := c.take(ctx, req.Model, "predictLongRunning"); err != nil {
		return "", err
	}
	return c.base.StartVideo(ctx, req)
}

// PollVideo and Download are not metered; they do not consume model quota.
func (c *LimitedClient) PollVideo(ctx domain.Context, operation string) (domain.VideoOperation, error) {
	return c.base.PollVideo(ctx, operation)
}

func (c *LimitedClient) Download(ctx domain.Context, uri string) ([]byte, error) {
	return c.base.Download(ctx, uri)
}
