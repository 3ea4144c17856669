package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/trendpulse/internal/adapter/ai"
	"github.com/fairyhunter13/trendpulse/internal/adapter/ai/gemini"
	rediscache "github.com/fairyhunter13/trendpulse/internal/adapter/cache/redis"
	httpserver "github.com/fairyhunter13/trendpulse/internal/adapter/httpserver"
	"github.com/fairyhunter13/trendpulse/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/trendpulse/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/trendpulse/internal/config"
	"github.com/fairyhunter13/trendpulse/internal/domain"
	"github.com/fairyhunter13/trendpulse/internal/service/ratelimiter"
	"github.com/fairyhunter13/trendpulse/internal/service/retry"
	"github.com/fairyhunter13/trendpulse/internal/usecase"
)

// Infra holds the optional backing services. Unconfigured ones stay nil.
type Infra struct {
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Publisher *redpanda.Publisher
}

// OpenInfra connects to every backing service the configuration names.
// Already opened connections are closed when a later one fails.
func OpenInfra(ctx context.Context, cfg config.Config, publish bool) (inf Infra, err error) {
	defer func() {
		if err != nil {
			inf.Close()
			inf = Infra{}
		}
	}()

	if cfg.ArchiveEnabled() {
		if inf.Pool, err = postgres.NewPool(ctx, cfg.DBURL); err != nil {
			return inf, err
		}
		if err = postgres.NewTrendArchive(inf.Pool).EnsureSchema(ctx); err != nil {
			return inf, err
		}
		slog.Info("trend archive enabled")
	}
	if cfg.CacheEnabled() {
		if inf.Redis, err = rediscache.NewClient(cfg.RedisURL); err != nil {
			return inf, err
		}
		slog.Info("redis enabled")
	}
	if publish && cfg.PublishEnabled() {
		if inf.Publisher, err = redpanda.NewPublisher(ctx, cfg.KafkaBrokers, cfg.ScanTopic); err != nil {
			return inf, fmt.Errorf("op=app.OpenInfra: %w", err)
		}
	}
	return inf, nil
}

// Close releases whatever was opened.
func (i Infra) Close() {
	if i.Publisher != nil {
		i.Publisher.Close()
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			slog.Warn("redis close failed", slog.Any("error", err))
		}
	}
	if i.Pool != nil {
		i.Pool.Close()
	}
}

// Archive returns the trend archive port, or nil without a database.
func (i Infra) Archive() domain.TrendArchive {
	if i.Pool == nil {
		return nil
	}
	return postgres.NewTrendArchive(i.Pool)
}

// ScanPublisher returns the scan event port, or nil without brokers.
func (i Infra) ScanPublisher() domain.ScanPublisher {
	if i.Publisher == nil {
		return nil
	}
	return i.Publisher
}

// Cache returns the shared Redis cache, falling back to an in-process one.
func (i Infra) Cache(size int) domain.Cache {
	if i.Redis == nil {
		return ai.NewMemoryCache(size)
	}
	return rediscache.New(i.Redis, "trendpulse:")
}

// ReadinessChecks lists a check per opened dependency.
func (i Infra) ReadinessChecks() []httpserver.ReadinessCheck {
	var (
		pool  Pinger
		rdb   RedisClient
		kafka Pinger
	)
	if i.Pool != nil {
		pool = i.Pool
	}
	if i.Redis != nil {
		rdb = WrapRedis(i.Redis)
	}
	if i.Publisher != nil {
		kafka = i.Publisher
	}
	return BuildReadinessChecks(pool, rdb, kafka)
}

// NewGenerator builds the upstream client chain shared by both binaries:
// gemini, then the circuit breaker, then the shared Redis token bucket.
func NewGenerator(cfg config.Config, rdb *redis.Client) *usecase.Generator {
	var client domain.GenAIClient = gemini.New(cfg)
	client = ai.NewCircuitBreakerClient(client, ai.NewCircuitBreakerManager())
	if rdb != nil && cfg.UpstreamRPM > 0 {
		limiter := ratelimiter.NewRedisLuaLimiter(rdb, ratelimiter.NewBucketConfigFromPerMinute(cfg.UpstreamRPM))
		client = ai.NewLimitedClient(client, limiter)
	}
	base, jitter := cfg.RetryDelays()
	return usecase.NewGenerator(client, usecase.Models{
		Text:  cfg.TextModel,
		Chat:  cfg.ChatModel,
		Image: cfg.ImageModel,
		Video: cfg.VideoModel,
	}, retry.Policy{MaxRetries: cfg.AIRetryMax, BaseDelay: base, MaxJitter: jitter})
}
