package app

import (
	"context"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/trendpulse/internal/adapter/httpserver"
)

// Pinger is the minimal interface for a dependency capable of Ping, such as
// a pgx pool or a Kafka client.
type Pinger interface{ Ping(ctx context.Context) error }

// RedisPingResult is the minimal return type of a Redis client's Ping.
type RedisPingResult interface{ Err() error }

// RedisClient is the minimal interface for a Redis client needed for readiness.
type RedisClient interface{ Ping(ctx context.Context) RedisPingResult }

type redisAdapter struct{ c *redis.Client }

func (a redisAdapter) Ping(ctx context.Context) RedisPingResult { return a.c.Ping(ctx) }

// WrapRedis adapts a go-redis client to RedisClient.
func WrapRedis(c *redis.Client) RedisClient { return redisAdapter{c: c} }

// BuildReadinessChecks returns one check per configured dependency. Nil
// dependencies are optional infrastructure and are skipped.
func BuildReadinessChecks(pool Pinger, rdb RedisClient, kafka Pinger) []httpserver.ReadinessCheck {
	var checks []httpserver.ReadinessCheck
	if pool != nil {
		checks = append(checks, httpserver.ReadinessCheck{Name: "db", Check: pool.Ping})
	}
	if rdb != nil {
		checks = append(checks, httpserver.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	if kafka != nil {
		checks = append(checks, httpserver.ReadinessCheck{Name: "kafka", Check: kafka.Ping})
	}
	return checks
}
