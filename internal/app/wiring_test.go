package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/trendpulse/internal/adapter/ai"
	rediscache "github.com/fairyhunter13/trendpulse/internal/adapter/cache/redis"
	"github.com/fairyhunter13/trendpulse/internal/config"
)

func TestOpenInfra_NothingConfigured(t *testing.T) {
	inf, err := OpenInfra(context.Background(), config.Config{}, true)
	require.NoError(t, err)
	defer inf.Close()

	assert.Nil(t, inf.Archive())
	assert.Nil(t, inf.ScanPublisher())
	assert.Empty(t, inf.ReadinessChecks())
	assert.IsType(t, &ai.MemoryCache{}, inf.Cache(16))
}

func TestOpenInfra_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	inf, err := OpenInfra(context.Background(), config.Config{RedisURL: "redis://" + mr.Addr()}, false)
	require.NoError(t, err)
	defer inf.Close()

	require.NotNil(t, inf.Redis)
	assert.IsType(t, &rediscache.Cache{}, inf.Cache(16))

	checks := inf.ReadinessChecks()
	require.Len(t, checks, 1)
	assert.Equal(t, "redis", checks[0].Name)
	assert.NoError(t, checks[0].Check(context.Background()))
}

func TestOpenInfra_BadRedisURL(t *testing.T) {
	inf, err := OpenInfra(context.Background(), config.Config{RedisURL: "://nope"}, false)
	require.Error(t, err)
	assert.Nil(t, inf.Redis)
}

func TestNewGenerator(t *testing.T) {
	cfg := config.Config{
		AppEnv:      "test",
		APIKey:      "k",
		TextModel:   "text",
		ChatModel:   "chat",
		ImageModel:  "image",
		VideoModel:  "video",
		AIRetryMax:  3,
		UpstreamRPM: 60,
	}

	gen := NewGenerator(cfg, nil)
	assert.IsType(t, &ai.CircuitBreakerClient{}, gen.AI)
	assert.Equal(t, "chat", gen.Models.Chat)
	assert.Equal(t, 3, gen.Policy.MaxRetries)

	mr := miniredis.RunT(t)
	rdb, err := rediscache.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	defer rdb.Close()

	gen = NewGenerator(cfg, rdb)
	assert.IsType(t, &ai.LimitedClient{}, gen.AI)

	cfg.UpstreamRPM = 0
	gen = NewGenerator(cfg, rdb)
	assert.IsType(t, &ai.CircuitBreakerClient{}, gen.AI)
}
