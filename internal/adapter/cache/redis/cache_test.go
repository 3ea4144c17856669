package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/trendpulse/internal/adapter/cache/redis"
	"github.com/fairyhunter13/trendpulse/internal/domain"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, redis.New(rdb, "tp:")
}

func TestCache_RoundTripAndTTL(t *testing.T) {
	mr, c := setup(t)
	ctx := context.Background()

	in := []domain.Trend{{ID: "trend-1", Name: "Silent Disco", Hashtags: []string{"#a"}}}
	require.NoError(t, c.Set(ctx, "trends:abc", in, time.Minute))
	assert.True(t, mr.Exists("tp:trends:abc"))
	assert.Equal(t, time.Minute, mr.TTL("tp:trends:abc"))

	var out []domain.Trend
	hit, err := c.Get(ctx, "trends:abc", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, in, out)

	mr.FastForward(2 * time.Minute)
	hit, err = c.Get(ctx, "trends:abc", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_MissAndCorruptEntry(t *testing.T) {
	mr, c := setup(t)
	ctx := context.Background()

	var out map[string]any
	hit, err := c.Get(ctx, "nope", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, mr.Set("tp:bad", "{not json"))
	hit, err = c.Get(ctx, "bad", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists("tp:bad"), "corrupt entry removed")
}

func TestCache_ServerDown(t *testing.T) {
	mr, c := setup(t)
	mr.Close()

	var out any
	_, err := c.Get(context.Background(), "k", &out)
	assert.ErrorContains(t, err, "op=cache.get")
	assert.ErrorContains(t, c.Set(context.Background(), "k", 1, time.Second), "op=cache.set")
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := redis.NewClient("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	_, err = redis.NewClient("http://bad")
	assert.Error(t, err)
}
