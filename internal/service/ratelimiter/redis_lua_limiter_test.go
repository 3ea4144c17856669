package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLuaLimiter(t *testing.T, fallback BucketConfig) (*RedisLuaLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisLuaLimiter(rdb, fallback), mr
}

func TestNewRedisLuaLimiter_NilClient(t *testing.T) {
	if l := NewRedisLuaLimiter(nil, BucketConfig{Capacity: 1, RefillRate: 1}); l != nil {
		t.Fatalf("expected nil limiter without redis client")
	}
}

func TestAllow_NilLimiter_FailOpen(t *testing.T) {
	var limiter *RedisLuaLimiter

	allowed, retryAfter, err := limiter.Allow(context.Background(), "any", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed to be true for nil limiter")
	}
	if retryAfter != 0 {
		t.Fatalf("expected zero retryAfter, got %v", retryAfter)
	}
}

func TestAllow_NoBucketConfig_FailOpen(t *testing.T) {
	limiter, _ := newTestRedisLuaLimiter(t, BucketConfig{})

	allowed, retryAfter, err := limiter.Allow(context.Background(), "unknown-bucket", 1)
	if err != nil || !allowed || retryAfter != 0 {
		t.Fatalf("expected fail-open, got allowed=%v retryAfter=%v err=%v", allowed, retryAfter, err)
	}
}

func TestAllow_WithBucket_RespectsCapacityAndRetryAfter(t *testing.T) {
	limiter, _ := newTestRedisLuaLimiter(t, BucketConfig{})
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }

	key := "gemini-2.5-flash"
	limiter.SetBucketConfig(key, BucketConfig{Capacity: 3, RefillRate: 0.5})

	for i := 0; i < 3; i++ {
		allowed, retryAfter, err := limiter.Allow(context.Background(), key, 1)
		if err != nil {
			t.Fatalf("unexpected error on allowed call %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("expected allowed=true on call %d", i)
		}
		if retryAfter != 0 {
			t.Fatalf("expected retryAfter=0 on allowed call %d, got %v", i, retryAfter)
		}
	}

	allowed, retryAfter, err := limiter.Allow(context.Background(), key, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter to deny once capacity exhausted")
	}
	if retryAfter != 2*time.Second {
		t.Fatalf("expected 2s retryAfter at 0.5 tokens/s, got %v", retryAfter)
	}

	now = now.Add(2 * time.Second)
	if allowed, _, _ := limiter.Allow(context.Background(), key, 1); !allowed {
		t.Fatalf("expected a token after refill")
	}
}

func TestAllow_FallbackBucketPerKey(t *testing.T) {
	limiter, mr := newTestRedisLuaLimiter(t, NewBucketConfigFromPerMinute(1))
	ctx := context.Background()

	if allowed, _, _ := limiter.Allow(ctx, "model-a", 1); !allowed {
		t.Fatalf("first call on model-a should pass")
	}
	if allowed, _, _ := limiter.Allow(ctx, "model-a", 1); allowed {
		t.Fatalf("second call on model-a should be limited")
	}
	if allowed, _, _ := limiter.Allow(ctx, "model-b", 1); !allowed {
		t.Fatalf("model-b has its own bucket")
	}
	if ttl := mr.TTL("rate:model-a"); ttl <= 0 {
		t.Fatalf("expected bucket key to expire, ttl=%v", ttl)
	}
}

func TestAllow_RedisDown_FailsOpenWithError(t *testing.T) {
	limiter, mr := newTestRedisLuaLimiter(t, NewBucketConfigFromPerMinute(10))
	mr.Close()

	allowed, _, err := limiter.Allow(context.Background(), "k", 1)
	if err == nil {
		t.Fatalf("expected error when redis is unavailable")
	}
	if !allowed {
		t.Fatalf("expected fail-open on redis error")
	}
}

func TestNewBucketConfigFromPerMinute(t *testing.T) {
	cfg := NewBucketConfigFromPerMinute(60)
	if cfg.Capacity != 60 {
		t.Fatalf("Capacity = %d, want 60", cfg.Capacity)
	}
	if cfg.RefillRate != 1.0 {
		t.Fatalf("RefillRate = %v, want 1.0", cfg.RefillRate)
	}

	zero := NewBucketConfigFromPerMinute(0)
	if zero.Capacity != 0 || zero.RefillRate != 0 {
		t.Fatalf("expected zero config for non-positive perMinute, got %+v", zero)
	}
}

func TestRedisLuaLimiter_SetBucketConfigNilSafe(_ *testing.T) {
	var limiter *RedisLuaLimiter
	limiter.SetBucketConfig("key", BucketConfig{Capacity: 1, RefillRate: 1})
}
