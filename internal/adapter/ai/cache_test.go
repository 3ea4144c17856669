package ai

import (
	"context"
	"testing"
	"time"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

func Test_MemoryCache_RoundTrip(t *testing.T) {
	c := NewMemoryCache(8)
	ctx := context.Background()
	in := []domain.Trend{{ID: "trend-1", Name: "Silent Review", Hashtags: []string{"#fyp"}}}
	if err := c.Set(ctx, "trends:tech", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out []domain.Trend
	hit, err := c.Get(ctx, "trends:tech", &out)
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if len(out) != 1 || out[0].Name != "Silent Review" {
		t.Fatalf("unexpected value: %+v", out)
	}

	hit, _ = c.Get(ctx, "trends:other", &out)
	if hit {
		t.Fatalf("expected miss")
	}
}

func Test_MemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(8)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()
	if err := c.Set(ctx, "k", "v", time.Second); err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time { return now.Add(2 * time.Second) }
	var s string
	if hit, _ := c.Get(ctx, "k", &s); hit {
		t.Fatalf("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be dropped, len=%d", c.Len())
	}
}

func Test_MemoryCache_FIFOEviction(t *testing.T) {
	c := NewMemoryCache(2)
	ctx := context.Background()
	_ = c.Set(ctx, "a", 1, 0)
	_ = c.Set(ctx, "b", 2, 0)
	_ = c.Set(ctx, "a", 10, 0) // overwrite keeps insertion slot
	_ = c.Set(ctx, "c", 3, 0)

	var v int
	if hit, _ := c.Get(ctx, "a", &v); hit {
		t.Fatalf("oldest entry should have been evicted")
	}
	if hit, _ := c.Get(ctx, "c", &v); !hit || v != 3 {
		t.Fatalf("newest entry missing")
	}
	if c.Len() != 2 {
		t.Fatalf("len=%d", c.Len())
	}
}

func Test_MemoryCache_ExpiredThenReinsertedSurvivesEviction(t *testing.T) {
	c := NewMemoryCache(2)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()
	_ = c.Set(ctx, "a", 1, time.Second)
	c.now = func() time.Time { return now.Add(2 * time.Second) }

	var v int
	if hit, _ := c.Get(ctx, "a", &v); hit {
		t.Fatalf("expected expired entry to miss")
	}
	_ = c.Set(ctx, "a", 2, 0)
	_ = c.Set(ctx, "b", 3, 0)

	if hit, _ := c.Get(ctx, "a", &v); !hit || v != 2 {
		t.Fatalf("re-inserted entry was evicted: hit=%v v=%d", hit, v)
	}
	if hit, _ := c.Get(ctx, "b", &v); !hit || v != 3 {
		t.Fatalf("second entry missing")
	}
	if c.Len() != 2 {
		t.Fatalf("len=%d", c.Len())
	}
}

func Test_KeyFor_Normalises(t *testing.T) {
	a := KeyFor("trends", "Technik & AI", "de")
	b := KeyFor("trends", "  technik & ai ", "DE")
	if a != b {
		t.Fatalf("expected normalised keys to match: %s vs %s", a, b)
	}
	if KeyFor("trends", "x", "de") == KeyFor("trends", "x", "en") {
		t.Fatalf("language must be part of the key")
	}
	if KeyFor("trends", "ab", "c") == KeyFor("trends", "a", "bc") {
		t.Fatalf("parts must be separated")
	}
}
