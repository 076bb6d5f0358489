package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*SummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSummaryCache(client, ttl), mr
}

func TestSummaryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Hour)

	if _, ok := c.Get(ctx, "book-1"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set(ctx, "book-1", "a fine summary")
	got, ok := c.Get(ctx, "book-1")
	if !ok || got != "a fine summary" {
		t.Fatalf("Get = (%q, %v)", got, ok)
	}
}

func TestSummaryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)

	c.Set(ctx, "book-1", "short lived")
	mr.FastForward(2 * time.Minute)
	if _, ok := c.Get(ctx, "book-1"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestSummaryCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Hour)

	c.Set(ctx, "book-1", "soon gone")
	c.Invalidate(ctx, "book-1")
	if _, ok := c.Get(ctx, "book-1"); ok {
		t.Fatal("expected invalidated entry to miss")
	}
}

func TestSummaryCacheNilIsAlwaysMiss(t *testing.T) {
	ctx := context.Background()
	var c *SummaryCache
	c.Set(ctx, "book-1", "ignored")
	if _, ok := c.Get(ctx, "book-1"); ok {
		t.Fatal("nil cache must always miss")
	}
	c.Invalidate(ctx, "book-1")
}

func TestSummaryCacheIgnoresEmptyValues(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Hour)
	c.Set(ctx, "", "x")
	c.Set(ctx, "book-1", "")
	if _, ok := c.Get(ctx, "book-1"); ok {
		t.Fatal("empty summary must not be cached")
	}
}
