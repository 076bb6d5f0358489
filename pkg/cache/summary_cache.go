// Package cache keeps AI-generated summaries in Redis so repeat requests
// for the same book do not re-hit the generative API.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "flipbook:summary:"
	defaultTTL = 7 * 24 * time.Hour
)

// SummaryCache stores summaries keyed by book ID. A nil *SummaryCache is
// valid and behaves as an always-miss cache.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache wraps an existing Redis client. ttl <= 0 selects the
// default of one week.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SummaryCache{client: client, ttl: ttl}
}

// Get returns the cached summary for a book, if any. Redis failures count
// as a miss.
func (c *SummaryCache) Get(ctx context.Context, bookID string) (string, bool) {
	if c == nil || c.client == nil || bookID == "" {
		return "", false
	}
	val, err := c.client.Get(ctx, keyPrefix+bookID).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores a summary with the configured TTL. Failures are ignored; the
// cache is purely an optimization.
func (c *SummaryCache) Set(ctx context.Context, bookID, summary string) {
	if c == nil || c.client == nil || bookID == "" || summary == "" {
		return
	}
	_ = c.client.Set(ctx, keyPrefix+bookID, summary, c.ttl).Err()
}

// Invalidate drops the cached summary, used when a book is removed.
func (c *SummaryCache) Invalidate(ctx context.Context, bookID string) {
	if c == nil || c.client == nil || bookID == "" {
		return
	}
	_ = c.client.Del(ctx, keyPrefix+bookID).Err()
}
