// Package cache provides the Redis-backed suppression membership cache.
// Senders hit the membership check before every dispatch, so the hot path
// reads Redis and falls through to Postgres only on a miss. Mutations
// (suppress, release) invalidate rather than update, keeping the cache a
// strict read-through.
package cache

import (
	"context"
	"time"

	"github.com/ignite/suppression-hub/internal/domain"
	"github.com/ignite/suppression-hub/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "suppression:member:"

// SuppressionCache implements suppression.MembershipCache on Redis.
// Cache errors degrade to misses: Redis being down slows checks, it never
// breaks them.
type SuppressionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a membership cache. ttl bounds staleness for entries that are
// never explicitly invalidated (e.g. writes from another deployment).
func New(client *redis.Client, ttl time.Duration) *SuppressionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SuppressionCache{client: client, ttl: ttl}
}

// Get returns (suppressed, hit).
func (c *SuppressionCache) Get(ctx context.Context, emailNormalized string) (bool, bool) {
	val, err := c.client.Get(ctx, keyPrefix+emailNormalized).Result()
	if err == redis.Nil {
		return false, false
	}
	if err != nil {
		logger.Debug("cache: get failed, treating as miss", "error", err)
		return false, false
	}
	return val == "1", true
}

// Set records the membership result of a repository read.
func (c *SuppressionCache) Set(ctx context.Context, emailNormalized string, suppressed bool) {
	val := "0"
	if suppressed {
		val = "1"
	}
	if err := c.client.Set(ctx, keyPrefix+emailNormalized, val, c.ttl).Err(); err != nil {
		logger.Debug("cache: set failed", "error", err)
	}
}

// Invalidate drops the entry after a suppression-state mutation.
func (c *SuppressionCache) Invalidate(ctx context.Context, emailNormalized string) {
	if err := c.client.Del(ctx, keyPrefix+emailNormalized).Err(); err != nil {
		logger.Debug("cache: invalidate failed", "error", err)
	}
}

// Suppressed lets the cache double as a feedback.SuppressionSink: a fresh
// suppression invalidates the (possibly "not suppressed") cached entry.
func (c *SuppressionCache) Suppressed(ctx context.Context, _, emailNormalized string, _ domain.SuppressionReason) {
	c.Invalidate(ctx, emailNormalized)
}

// Released implements suppression.ReleaseSink.
func (c *SuppressionCache) Released(ctx context.Context, emailNormalized string) {
	c.Invalidate(ctx, emailNormalized)
}
