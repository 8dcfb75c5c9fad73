package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/suppression-hub/internal/domain"
)

func newTestCache(t *testing.T) (*SuppressionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, time.Minute), mr
}

func TestGetMissThenHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if _, hit := c.Get(ctx, "user@example.com"); hit {
		t.Error("empty cache must miss")
	}

	c.Set(ctx, "user@example.com", true)
	suppressed, hit := c.Get(ctx, "user@example.com")
	if !hit {
		t.Fatal("expected a hit after Set")
	}
	if !suppressed {
		t.Error("cached value must be suppressed=true")
	}

	c.Set(ctx, "clean@example.com", false)
	suppressed, hit = c.Get(ctx, "clean@example.com")
	if !hit || suppressed {
		t.Error("negative membership must also be cached")
	}
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "user@example.com", true)
	c.Invalidate(ctx, "user@example.com")

	if _, hit := c.Get(ctx, "user@example.com"); hit {
		t.Error("invalidated entry must miss")
	}
}

func TestEntriesExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "user@example.com", true)
	mr.FastForward(2 * time.Minute)

	if _, hit := c.Get(ctx, "user@example.com"); hit {
		t.Error("entry must expire after the TTL")
	}
}

func TestSinkCallbacksInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "user@example.com", false)
	c.Suppressed(ctx, "User@Example.com", "user@example.com", domain.ReasonHardBounce)
	if _, hit := c.Get(ctx, "user@example.com"); hit {
		t.Error("suppression transition must invalidate the entry")
	}

	c.Set(ctx, "user@example.com", true)
	c.Released(ctx, "user@example.com")
	if _, hit := c.Get(ctx, "user@example.com"); hit {
		t.Error("release must invalidate the entry")
	}
}

func TestRedisDownDegradesToMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "user@example.com", true)
	mr.Close()

	if _, hit := c.Get(ctx, "user@example.com"); hit {
		t.Error("a dead backend must read as a miss, not an error")
	}
	// Writes must not panic either.
	c.Set(ctx, "other@example.com", true)
	c.Invalidate(ctx, "other@example.com")
}
