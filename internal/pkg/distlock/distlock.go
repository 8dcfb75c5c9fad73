// Package distlock serializes periodic jobs across service replicas. The
// suppression hub runs one background job, the SES account reconciler, and
// only one instance should walk the account list per tick.
package distlock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is a try-lock: Acquire never blocks waiting for the holder.
// A lock value is owned by one goroutine; share the backend, not the lock.
type DistLock interface {
	// Acquire reports whether this instance now holds the lock.
	Acquire(ctx context.Context) (bool, error)
	// Release frees the lock if still held by this instance.
	Release(ctx context.Context) error
}

// NewLock picks a backend: redis when a client is configured (works across
// hosts), otherwise a Postgres advisory lock on the primary database.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewPGAdvisoryLock(db, key)
}

// PGAdvisoryLock holds a session-scoped pg advisory lock. The database
// releases it if the holding connection drops, which stands in for the TTL
// expiry the redis variant gets.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
}

// NewPGAdvisoryLock derives a stable 64-bit lock id from key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire uses pg_try_advisory_lock, which returns immediately either way.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired)
	return acquired, err
}

// Release unlocks the advisory lock for this session.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
