package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const importLockKey = "roster:import:lock"

// releaseScript deletes the lock only if this run still holds it. Without
// the token check a slow run whose lease expired could release the lock a
// newer run now owns.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// ImportLock is the single-flight guard: at most one import run holds it at
// a time. Acquire returns a release function that must run in a guaranteed
// cleanup after uploading finishes or fails.
type ImportLock interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// NoopImportLock performs no locking. Used when Redis is not configured,
// matching the source system's historical (unguarded) behavior.
type NoopImportLock struct{}

// Acquire always succeeds and releases nothing.
func (NoopImportLock) Acquire(ctx context.Context) (func(), error) {
	return func() {}, nil
}

// RedisImportLock is a leased mutex over a Redis marker key: SETNX with a
// TTL so a crashed run cannot wedge imports forever, and a per-run lease
// token checked on release.
type RedisImportLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisImportLock creates a lock with the given lease TTL. The TTL must
// exceed the longest plausible import run; an expired lease admits a second
// run while the first is still writing.
func NewRedisImportLock(client *redis.Client, ttl time.Duration) *RedisImportLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisImportLock{
		client: client,
		ttl:    ttl,
	}
}

// Acquire takes the lock or fails with ErrImportInProgress when another run
// holds it.
func (l *RedisImportLock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, importLockKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire import lock: %w", err)
	}
	if !ok {
		return nil, ErrImportInProgress
	}

	release := func() {
		// Release is best effort: if Redis is unreachable here the
		// lease TTL still frees the lock.
		releaseScript.Run(context.Background(), l.client, []string{importLockKey}, token)
	}
	return release, nil
}
