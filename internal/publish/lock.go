// internal/publish/lock.go
package publish

import (
	"context"
	"fmt"
	"time"
)

// Locker serializes publish runs per content item.
type Locker interface {
	Acquire(ctx context.Context, contentItemID string) (release func(), err error)
}

// ErrAlreadyLocked is returned when another run holds the lock.
var ErrAlreadyLocked = fmt.Errorf("publish already in progress")

// LockStore is the key-value surface the lock needs; satisfied by
// database.RedisClient.
type LockStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLocker takes a best-effort advisory lock in Redis so two
// concurrent publish requests for the same item cannot double-post.
// The TTL bounds how long a crashed run can hold the item hostage.
type RedisLocker struct {
	store LockStore
	ttl   time.Duration
}

func NewRedisLocker(store LockStore, ttl time.Duration) *RedisLocker {
	return &RedisLocker{store: store, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, contentItemID string) (func(), error) {
	key := lockKey(contentItemID)

	ok, err := l.store.SetNX(ctx, key, "1", l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire publish lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyLocked
	}

	release := func() {
		// Release runs on a fresh context so a cancelled run still
		// frees the lock.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.store.Del(ctx, key)
	}
	return release, nil
}

func lockKey(contentItemID string) string {
	return "pipeline:publish:lock:" + contentItemID
}
