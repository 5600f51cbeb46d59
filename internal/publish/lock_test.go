// internal/publish/lock_test.go
package publish

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"delivery-pipeline/internal/common/config"
	"delivery-pipeline/internal/common/database"
)

func newMiniLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	assert.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewRedisLocker(client, ttl), mr
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	locker, mr := newMiniLocker(t, time.Minute)

	release, err := locker.Acquire(context.Background(), "c-1")
	assert.NoError(t, err)
	assert.True(t, mr.Exists("pipeline:publish:lock:c-1"))

	release()
	assert.False(t, mr.Exists("pipeline:publish:lock:c-1"))
}

func TestRedisLocker_SecondAcquireFails(t *testing.T) {
	locker, _ := newMiniLocker(t, time.Minute)

	release, err := locker.Acquire(context.Background(), "c-1")
	assert.NoError(t, err)
	defer release()

	_, err = locker.Acquire(context.Background(), "c-1")
	assert.ErrorIs(t, err, ErrAlreadyLocked)
}

func TestRedisLocker_DifferentItemsDoNotContend(t *testing.T) {
	locker, _ := newMiniLocker(t, time.Minute)

	releaseA, err := locker.Acquire(context.Background(), "c-1")
	assert.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Acquire(context.Background(), "c-2")
	assert.NoError(t, err)
	defer releaseB()
}

func TestRedisLocker_LockExpires(t *testing.T) {
	locker, mr := newMiniLocker(t, 50*time.Millisecond)

	_, err := locker.Acquire(context.Background(), "c-1")
	assert.NoError(t, err)

	mr.FastForward(100 * time.Millisecond)

	release, err := locker.Acquire(context.Background(), "c-1")
	assert.NoError(t, err)
	release()
}
