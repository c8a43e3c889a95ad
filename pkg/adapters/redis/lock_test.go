package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/promptloom/promptloom/pkg/adapters/redis"
	"github.com/stretchr/testify/assert"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newTestClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "chain-1", 5*time.Second)
	assert.NoError(t, err)
	assert.NotNil(t, unlock)
	assert.True(t, mr.Exists("test:lock:chain-1"), "lock key should be set in Redis")

	err = unlock(ctx)
	assert.NoError(t, err)
	assert.False(t, mr.Exists("test:lock:chain-1"), "lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := newTestClient(t)
	locker1 := redis.NewLocker(client, "test:")
	locker2 := redis.NewLocker(client, "test:")
	ctx := context.Background()
	key := "shared-chain"

	unlock1, err := locker1.Lock(ctx, key, 5*time.Second)
	assert.NoError(t, err)
	assert.NotNil(t, unlock1)

	// The second locker polls, so it needs a deadline to give up.
	ctxTimeout, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	_, err = locker2.Lock(ctxTimeout, key, 5*time.Second)
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, key, 5*time.Second)
	assert.NoError(t, err)
	defer unlock2(ctx)

	assert.True(t, mr.Exists("test:lock:shared-chain"))
}

func TestRedisLocker_StaleUnlockIsNoOp(t *testing.T) {
	mr, client := newTestClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "chain-2", 1*time.Second)
	assert.NoError(t, err)

	// Lock expires and another holder acquires it.
	mr.FastForward(2 * time.Second)
	unlock2, err := locker.Lock(ctx, "chain-2", 5*time.Second)
	assert.NoError(t, err)
	defer unlock2(ctx)

	// The stale unlock must not release the new holder's lock.
	assert.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("test:lock:chain-2"))
}
