package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/promptloom/promptloom/pkg/adapters/redis"
	"github.com/promptloom/promptloom/pkg/domain"
	"github.com/promptloom/promptloom/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newTestClient(t)
	store := redis.NewFromClient(client)
	ports.RunStateStoreContract(t, store)
}

func TestRedisStore_TTLExpiration(t *testing.T) {
	mr, client := newTestClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	state := &domain.ChainState{
		Cursor: 2,
		Status: domain.StatusRunning,
	}
	require.NoError(t, store.Save(ctx, "expiring", state))

	loaded, err := store.Load(ctx, "expiring")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Cursor)

	// miniredis does not expire on wall-clock time, only on FastForward.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "expiring")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The index is pruned lazily on List.
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, "expiring")
}

func TestRedisStore_CustomPrefix(t *testing.T) {
	mr, client := newTestClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc", &domain.ChainState{Status: domain.StatusBuilt}))
	assert.True(t, mr.Exists("custom:abc"), "state should live under the custom prefix")
}
