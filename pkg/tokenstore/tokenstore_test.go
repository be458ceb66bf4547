package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(client, "test"), mr
}

func TestRedisStore_RevokeAndCheck(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	revoked, err := store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "abc", time.Minute))
	assert.True(t, mr.Exists("test:revoked:abc"))

	revoked, err = store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisStore_IgnoresEmptyOrExpired(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	require.NoError(t, store.Revoke(ctx, "", time.Minute))
	require.NoError(t, store.Revoke(ctx, "old", -time.Second))
	assert.Empty(t, mr.Keys())

	revoked, err := store.IsRevoked(ctx, "")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, err := store.IsRevoked(context.Background(), "abc")
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var s Store = Noop{}
	require.NoError(t, s.Revoke(context.Background(), "x", time.Minute))
	revoked, err := s.IsRevoked(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, revoked)
}
