package adapter

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/infrastructure/cache/port"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisCache_GetMiss(t *testing.T) {
	c, _ := newTestCache(t)
	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, port.ErrMiss)
}

func TestRedisCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.Set(ctx, "k", "v", time.Second))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	ok, err := c.Expire(ctx, "k", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, err = c.Get(ctx, "k")
	assert.NoError(t, err, "expire extended the key")

	ok, err = c.Expire(ctx, "missing", time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "expire never creates keys")
	assert.False(t, mr.Exists("missing"))
}

func TestRedisCache_SetNXKeepsExisting(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	ok, err := c.SetNX(ctx, "k", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.SetNX(ctx, "k", "2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestRedisCache_MGetOmitsMissing(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "c", "3", 0))

	got, err := c.MGet(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "c": "3"}, got)
}

func TestRedisCache_CounterLifecycle(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	n, err := c.IncrWithTTL(ctx, "count", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = c.IncrWithTTL(ctx, "count", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, time.Minute, mr.TTL("count"))

	require.NoError(t, c.Set(ctx, "status", "online", time.Minute))

	n, err = c.DecrOrDelete(ctx, "count", 30*time.Second, "status")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 30*time.Second, mr.TTL("status"))

	n, err = c.DecrOrDelete(ctx, "count", 30*time.Second, "status")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	assert.False(t, mr.Exists("count"))
	assert.False(t, mr.Exists("status"))

	n, err = c.DecrOrDelete(ctx, "count", 30*time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "decrement of an absent counter never goes negative")
	assert.False(t, mr.Exists("count"))
}

func TestRedisCache_Sets(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.SAdd(ctx, "s", time.Minute, "x", "y"))
	require.NoError(t, c.SRem(ctx, "s", "x"))
	members, err := c.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, members)
	assert.Equal(t, time.Minute, mr.TTL("s"))

	members, err = c.SMembers(ctx, "absent")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestRedisCache_Scan(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	for _, k := range []string{"presence:count:a", "presence:count:b", "typing:c:a"} {
		require.NoError(t, c.Set(ctx, k, "1", 0))
	}

	keys, err := c.Scan(ctx, "presence:count:*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"presence:count:a", "presence:count:b"}, keys)
}
