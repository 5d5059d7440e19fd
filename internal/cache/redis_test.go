// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a test Redis server using miniredis.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, newRedisCacheWithClient(client, "test:", zerolog.Nop())
}

func TestRedisCache_SetGet(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "media/abc", []byte(`{"token":"abc"}`), 5*time.Minute)

	val, ok := c.Get(ctx, "media/abc")
	require.True(t, ok)
	assert.JSONEq(t, `{"token":"abc"}`, string(val))

	// stored under the namespace prefix
	assert.True(t, mr.Exists("test:media/abc"))
	assert.Equal(t, 5*time.Minute, mr.TTL("test:media/abc"))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestRedisCache_GetMissing(t *testing.T) {
	_, c := setupMiniRedis(t)

	val, ok := c.Get(context.Background(), "nonexistent")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestRedisCache_Expiration(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Second)
	mr.FastForward(2 * time.Second)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCache_ZeroTTLNotStored(t *testing.T) {
	mr, c := setupMiniRedis(t)

	c.Set(context.Background(), "k", []byte("v"), 0)
	assert.False(t, mr.Exists("test:k"))
}

func TestRedisCache_Delete(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")
	assert.False(t, mr.Exists("test:k"))
}

func TestRedisCache_ServerDown(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	mr.Close()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	require.Error(t, c.HealthCheck(ctx))
}

func TestNewRedisCache_ConnectFailure(t *testing.T) {
	_, err := NewRedisCache(context.Background(), RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	require.Error(t, err)
}

func TestNewRedisCache_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.HealthCheck(context.Background()))
	c.Set(context.Background(), "x", []byte("1"), time.Minute)
	assert.True(t, mr.Exists("mediablock:x"))
}
