package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/examprep/internal/config"
)

type testStruct struct {
	Name string
	Age  int
}

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cache, err := InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expected := testStruct{Name: "Alice", Age: 30}
	require.NoError(t, cache.Set(ctx, UserKey("1"), expected, time.Minute))

	var actual testStruct
	found, err := cache.Get(ctx, UserKey("1"), &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out testStruct
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiration(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, RevokedTokenKey("jti"), true, time.Minute))
	ok, err := cache.Exists(ctx, RevokedTokenKey("jti"))
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = cache.Exists(ctx, RevokedTokenKey("jti"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, cache.Invalidate(ctx, "key"))

	var out string
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Invalidate(ctx, "missing"))
}

func TestInvalidateUser(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, UserKey("1"), testStruct{Name: "Alice"}, time.Minute))
	require.NoError(t, cache.InvalidateUser(ctx, "1"))

	assert.False(t, mr.Exists(UserKey("1")))
	changed, err := cache.Exists(ctx, UserChangedKey("1"))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, UserChangedTTL, mr.TTL(UserChangedKey("1")))

	mr.FastForward(UserChangedTTL + time.Second)
	changed, err = cache.Exists(ctx, UserChangedKey("1"))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err())

	var out testStruct
	found, err := cache.Get(ctx, "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestSetUnmarshalable(t *testing.T) {
	cache, _ := setupTestCache(t)
	err := cache.Set(context.Background(), "ch", make(chan int), time.Minute)
	assert.Error(t, err)
}

func TestClosedServer(t *testing.T) {
	cache, mr := setupTestCache(t)
	mr.Close()

	var out string
	_, err := cache.Get(context.Background(), "k", &out)
	assert.Error(t, err)
	assert.Error(t, cache.Ping(context.Background()))
}

func TestInitServerInvalidAddr(t *testing.T) {
	cache, err := InitServer(context.Background(), config.RedisConnection{
		AddressRedis: "127.0.0.1:1",
		DialTimeout:  100 * time.Millisecond,
	})
	assert.Nil(t, cache)
	assert.Error(t, err)
}
