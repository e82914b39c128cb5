package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client), mr
}

type product struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestJSONRoundTrip(t *testing.T) {
	rc, mr := newTestCache(t)
	ctx := context.Background()

	var got product
	hit, err := rc.GetJSON(ctx, "product:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, rc.SetJSON(ctx, "product:1", product{ID: 1, Name: "Mug"}, time.Minute))
	hit, err = rc.GetJSON(ctx, "product:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Mug", got.Name)

	mr.FastForward(2 * time.Minute)
	hit, err = rc.GetJSON(ctx, "product:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDelete(t *testing.T) {
	rc, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "a", "1", 0))
	require.NoError(t, rc.Delete(ctx, "a"))
	assert.False(t, mr.Exists("a"))
	assert.NoError(t, rc.Delete(ctx))
}

func TestLockIsExclusive(t *testing.T) {
	rc, _ := newTestCache(t)
	ctx := context.Background()

	token, ok, err := rc.Lock(ctx, "checkout:lock:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = rc.Lock(ctx, "checkout:lock:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, rc.Unlock(ctx, "checkout:lock:1", "someone-else"), ErrLockNotHeld)
	require.NoError(t, rc.Unlock(ctx, "checkout:lock:1", token))

	_, ok, err = rc.Lock(ctx, "checkout:lock:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockExpires(t *testing.T) {
	rc, mr := newTestCache(t)
	ctx := context.Background()

	token, ok, err := rc.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	assert.ErrorIs(t, rc.Unlock(ctx, "k", token), ErrLockNotHeld)
}
