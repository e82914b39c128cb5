package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerSecond(t *testing.T) {
	assert.Equal(t, Limit{Rate: 10, Period: time.Second, Burst: 20}, PerSecond(10, 20))
	assert.Equal(t, Limit{Rate: 5, Period: time.Second, Burst: 5}, PerSecond(5, 0))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "ratelimit:user:7", Key(7, "10.0.0.1"))
	assert.Equal(t, "ratelimit:user:7", Key(7, "10.0.0.2"), "same user shares one bucket across IPs")
	assert.Equal(t, "ratelimit:ip:10.0.0.1", Key(0, "10.0.0.1"))
}

func TestGuardCountsPerCaller(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	guard := NewGuard(NewRedisRateLimiter(rdb), Limit{Rate: 1, Period: time.Minute, Burst: 2})

	for i := 0; i < 2; i++ {
		res, err := guard.Allow(ctx, 7, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d within burst", i+1)
	}

	// 换 IP 仍计入同一用户
	res, err := guard.Allow(ctx, 7, "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	// 匿名请求与其他用户各自计数
	res, err = guard.Allow(ctx, 0, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = guard.Allow(ctx, 8, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
