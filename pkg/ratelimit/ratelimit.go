// Package ratelimit 基于 Redis 的 GCRA 限流，按调用方身份计数
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RateLimiter 限流器
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit 限流规则：Period 内允许 Rate 次，突发 Burst 次
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// PerSecond 每秒 qps 次的规则，burst 不大于 0 时与 qps 相同
func PerSecond(qps, burst int) Limit {
	if burst <= 0 {
		burst = qps
	}
	return Limit{Rate: qps, Period: time.Second, Burst: burst}
}

// Result 单次判定结果
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

const keyPrefix = "ratelimit:"

// Key 已登录用户按用户 ID 计数，同一用户换 IP 不会重置额度；匿名请求按客户端 IP 计数
func Key(userID uint, clientIP string) string {
	if userID != 0 {
		return keyPrefix + "user:" + strconv.FormatUint(uint64(userID), 10)
	}
	return keyPrefix + "ip:" + clientIP
}

// Guard 绑定限流器与一条规则，按调用方身份判定请求
type Guard struct {
	limiter RateLimiter
	limit   Limit
}

func NewGuard(limiter RateLimiter, limit Limit) *Guard {
	return &Guard{limiter: limiter, limit: limit}
}

// Limit 当前规则
func (g *Guard) Limit() Limit {
	return g.limit
}

// Allow 判定一次请求；userID 为 0 表示匿名
func (g *Guard) Allow(ctx context.Context, userID uint, clientIP string) (*Result, error) {
	return g.limiter.Allow(ctx, Key(userID, clientIP), g.limit)
}

// RedisRateLimiter 使用 redis_rate 实现
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
}

func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{limiter: redis_rate.NewLimiter(rdb)}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	res, err := r.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.Rate,
		Period: limit.Period,
		Burst:  limit.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}
