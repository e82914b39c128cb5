// Package cache 商品详情的 Redis 缓存
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/ecommerce/pkg/cache"
)

const keyPrefix = "catalog:product:"

// ProductCache 以 JSON 缓存单个商品
type ProductCache struct {
	rc  *cache.RedisCache
	ttl time.Duration
}

// NewProductCache ttl <= 0 时默认 5 分钟
func NewProductCache(rc *cache.RedisCache, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProductCache{rc: rc, ttl: ttl}
}

func key(id uint) string {
	return fmt.Sprintf("%s%d", keyPrefix, id)
}

func (c *ProductCache) Get(ctx context.Context, id uint) (*domain.Product, bool, error) {
	var p domain.Product
	ok, err := c.rc.GetJSON(ctx, key(id), &p)
	if err != nil || !ok {
		return nil, false, err
	}
	return &p, true, nil
}

func (c *ProductCache) Set(ctx context.Context, p *domain.Product) error {
	return c.rc.SetJSON(ctx, key(p.ID), p, c.ttl)
}

func (c *ProductCache) Invalidate(ctx context.Context, id uint) error {
	return c.rc.Delete(ctx, key(id))
}
