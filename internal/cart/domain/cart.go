// Package domain 购物车：每个用户至多一个购物车，同一商品在车内只占一行
package domain

import (
	"context"
	"time"
)

// Cart 购物车聚合根
type Cart struct {
	ID        uint
	UserID    uint
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem 购物车行
type CartItem struct {
	ID        uint
	CartID    uint
	ProductID uint
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsEmpty 购物车为空（包括不存在）
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// ProductIDs 车内所有商品 ID
func (c *Cart) ProductIDs() []uint {
	ids := make([]uint, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	return ids
}

// CartRepository 购物车仓储，未找到时返回 nil, nil
type CartRepository interface {
	GetByUserID(ctx context.Context, userID uint) (*Cart, error)
	// GetByUserIDForUpdate 在事务内锁定购物车行，用于结算
	GetByUserIDForUpdate(ctx context.Context, userID uint) (*Cart, error)
	Create(ctx context.Context, cart *Cart) error
	// AddItem 已有该商品时累加数量
	AddItem(ctx context.Context, cartID, productID uint, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID uint) error
	// Delete 删除购物车及其所有行
	Delete(ctx context.Context, cartID uint) error
}
