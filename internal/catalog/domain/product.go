// Package domain 商品目录：商品与分类
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Category 商品分类
type Category struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Product 商品。Price 允许为空，未定价的商品不能结算
type Product struct {
	ID            uint                `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Price         decimal.NullDecimal `json:"price"`
	StockQuantity int                 `json:"stockQuantity"`
	SKU           string              `json:"sku,omitempty"`
	ImageURL      string              `json:"imageUrl,omitempty"`
	IsActive      bool                `json:"isActive"`
	CategoryID    *uint               `json:"categoryId,omitempty"`
	Category      *Category           `json:"category,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// HasPrice 是否已定价
func (p *Product) HasPrice() bool {
	return p.Price.Valid
}

// Toggle 上下架切换
func (p *Product) Toggle() {
	p.IsActive = !p.IsActive
}

// SortField 允许排序的列
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByName      SortField = "name"
	SortByPrice     SortField = "price"
	SortByStock     SortField = "stock_quantity"
)

// ParseSortField 将接口参数映射为列名，未知值回退到 created_at
func ParseSortField(s string) SortField {
	switch s {
	case "name":
		return SortByName
	case "price":
		return SortByPrice
	case "stockQuantity", "stock_quantity":
		return SortByStock
	}
	return SortByCreatedAt
}

// ProductFilter 商品查询条件
type ProductFilter struct {
	Offset     int
	Limit      int
	SortBy     SortField
	SortDesc   bool
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	CategoryID *uint
	Search     string
	ActiveOnly bool
}

// ProductRepository 商品仓储，未找到时返回 nil, nil
type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	Save(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*Product, error)
	// GetByIDs 不存在的 ID 会被忽略
	GetByIDs(ctx context.Context, ids []uint) ([]*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*Product, int64, error)
}

// CategoryRepository 分类仓储
type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	Save(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	CountProducts(ctx context.Context, id uint) (int64, error)
}
