package application

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/errorsx"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/utils"
)

// ProductCache 商品详情缓存，nil 表示不启用
type ProductCache interface {
	Get(ctx context.Context, id uint) (*domain.Product, bool, error)
	Set(ctx context.Context, p *domain.Product) error
	Invalidate(ctx context.Context, id uint) error
}

// ListProductsQuery 商品列表查询
type ListProductsQuery struct {
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	CategoryID *uint
	Search     string
	// IncludeInactive 仅管理员接口使用
	IncludeInactive bool
}

// ProductInput 创建/更新商品的输入，更新时 nil 字段保持不变
type ProductInput struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	ClearPrice    bool
	StockQuantity *int
	SKU           *string
	ImageURL      *string
	IsActive      *bool
	CategoryID    *uint
}

// ProductService 商品查询与管理
type ProductService struct {
	products   domain.ProductRepository
	categories domain.CategoryRepository
	cache      ProductCache
}

// NewProductService cache 可为 nil
func NewProductService(products domain.ProductRepository, categories domain.CategoryRepository, cache ProductCache) *ProductService {
	return &ProductService{products: products, categories: categories, cache: cache}
}

// ListProducts 分页、过滤、排序、搜索
func (s *ProductService) ListProducts(ctx context.Context, q ListProductsQuery) ([]*domain.Product, utils.Pagination, error) {
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, utils.Pagination{}, errorsx.Validation("minPrice cannot be greater than maxPrice")
	}
	page, limit := utils.NormalizePage(q.Page, q.Limit, 10, 100)
	items, total, err := s.products.List(ctx, domain.ProductFilter{
		Offset:     utils.Offset(page, limit),
		Limit:      limit,
		SortBy:     domain.ParseSortField(q.SortBy),
		SortDesc:   !strings.EqualFold(q.SortOrder, "asc"),
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		CategoryID: q.CategoryID,
		Search:     q.Search,
		ActiveOnly: !q.IncludeInactive,
	})
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return items, utils.NewPagination(page, limit, total), nil
}

// GetProduct 先读缓存，未命中回源并回填。下架商品只对管理员可见
func (s *ProductService) GetProduct(ctx context.Context, id uint, includeInactive bool) (*domain.Product, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || (!p.IsActive && !includeInactive) {
		return nil, errorsx.NotFound("Product not found")
	}
	return p, nil
}

func (s *ProductService) load(ctx context.Context, id uint) (*domain.Product, error) {
	if s.cache != nil {
		p, hit, err := s.cache.Get(ctx, id)
		if err != nil {
			logger.Warn(ctx, "product cache read failed", "product_id", id, "error", err)
		} else if hit {
			return p, nil
		}
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			logger.Warn(ctx, "product cache write failed", "product_id", id, "error", err)
		}
	}
	return p, nil
}

func (s *ProductService) invalidate(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logger.Warn(ctx, "product cache invalidation failed", "product_id", id, "error", err)
	}
}

func (s *ProductService) checkCategory(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	c, err := s.categories.GetByID(ctx, *id)
	if err != nil {
		return err
	}
	if c == nil {
		return errorsx.Validation("Category not found")
	}
	return nil
}

func apply(p *domain.Product, in ProductInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return errorsx.Validation("Product name is required")
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.ClearPrice {
		p.Price = decimal.NullDecimal{}
	} else if in.Price != nil {
		if in.Price.IsNegative() {
			return errorsx.Validation("Price cannot be negative")
		}
		p.Price = decimal.NewNullDecimal(in.Price.Round(2))
	}
	if in.StockQuantity != nil {
		if *in.StockQuantity < 0 {
			return errorsx.Validation("Stock quantity cannot be negative")
		}
		p.StockQuantity = *in.StockQuantity
	}
	if in.SKU != nil {
		p.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.CategoryID != nil {
		p.CategoryID = in.CategoryID
	}
	return nil
}

// CreateProduct 管理员创建商品，默认上架
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if in.Name == nil {
		return nil, errorsx.Validation("Product name is required")
	}
	p := &domain.Product{IsActive: true}
	if err := apply(p, in); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, p.CategoryID); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		if db.IsDuplicate(err) {
			return nil, errorsx.Conflict("Product with this SKU already exists")
		}
		return nil, err
	}
	logger.Info(ctx, "product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

// UpdateProduct 管理员更新商品
func (s *ProductService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errorsx.NotFound("Product not found")
	}
	if err := apply(p, in); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	p.Category = nil
	if err := s.products.Save(ctx, p); err != nil {
		if db.IsDuplicate(err) {
			return nil, errorsx.Conflict("Product with this SKU already exists")
		}
		return nil, err
	}
	s.invalidate(ctx, id)
	return p, nil
}

// ToggleProduct 上下架切换
func (s *ProductService) ToggleProduct(ctx context.Context, id uint) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errorsx.NotFound("Product not found")
	}
	p.Toggle()
	p.Category = nil
	if err := s.products.Save(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	logger.Info(ctx, "product toggled", "product_id", id, "active", p.IsActive)
	return p, nil
}

// DeleteProduct 管理员删除商品
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return errorsx.NotFound("Product not found")
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}
