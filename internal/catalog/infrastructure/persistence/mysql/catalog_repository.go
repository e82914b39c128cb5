// Package mysql 商品目录仓储的 GORM 实现
package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/logger"
)

// CategoryModel categories 表
type CategoryModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;type:varchar(100);uniqueIndex;not null"`
	Slug        string    `gorm:"column:slug;type:varchar(120);uniqueIndex;not null"`
	Description string    `gorm:"column:description;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (CategoryModel) TableName() string { return "categories" }

// ProductModel products 表
type ProductModel struct {
	ID            uint                `gorm:"primaryKey;autoIncrement"`
	Name          string              `gorm:"column:name;type:varchar(255);index;not null"`
	Description   string              `gorm:"column:description;type:text"`
	Price         decimal.NullDecimal `gorm:"column:price;type:decimal(10,2);comment:为空表示未定价"`
	StockQuantity int                 `gorm:"column:stock_quantity;not null;default:0"`
	SKU           *string             `gorm:"column:sku;type:varchar(64);uniqueIndex"`
	ImageURL      string              `gorm:"column:image_url;type:varchar(512)"`
	IsActive      bool                `gorm:"column:is_active;index;not null;default:true"`
	CategoryID    *uint               `gorm:"column:category_id;index"`
	Category      *CategoryModel      `gorm:"foreignKey:CategoryID"`
	CreatedAt     time.Time           `gorm:"column:created_at;index"`
	UpdatedAt     time.Time           `gorm:"column:updated_at"`
}

func (ProductModel) TableName() string { return "products" }

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(gdb *gorm.DB) domain.ProductRepository {
	return &productRepository{db: gdb}
}

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	m := toProductModel(p)
	if err := db.Conn(ctx, r.db).Omit("Category").Create(m).Error; err != nil {
		logger.Error(ctx, "product_repository.create failed", "name", p.Name, "error", err)
		return fmt.Errorf("failed to create product: %w", err)
	}
	p.ID, p.CreatedAt, p.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *productRepository) Save(ctx context.Context, p *domain.Product) error {
	m := toProductModel(p)
	if err := db.Conn(ctx, r.db).Omit("Category").Save(m).Error; err != nil {
		logger.Error(ctx, "product_repository.save failed", "product_id", p.ID, "error", err)
		return fmt.Errorf("failed to save product: %w", err)
	}
	p.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	if err := db.Conn(ctx, r.db).Delete(&ProductModel{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*domain.Product, error) {
	var m ProductModel
	if err := db.Conn(ctx, r.db).Preload("Category").First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return toProduct(&m), nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []uint) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []ProductModel
	if err := db.Conn(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return toProducts(models), nil
}

func (r *productRepository) List(ctx context.Context, f domain.ProductFilter) ([]*domain.Product, int64, error) {
	q := db.Conn(ctx, r.db).Model(&ProductModel{})
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = domain.SortByCreatedAt
	}
	dir := "asc"
	if f.SortDesc {
		dir = "desc"
	}

	var models []ProductModel
	err := q.Preload("Category").
		Order(string(sortBy) + " " + dir).
		Order("id " + dir).
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&models).Error
	if err != nil {
		logger.Error(ctx, "product_repository.list failed", "error", err)
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return toProducts(models), total, nil
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 创建分类仓储
func NewCategoryRepository(gdb *gorm.DB) domain.CategoryRepository {
	return &categoryRepository{db: gdb}
}

func (r *categoryRepository) Create(ctx context.Context, c *domain.Category) error {
	m := toCategoryModel(c)
	if err := db.Conn(ctx, r.db).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	c.ID, c.CreatedAt, c.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *categoryRepository) Save(ctx context.Context, c *domain.Category) error {
	m := toCategoryModel(c)
	if err := db.Conn(ctx, r.db).Save(m).Error; err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	c.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	if err := db.Conn(ctx, r.db).Delete(&CategoryModel{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*domain.Category, error) {
	var m CategoryModel
	if err := db.Conn(ctx, r.db).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return toCategory(&m), nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	var models []CategoryModel
	if err := db.Conn(ctx, r.db).Order("name asc").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	out := make([]*domain.Category, len(models))
	for i := range models {
		out[i] = toCategory(&models[i])
	}
	return out, nil
}

func (r *categoryRepository) CountProducts(ctx context.Context, id uint) (int64, error) {
	var n int64
	if err := db.Conn(ctx, r.db).Model(&ProductModel{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func toProductModel(p *domain.Product) *ProductModel {
	m := &ProductModel{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		ImageURL:      p.ImageURL,
		IsActive:      p.IsActive,
		CategoryID:    p.CategoryID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	// 空 SKU 存 NULL，唯一索引允许多个 NULL
	if p.SKU != "" {
		sku := p.SKU
		m.SKU = &sku
	}
	return m
}

func toProduct(m *ProductModel) *domain.Product {
	p := &domain.Product{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		Price:         m.Price,
		StockQuantity: m.StockQuantity,
		ImageURL:      m.ImageURL,
		IsActive:      m.IsActive,
		CategoryID:    m.CategoryID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.SKU != nil {
		p.SKU = *m.SKU
	}
	if m.Category != nil {
		p.Category = toCategory(m.Category)
	}
	return p
}

func toProducts(models []ProductModel) []*domain.Product {
	out := make([]*domain.Product, len(models))
	for i := range models {
		out[i] = toProduct(&models[i])
	}
	return out
}

func toCategoryModel(c *domain.Category) *CategoryModel {
	return &CategoryModel{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toCategory(m *CategoryModel) *domain.Category {
	return &domain.Category{
		ID:          m.ID,
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
