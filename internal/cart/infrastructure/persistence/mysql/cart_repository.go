// Package mysql 购物车仓储的 GORM 实现
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/ecommerce/internal/cart/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/logger"
)

// CartModel carts 表
type CartModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	UserID    uint            `gorm:"column:user_id;uniqueIndex;not null;comment:每个用户一个购物车"`
	Items     []CartItemModel `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (CartModel) TableName() string { return "carts" }

// CartItemModel cart_items 表
type CartItemModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	CartID    uint      `gorm:"column:cart_id;not null;uniqueIndex:idx_cart_product"`
	ProductID uint      `gorm:"column:product_id;not null;uniqueIndex:idx_cart_product;index"`
	Quantity  int       `gorm:"column:quantity;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (CartItemModel) TableName() string { return "cart_items" }

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓储
func NewCartRepository(gdb *gorm.DB) domain.CartRepository {
	return &cartRepository{db: gdb}
}

func (r *cartRepository) GetByUserID(ctx context.Context, userID uint) (*domain.Cart, error) {
	return r.get(ctx, db.Conn(ctx, r.db), userID)
}

func (r *cartRepository) GetByUserIDForUpdate(ctx context.Context, userID uint) (*domain.Cart, error) {
	return r.get(ctx, db.ForUpdate(ctx, db.Conn(ctx, r.db)), userID)
}

func (r *cartRepository) get(ctx context.Context, q *gorm.DB, userID uint) (*domain.Cart, error) {
	var m CartModel
	if err := q.Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "cart_repository.get failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	var items []CartItemModel
	if err := db.Conn(ctx, r.db).Where("cart_id = ?", m.ID).Order("id asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	m.Items = items
	return toCart(&m), nil
}

func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	m := &CartModel{UserID: cart.UserID}
	if err := db.Conn(ctx, r.db).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	cart.ID, cart.CreatedAt, cart.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	return nil
}

// AddItem 依赖 (cart_id, product_id) 唯一索引做原子累加
func (r *cartRepository) AddItem(ctx context.Context, cartID, productID uint, quantity int) error {
	item := &CartItemModel{CartID: cartID, ProductID: productID, Quantity: quantity}
	err := db.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
			"updated_at": time.Now(),
		}),
	}).Create(item).Error
	if err != nil {
		logger.Error(ctx, "cart_repository.add_item failed", "cart_id", cartID, "product_id", productID, "error", err)
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID, productID uint) error {
	err := db.Conn(ctx, r.db).Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&CartItemModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, cartID uint) error {
	conn := db.Conn(ctx, r.db)
	if err := conn.Where("cart_id = ?", cartID).Delete(&CartItemModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete cart items: %w", err)
	}
	if err := conn.Delete(&CartModel{}, cartID).Error; err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func toCart(m *CartModel) *domain.Cart {
	c := &domain.Cart{
		ID:        m.ID,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Items:     make([]domain.CartItem, len(m.Items)),
	}
	for i, it := range m.Items {
		c.Items[i] = domain.CartItem{
			ID:        it.ID,
			CartID:    it.CartID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			CreatedAt: it.CreatedAt,
			UpdatedAt: it.UpdatedAt,
		}
	}
	return c
}
