// Package mysql 订单仓储的 GORM 实现
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wyfcoding/ecommerce/internal/order/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/logger"
)

// OrderModel orders 表
type OrderModel struct {
	ID                uint             `gorm:"primaryKey;autoIncrement"`
	UserID            uint             `gorm:"column:user_id;index;not null"`
	Status            string           `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'"`
	TotalAmount       decimal.Decimal  `gorm:"column:total_amount;type:decimal(10,2);not null;comment:创建时计算，之后不再变更"`
	ShippingAddress   string           `gorm:"column:shipping_address;type:text"`
	CheckoutSessionID string           `gorm:"column:checkout_session_id;type:varchar(255);index"`
	PaymentIntentID   string           `gorm:"column:payment_intent_id;type:varchar(255)"`
	PaidAt            *time.Time       `gorm:"column:paid_at"`
	Items             []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time        `gorm:"column:created_at;index"`
	UpdatedAt         time.Time        `gorm:"column:updated_at"`
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel order_items 表
type OrderItemModel struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	OrderID     uint            `gorm:"column:order_id;index;not null"`
	ProductID   uint            `gorm:"column:product_id;index;not null"`
	ProductName string          `gorm:"column:product_name;type:varchar(255);comment:下单时的商品名"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:decimal(10,2);not null;comment:下单时的单价"`
}

func (OrderItemModel) TableName() string { return "order_items" }

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(gdb *gorm.DB) domain.OrderRepository {
	return &orderRepository{db: gdb}
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	m := toOrderModel(o)
	if err := db.Conn(ctx, r.db).Create(m).Error; err != nil {
		logger.Error(ctx, "order_repository.create failed", "user_id", o.UserID, "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}
	o.ID, o.CreatedAt, o.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	for i := range o.Items {
		o.Items[i].ID = m.Items[i].ID
		o.Items[i].OrderID = m.ID
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*domain.Order, error) {
	return r.get(ctx, db.Conn(ctx, r.db), id)
}

func (r *orderRepository) GetByIDForUpdate(ctx context.Context, id uint) (*domain.Order, error) {
	return r.get(ctx, db.ForUpdate(ctx, db.Conn(ctx, r.db)), id)
}

func (r *orderRepository) get(ctx context.Context, q *gorm.DB, id uint) (*domain.Order, error) {
	var m OrderModel
	if err := q.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "order_repository.get failed", "order_id", id, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if err := db.Conn(ctx, r.db).Where("order_id = ?", m.ID).Order("id asc").Find(&m.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	return toOrder(&m), nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*domain.Order, int64, error) {
	return r.List(ctx, domain.Filter{UserID: userID, Offset: offset, Limit: limit})
}

func (r *orderRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Order, int64, error) {
	q := db.Conn(ctx, r.db).Model(&OrderModel{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var models []OrderModel
	err := q.Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") }).
		Order("created_at desc").Order("id desc").
		Offset(f.Offset).Limit(f.Limit).
		Find(&models).Error
	if err != nil {
		logger.Error(ctx, "order_repository.list failed", "user_id", f.UserID, "error", err)
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	out := make([]*domain.Order, len(models))
	for i := range models {
		out[i] = toOrder(&models[i])
	}
	return out, total, nil
}

func (r *orderRepository) Save(ctx context.Context, o *domain.Order) error {
	err := db.Conn(ctx, r.db).Model(&OrderModel{ID: o.ID}).Updates(map[string]any{
		"status":              string(o.Status),
		"checkout_session_id": o.CheckoutSessionID,
		"payment_intent_id":   o.PaymentIntentID,
		"paid_at":             o.PaidAt,
	}).Error
	if err != nil {
		logger.Error(ctx, "order_repository.save failed", "order_id", o.ID, "error", err)
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

func toOrderModel(o *domain.Order) *OrderModel {
	m := &OrderModel{
		ID:                o.ID,
		UserID:            o.UserID,
		Status:            string(o.Status),
		TotalAmount:       o.TotalAmount,
		ShippingAddress:   o.ShippingAddress,
		CheckoutSessionID: o.CheckoutSessionID,
		PaymentIntentID:   o.PaymentIntentID,
		PaidAt:            o.PaidAt,
		Items:             make([]OrderItemModel, len(o.Items)),
	}
	for i, it := range o.Items {
		m.Items[i] = OrderItemModel{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	return m
}

func toOrder(m *OrderModel) *domain.Order {
	o := &domain.Order{
		ID:                m.ID,
		UserID:            m.UserID,
		Status:            domain.Status(m.Status),
		TotalAmount:       m.TotalAmount,
		ShippingAddress:   m.ShippingAddress,
		CheckoutSessionID: m.CheckoutSessionID,
		PaymentIntentID:   m.PaymentIntentID,
		PaidAt:            m.PaidAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		Items:             make([]domain.OrderItem, len(m.Items)),
	}
	for i, it := range m.Items {
		o.Items[i] = domain.OrderItem{
			ID:          it.ID,
			OrderID:     it.OrderID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	o.InitFSM()
	return o
}
