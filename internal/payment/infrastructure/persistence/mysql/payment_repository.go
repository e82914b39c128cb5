// Package mysql 支付记录仓储的 GORM 实现
package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/ecommerce/internal/payment/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/logger"
)

// PaymentModel payments 表
type PaymentModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	OrderID   uint            `gorm:"column:order_id;index;not null"`
	UserID    uint            `gorm:"column:user_id;index"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(10,2);not null"`
	Currency  string          `gorm:"column:currency;type:varchar(10)"`
	Status    string          `gorm:"column:status;type:varchar(20);not null"`
	GatewayID string          `gorm:"column:gateway_id;type:varchar(255);uniqueIndex;not null;comment:网关交易号，webhook 幂等键"`
	SessionID string          `gorm:"column:session_id;type:varchar(255);index"`
	CreatedAt time.Time       `gorm:"column:created_at"`
}

func (PaymentModel) TableName() string { return "payments" }

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付记录仓储
func NewPaymentRepository(gdb *gorm.DB) domain.PaymentRepository {
	return &paymentRepository{db: gdb}
}

// CreateIfAbsent gateway_id 冲突时不写入，RowsAffected 为 0 即重复回调
func (r *paymentRepository) CreateIfAbsent(ctx context.Context, p *domain.Payment) (bool, error) {
	m := &PaymentModel{
		OrderID:   p.OrderID,
		UserID:    p.UserID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    string(p.Status),
		GatewayID: p.GatewayID,
		SessionID: p.SessionID,
	}
	res := db.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gateway_id"}},
		DoNothing: true,
	}).Create(m)
	if res.Error != nil {
		logger.Error(ctx, "payment_repository.create failed", "order_id", p.OrderID, "gateway_id", p.GatewayID, "error", res.Error)
		return false, fmt.Errorf("failed to create payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	p.ID, p.CreatedAt = m.ID, m.CreatedAt
	return true, nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uint) ([]*domain.Payment, error) {
	var models []PaymentModel
	if err := db.Conn(ctx, r.db).Where("order_id = ?", orderID).Order("id asc").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	out := make([]*domain.Payment, len(models))
	for i, m := range models {
		out[i] = &domain.Payment{
			ID:        m.ID,
			OrderID:   m.OrderID,
			UserID:    m.UserID,
			Amount:    m.Amount,
			Currency:  m.Currency,
			Status:    domain.Status(m.Status),
			GatewayID: m.GatewayID,
			SessionID: m.SessionID,
			CreatedAt: m.CreatedAt,
		}
	}
	return out, nil
}
