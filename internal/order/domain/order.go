// Package domain 订单上下文：订单聚合、状态机与结算会话契约。
package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/fsm"

	notification "github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/pkg/errorsx"
)

// Status 订单状态
type Status string

const (
	StatusPending    Status = "PENDING"    // 待支付
	StatusProcessing Status = "PROCESSING" // 已支付，处理中
	StatusShipped    Status = "SHIPPED"    // 已发货
	StatusDelivered  Status = "DELIVERED"  // 已送达
	StatusCancelled  Status = "CANCELLED"  // 已取消
)

// transitions 允许的状态迁移，DELIVERED 与 CANCELLED 为终态
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// ParseStatus 解析状态字符串（大小写不敏感）
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", errorsx.Validation(fmt.Sprintf("Invalid order status: %s", s))
}

// NextStatuses 当前状态可迁移到的状态
func NextStatuses(from Status) []Status {
	return append([]Status(nil), transitions[from]...)
}

// CanTransition 迁移是否合法
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Order 订单聚合根。明细与金额在创建后不可变，只有状态与支付信息会更新
type Order struct {
	ID                uint            `json:"id"`
	UserID            uint            `json:"userId"`
	Status            Status          `json:"status"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	ShippingAddress   string          `json:"shippingAddress"`
	CheckoutSessionID string          `json:"checkoutSessionId,omitempty"`
	PaymentIntentID   string          `json:"paymentIntentId,omitempty"`
	PaidAt            *time.Time      `json:"paidAt,omitempty"`
	Items             []OrderItem     `json:"items"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	fsm               *fsm.Machine[string, string]
}

// OrderItem 下单时的商品快照
type OrderItem struct {
	ID          uint            `json:"id"`
	OrderID     uint            `json:"orderId"`
	ProductID   uint            `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Subtotal 行金额
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Line 下单输入行，价格取结算时的商品现价
type Line struct {
	ProductID uint
	Name      string
	Price     decimal.NullDecimal
	Quantity  int
}

// NewOrder 由购物车行生成待支付订单
func NewOrder(userID uint, shippingAddress string, lines []Line) (*Order, error) {
	if len(lines) == 0 {
		return nil, errorsx.InvalidState("Cart is empty")
	}

	o := &Order{
		UserID:          userID,
		Status:          StatusPending,
		ShippingAddress: strings.TrimSpace(shippingAddress),
		Items:           make([]OrderItem, 0, len(lines)),
	}
	for _, l := range lines {
		if !l.Price.Valid {
			return nil, errorsx.InvalidState(fmt.Sprintf("Product %s has no price", l.Name))
		}
		if l.Quantity < 1 {
			return nil, errorsx.InvalidState(fmt.Sprintf("Invalid quantity for product %s", l.Name))
		}
		item := OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.Price.Decimal,
		}
		o.Items = append(o.Items, item)
		o.TotalAmount = o.TotalAmount.Add(item.Subtotal())
	}
	o.initFSM()
	return o, nil
}

func (o *Order) initFSM() {
	m := fsm.NewMachine[string, string](string(o.Status))
	for from, tos := range transitions {
		for _, to := range tos {
			// 事件名即目标状态
			m.AddTransition(string(from), string(to), string(to))
		}
	}
	o.fsm = m
}

// InitFSM 从存储加载后以当前状态初始化状态机
func (o *Order) InitFSM() {
	if o.fsm == nil {
		o.initFSM()
	}
}

// TransitionTo 按迁移表变更状态
func (o *Order) TransitionTo(ctx context.Context, next Status) error {
	if !CanTransition(o.Status, next) {
		return errorsx.InvalidTransition(fmt.Sprintf("Invalid status transition from %s to %s", o.Status, next))
	}
	o.InitFSM()
	if err := o.fsm.Trigger(ctx, string(next)); err != nil {
		return errorsx.Wrap(errorsx.KindInvalidTransition, "invalid_transition",
			fmt.Sprintf("Invalid status transition from %s to %s", o.Status, next), err)
	}
	o.Status = next
	return nil
}

// CanPay 只有待支付订单可以发起支付
func (o *Order) CanPay() error {
	if o.Status != StatusPending {
		return errorsx.InvalidState("Order must be PENDING to pay")
	}
	return nil
}

// MarkPaid 记录支付信息；订单仍待支付时推进到 PROCESSING，返回是否发生了迁移
func (o *Order) MarkPaid(ctx context.Context, sessionID, paymentIntentID string, at time.Time) (bool, error) {
	o.CheckoutSessionID = sessionID
	o.PaymentIntentID = paymentIntentID
	o.PaidAt = &at
	if o.Status != StatusPending {
		return false, nil
	}
	if err := o.TransitionTo(ctx, StatusProcessing); err != nil {
		return false, err
	}
	return true, nil
}

// IsOwnedBy 订单是否属于该用户
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}

// Summary 通知渲染用的订单快照
func (o *Order) Summary() *notification.OrderSummary {
	s := &notification.OrderSummary{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount.StringFixed(2),
		ShippingAddress: o.ShippingAddress,
		Items:           make([]notification.OrderLine, len(o.Items)),
	}
	for i, it := range o.Items {
		s.Items[i] = notification.OrderLine{
			Name:      it.ProductName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		}
	}
	return s
}

// CheckoutSession 支付网关托管的结算会话
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Filter 管理端订单查询条件
type Filter struct {
	Status Status
	UserID uint
	Offset int
	Limit  int
}

// OrderRepository 订单仓储，未找到时返回 nil, nil
type OrderRepository interface {
	// Create 连同明细一起写入
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uint) (*Order, error)
	// GetByIDForUpdate 在事务内锁定订单行
	GetByIDForUpdate(ctx context.Context, id uint) (*Order, error)
	// ListByUser 按创建时间倒序
	ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*Order, int64, error)
	List(ctx context.Context, f Filter) ([]*Order, int64, error)
	// Save 只更新状态与支付信息
	Save(ctx context.Context, o *Order) error
}
