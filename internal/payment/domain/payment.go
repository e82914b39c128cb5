// Package domain 支付上下文：支付记录、网关契约与 webhook 事件。
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EventCheckoutCompleted 唯一处理的 webhook 事件类型
const EventCheckoutCompleted = "checkout.session.completed"

// Status 支付状态
type Status string

const StatusCompleted Status = "completed"

// Payment 支付记录，每个网关交易号只记录一次
type Payment struct {
	ID        uint            `json:"id"`
	OrderID   uint            `json:"orderId"`
	UserID    uint            `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    Status          `json:"status"`
	GatewayID string          `json:"gatewayId"`
	SessionID string          `json:"sessionId"`
	CreatedAt time.Time       `json:"createdAt"`
}

// CheckoutLine 结算会话行，金额为最小货币单位
type CheckoutLine struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CheckoutRequest 创建结算会话的参数
type CheckoutRequest struct {
	OrderID       uint
	CustomerEmail string
	Currency      string
	SuccessURL    string
	CancelURL     string
	Lines         []CheckoutLine
}

// Session 网关返回的结算会话
type Session struct {
	ID  string
	URL string
}

// WebhookEvent 解析后的网关回调
type WebhookEvent struct {
	ID              string
	Type            string
	SessionID       string
	PaymentIntentID string
	Currency        string
	AmountTotal     int64
	// Metadata 创建会话时写入的元数据，orderId 在其中
	Metadata map[string]string
}

// TransactionID 网关交易号，没有 payment intent 时退化为会话 ID
func (e *WebhookEvent) TransactionID() string {
	if e.PaymentIntentID != "" {
		return e.PaymentIntentID
	}
	return e.SessionID
}

// Gateway 支付网关
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	// ParseWebhook 校验签名并解析事件
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// PaymentRepository 支付记录仓储
type PaymentRepository interface {
	// CreateIfAbsent 按网关交易号幂等写入，已存在时返回 false
	CreateIfAbsent(ctx context.Context, p *Payment) (bool, error)
	ListByOrder(ctx context.Context, orderID uint) ([]*Payment, error)
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits 金额转最小货币单位（分），四舍五入
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
