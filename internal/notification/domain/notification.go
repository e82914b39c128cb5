// Package domain 通知上下文：通知记录、投递任务与发件箱契约。
package domain

import (
	"context"
	"time"
)

// Type 通知类型
type Type string

const (
	TypeOrderConfirmation Type = "order_confirmation" // 支付成功后发给买家
	TypeOrderShipped      Type = "order_shipped"      // 订单发货
	TypeAdminOrderPaid    Type = "admin_order_paid"   // 新的已支付订单，发给所有管理员
	TypeEmailVerification Type = "email_verification" // 注册邮箱验证
	TypePasswordReset     Type = "password_reset"     // 重置密码 OTP
)

// Status 通知投递状态
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Notification 已投递（或尝试投递）的通知记录，一个任务对每个收件人各生成一条
type Notification struct {
	ID        uint       `json:"id"`
	TaskID    string     `json:"taskId"`
	UserID    uint       `json:"userId"`
	Type      Type       `json:"type"`
	Recipient string     `json:"recipient"`
	Subject   string     `json:"subject"`
	Content   string     `json:"content"`
	Status    Status     `json:"status"`
	Error     string     `json:"error,omitempty"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// MarkSent 标记发送成功
func (n *Notification) MarkSent(at time.Time) {
	n.Status = StatusSent
	n.Error = ""
	n.SentAt = &at
}

// MarkFailed 标记发送失败
func (n *Notification) MarkFailed(err error) {
	n.Status = StatusFailed
	n.Error = err.Error()
}

// OrderLine 通知中的订单明细
type OrderLine struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

// OrderSummary 渲染订单类通知所需的订单快照
type OrderSummary struct {
	ID              uint        `json:"id"`
	UserID          uint        `json:"userId"`
	Status          string      `json:"status"`
	TotalAmount     string      `json:"totalAmount"`
	ShippingAddress string      `json:"shippingAddress"`
	Items           []OrderLine `json:"items"`
}

// Task 待投递的通知任务，写入发件箱后由中继异步投递
type Task struct {
	ID     string `json:"id"`
	Type   Type   `json:"type"`
	UserID uint   `json:"userId,omitempty"`
	// Email 显式收件人；为空时按 UserID 查询
	Email     string            `json:"email,omitempty"`
	Order     *OrderSummary     `json:"order,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Enqueuer 在调用方事务内登记通知任务
type Enqueuer interface {
	Enqueue(ctx context.Context, task Task) error
}

// Recipient 收件人
type Recipient struct {
	UserID uint
	Email  string
	Name   string
}

// Directory 收件人目录，由用户上下文提供
type Directory interface {
	Recipient(ctx context.Context, userID uint) (*Recipient, error)
	Admins(ctx context.Context) ([]Recipient, error)
}

// Sender 邮件发送通道
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// NotificationRepository 通知记录仓储
type NotificationRepository interface {
	Save(ctx context.Context, n *Notification) error
	// FindByTask 按任务与收件人查找，用于重复投递时去重
	FindByTask(ctx context.Context, taskID, recipient string) (*Notification, error)
	ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*Notification, int64, error)
}
