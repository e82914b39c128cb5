package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	notification "github.com/wyfcoding/ecommerce/internal/notification/domain"
	order "github.com/wyfcoding/ecommerce/internal/order/domain"
	"github.com/wyfcoding/ecommerce/internal/payment/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/errorsx"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/metrics"
)

// Settings 结算会话参数
type Settings struct {
	Currency string
	// BaseURL 前端地址，回跳到 /success 与 /cancel
	BaseURL string
}

// PaymentService 结算会话创建与 webhook 对账
type PaymentService struct {
	orders    order.OrderRepository
	payments  domain.PaymentRepository
	gateway   domain.Gateway
	tx        db.Transactor
	notifier  notification.Enqueuer
	customers notification.Directory
	settings  Settings
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewPaymentService customers 用于填充结算页的客户邮箱，可为 nil
func NewPaymentService(
	orders order.OrderRepository,
	payments domain.PaymentRepository,
	gateway domain.Gateway,
	tx db.Transactor,
	notifier notification.Enqueuer,
	customers notification.Directory,
	settings Settings,
	m *metrics.Metrics,
) *PaymentService {
	if settings.Currency == "" {
		settings.Currency = "usd"
	}
	return &PaymentService{
		orders:    orders,
		payments:  payments,
		gateway:   gateway,
		tx:        tx,
		notifier:  notifier,
		customers: customers,
		settings:  settings,
		metrics:   m,
		now:       time.Now,
	}
}

// StartCheckout 按订单快照创建结算会话，不改变订单状态
func (s *PaymentService) StartCheckout(ctx context.Context, o *order.Order) (*order.CheckoutSession, error) {
	base := strings.TrimRight(s.settings.BaseURL, "/")
	req := domain.CheckoutRequest{
		OrderID:    o.ID,
		Currency:   s.settings.Currency,
		SuccessURL: base + "/success",
		CancelURL:  base + "/cancel",
		Lines:      make([]domain.CheckoutLine, len(o.Items)),
	}
	for i, it := range o.Items {
		req.Lines[i] = domain.CheckoutLine{
			Name:       it.ProductName,
			UnitAmount: domain.ToMinorUnits(it.UnitPrice),
			Quantity:   int64(it.Quantity),
		}
	}
	if s.customers != nil {
		if r, err := s.customers.Recipient(ctx, o.UserID); err != nil {
			logger.Warn(ctx, "customer email lookup failed", "order_id", o.ID, "error", err)
		} else if r != nil {
			req.CustomerEmail = r.Email
		}
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, errorsx.Upstream("Payment gateway unavailable", err)
	}
	logger.Info(ctx, "checkout session created", "order_id", o.ID, "session_id", sess.ID)
	return &order.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// HandleWebhook 处理网关回调。只处理 checkout.session.completed，其余类型直接确认；
// 查单、写支付记录、更新订单与登记通知在同一事务内完成，重复回调不产生任何副作用
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.metrics.RecordWebhook("unknown", "invalid")
		return errorsx.Validation("Invalid webhook payload")
	}
	if event.Type != domain.EventCheckoutCompleted {
		s.metrics.RecordWebhook(event.Type, "ignored")
		logger.Debug(ctx, "webhook event ignored", "event_id", event.ID, "type", event.Type)
		return nil
	}

	orderID, err := parseOrderID(event.Metadata)
	if err != nil {
		s.metrics.RecordWebhook(event.Type, "invalid")
		return err
	}

	var recorded bool
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		o, err := s.orders.GetByIDForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return errorsx.NotFound(fmt.Sprintf("Order %d not found", orderID))
		}

		p := &domain.Payment{
			OrderID:   o.ID,
			UserID:    o.UserID,
			Amount:    o.TotalAmount,
			Currency:  event.Currency,
			Status:    domain.StatusCompleted,
			GatewayID: event.TransactionID(),
			SessionID: event.SessionID,
		}
		created, err := s.payments.CreateIfAbsent(txCtx, p)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		recorded = true

		moved, err := o.MarkPaid(txCtx, event.SessionID, event.PaymentIntentID, s.now())
		if err != nil {
			return err
		}
		if !moved {
			logger.Warn(txCtx, "payment received for order not awaiting payment",
				"order_id", o.ID, "status", o.Status, "gateway_id", p.GatewayID)
		}
		if err := s.orders.Save(txCtx, o); err != nil {
			return err
		}

		// 只有真正转入 PROCESSING 的订单才给买家发确认；管理员始终收到到账提醒
		summary := o.Summary()
		if moved {
			if err := s.notifier.Enqueue(txCtx, notification.Task{
				Type:   notification.TypeOrderConfirmation,
				UserID: o.UserID,
				Order:  summary,
			}); err != nil {
				return err
			}
		}
		return s.notifier.Enqueue(txCtx, notification.Task{
			Type:  notification.TypeAdminOrderPaid,
			Order: summary,
		})
	})
	if err != nil {
		s.metrics.RecordWebhook(event.Type, "failed")
		logger.Error(ctx, "webhook processing failed", "event_id", event.ID, "order_id", orderID, "error", err)
		return err
	}

	s.metrics.RecordWebhook(event.Type, "processed")
	if recorded {
		s.metrics.RecordPayment("recorded")
		logger.Info(ctx, "payment recorded", "order_id", orderID, "gateway_id", event.TransactionID())
	} else {
		s.metrics.RecordPayment("duplicate")
		logger.Info(ctx, "duplicate webhook delivery ignored", "order_id", orderID, "gateway_id", event.TransactionID())
	}
	return nil
}

// ListByOrder 订单的支付记录
func (s *PaymentService) ListByOrder(ctx context.Context, orderID uint) ([]*domain.Payment, error) {
	return s.payments.ListByOrder(ctx, orderID)
}

func parseOrderID(meta map[string]string) (uint, error) {
	raw, ok := meta["orderId"]
	if !ok || raw == "" {
		return 0, errorsx.Validation("Webhook session has no orderId")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errorsx.Validation(fmt.Sprintf("Invalid orderId %q", raw))
	}
	return uint(id), nil
}
