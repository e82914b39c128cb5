package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cart "github.com/wyfcoding/ecommerce/internal/cart/domain"
	catalog "github.com/wyfcoding/ecommerce/internal/catalog/domain"
	notification "github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/internal/order/domain"
	"github.com/wyfcoding/ecommerce/pkg/cache"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/errorsx"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/metrics"
)

const checkoutLockPrefix = "checkout:lock:"

// CheckoutStarter 为订单创建支付网关结算会话，由支付上下文实现
type CheckoutStarter interface {
	StartCheckout(ctx context.Context, o *domain.Order) (*domain.CheckoutSession, error)
}

// Locker 分布式锁，*cache.RedisCache 即可满足
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// CheckoutResult 下单结果
type CheckoutResult struct {
	Order   *domain.Order           `json:"order"`
	Session *domain.CheckoutSession `json:"checkoutSession"`
}

// OrderCommandService 下单、支付发起与状态变更
type OrderCommandService struct {
	orders   domain.OrderRepository
	carts    cart.CartRepository
	products catalog.ProductRepository
	tx       db.Transactor
	checkout CheckoutStarter
	notifier notification.Enqueuer
	locker   Locker
	lockTTL  time.Duration
	metrics  *metrics.Metrics
}

// NewOrderCommandService locker 可为 nil，此时只依赖数据库行锁串行化结算
func NewOrderCommandService(
	orders domain.OrderRepository,
	carts cart.CartRepository,
	products catalog.ProductRepository,
	tx db.Transactor,
	checkout CheckoutStarter,
	notifier notification.Enqueuer,
	locker Locker,
	lockTTL time.Duration,
	m *metrics.Metrics,
) *OrderCommandService {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &OrderCommandService{
		orders:   orders,
		carts:    carts,
		products: products,
		tx:       tx,
		checkout: checkout,
		notifier: notifier,
		locker:   locker,
		lockTTL:  lockTTL,
		metrics:  m,
	}
}

// CreateFromCart 将购物车转为待支付订单并删除购物车，整个过程在一个事务内完成
func (s *OrderCommandService) CreateFromCart(ctx context.Context, userID uint, shippingAddress string) (*domain.Order, error) {
	if strings.TrimSpace(shippingAddress) == "" {
		return nil, errorsx.Validation("Shipping address is required")
	}

	release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	var order *domain.Order
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		c, err := s.carts.GetByUserIDForUpdate(txCtx, userID)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return errorsx.InvalidState("Cart is empty")
		}

		lines, err := s.lines(txCtx, c)
		if err != nil {
			return err
		}
		o, err := domain.NewOrder(userID, shippingAddress, lines)
		if err != nil {
			return err
		}
		if err := s.orders.Create(txCtx, o); err != nil {
			return err
		}
		if err := s.carts.Delete(txCtx, c.ID); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderCreated()
	logger.Info(ctx, "order created from cart",
		"order_id", order.ID, "user_id", userID,
		"items", len(order.Items), "total_amount", order.TotalAmount.StringFixed(2))
	return order, nil
}

// acquire 获取单用户结算锁；Redis 不可用时降级为仅依赖数据库行锁
func (s *OrderCommandService) acquire(ctx context.Context, userID uint) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("%s%d", checkoutLockPrefix, userID)
	token, ok, err := s.locker.Lock(ctx, key, s.lockTTL)
	if err != nil {
		logger.Warn(ctx, "checkout lock unavailable", "user_id", userID, "error", err)
		return func() {}, nil
	}
	if !ok {
		return nil, errorsx.InvalidState("Checkout already in progress")
	}
	return func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil && !errors.Is(err, cache.ErrLockNotHeld) {
			logger.Warn(ctx, "checkout unlock failed", "user_id", userID, "error", err)
		}
	}, nil
}

// lines 按商品现价生成下单行
func (s *OrderCommandService) lines(ctx context.Context, c *cart.Cart) ([]domain.Line, error) {
	products, err := s.products.GetByIDs(ctx, c.ProductIDs())
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]domain.Line, 0, len(c.Items))
	for _, it := range c.Items {
		p, ok := byID[it.ProductID]
		if !ok || !p.IsActive {
			return nil, errorsx.InvalidState(fmt.Sprintf("Product %d is no longer available", it.ProductID))
		}
		lines = append(lines, domain.Line{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
		})
	}
	return lines, nil
}

// Checkout 下单并创建结算会话。会话创建失败时订单保留为待支付，可通过 Pay 重新发起
func (s *OrderCommandService) Checkout(ctx context.Context, userID uint, shippingAddress string) (*CheckoutResult, error) {
	order, err := s.CreateFromCart(ctx, userID, shippingAddress)
	if err != nil {
		return nil, err
	}

	session, err := s.checkout.StartCheckout(ctx, order)
	if err != nil {
		logger.Error(ctx, "checkout session failed after order created", "order_id", order.ID, "error", err)
		return nil, s.upstream(order.ID, err)
	}
	return &CheckoutResult{Order: order, Session: session}, nil
}

// Pay 为自己的待支付订单重新创建结算会话
func (s *OrderCommandService) Pay(ctx context.Context, userID, orderID uint) (*CheckoutResult, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || !order.IsOwnedBy(userID) {
		return nil, errorsx.NotFound("Order not found")
	}
	if err := order.CanPay(); err != nil {
		return nil, err
	}

	session, err := s.checkout.StartCheckout(ctx, order)
	if err != nil {
		return nil, s.upstream(order.ID, err)
	}
	return &CheckoutResult{Order: order, Session: session}, nil
}

// upstream 结算会话失败一律带上订单号，调用方据此通过 Pay 重试
func (s *OrderCommandService) upstream(orderID uint, err error) error {
	return errorsx.Upstream(fmt.Sprintf("Failed to create checkout session for order %d", orderID), err)
}

// UpdateStatus 管理员变更订单状态；发货时在同一事务内登记发货通知
func (s *OrderCommandService) UpdateStatus(ctx context.Context, orderID uint, status string) (*domain.Order, error) {
	next, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	var (
		order *domain.Order
		prev  domain.Status
	)
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		o, err := s.orders.GetByIDForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return errorsx.NotFound("Order not found")
		}

		prev = o.Status
		if err := o.TransitionTo(txCtx, next); err != nil {
			return err
		}
		if err := s.orders.Save(txCtx, o); err != nil {
			return err
		}

		if next == domain.StatusShipped {
			task := notification.Task{
				Type:   notification.TypeOrderShipped,
				UserID: o.UserID,
				Order:  o.Summary(),
			}
			if err := s.notifier.Enqueue(txCtx, task); err != nil {
				return err
			}
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderTransition(string(prev), string(next))
	logger.Info(ctx, "order status updated", "order_id", orderID, "from", prev, "to", next)
	return order, nil
}
