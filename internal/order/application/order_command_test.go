package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	cart "github.com/wyfcoding/ecommerce/internal/cart/domain"
	catalog "github.com/wyfcoding/ecommerce/internal/catalog/domain"
	notification "github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/internal/order/domain"
	"github.com/wyfcoding/ecommerce/pkg/cache"
	"github.com/wyfcoding/ecommerce/pkg/errorsx"
)

type orderFixture struct {
	svc      *OrderCommandService
	queries  *OrderQueryService
	orders   *memoryOrders
	carts    *memoryCarts
	checkout *stubCheckout
	notifier *recordingEnqueuer
}

func newOrderFixture(locker Locker) *orderFixture {
	products := &productStub{items: map[uint]*catalog.Product{
		1: {ID: 1, Name: "Mug", Price: decimal.NewNullDecimal(decimal.RequireFromString("10.00")), IsActive: true},
		2: {ID: 2, Name: "Pen", Price: decimal.NewNullDecimal(decimal.RequireFromString("5.50")), IsActive: true},
		3: {ID: 3, Name: "Gift card", IsActive: true},
	}}
	f := &orderFixture{
		orders:   newMemoryOrders(),
		carts:    &memoryCarts{},
		checkout: &stubCheckout{},
		notifier: &recordingEnqueuer{},
	}
	tx := &rollbackTx{stores: []snapshotter{f.orders, f.carts, f.notifier}}
	f.svc = NewOrderCommandService(f.orders, f.carts, products, tx, f.checkout, f.notifier, locker, time.Minute, nil)
	f.queries = NewOrderQueryService(f.orders)
	return f
}

func standardCart(f *orderFixture, userID uint) {
	f.carts.put(userID,
		cart.CartItem{ProductID: 1, Quantity: 2},
		cart.CartItem{ProductID: 2, Quantity: 1},
	)
}

func TestCheckoutFromCart(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	standardCart(f, 7)

	res, err := f.svc.Checkout(ctx, 7, "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, "cs_test", res.Session.ID)

	o, err := f.queries.Get(ctx, 7, false, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, "25.50", o.TotalAmount.StringFixed(2))
	require.Len(t, o.Items, 2)
	assert.EqualValues(t, 1, o.Items[0].ProductID)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, "10.00", o.Items[0].UnitPrice.StringFixed(2))

	c, err := f.carts.GetByUserID(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, c, "cart is deleted after checkout")
}

func TestCheckoutEmptyCart(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	_, err := f.svc.Checkout(ctx, 7, "addr")
	assert.True(t, errorsx.IsKind(err, errorsx.KindInvalidState))

	f.carts.put(8)
	_, err = f.svc.Checkout(ctx, 8, "addr")
	assert.True(t, errorsx.IsKind(err, errorsx.KindInvalidState))
	assert.Zero(t, f.orders.count())
	assert.Empty(t, f.checkout.calls)
}

func TestCheckoutUnpricedProduct(t *testing.T) {
	f := newOrderFixture(nil)
	f.carts.put(7, cart.CartItem{ProductID: 1, Quantity: 1}, cart.CartItem{ProductID: 3, Quantity: 1})

	_, err := f.svc.Checkout(context.Background(), 7, "addr")
	assert.True(t, errorsx.IsKind(err, errorsx.KindInvalidState))
	assert.Zero(t, f.orders.count())
	c, _ := f.carts.GetByUserID(context.Background(), 7)
	assert.NotNil(t, c, "cart untouched when checkout fails")
}

func TestCheckoutRollsBackWhenCartDeleteFails(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	standardCart(f, 7)
	f.carts.deleteErr = errors.New("deadlock detected")

	_, err := f.svc.Checkout(ctx, 7, "addr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")

	assert.Zero(t, f.orders.count(), "order insert rolled back")
	assert.Empty(t, f.checkout.calls, "no checkout session for a rolled back order")
	c, err := f.carts.GetByUserID(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Items, 2, "cart keeps its items")

	// 故障恢复后同一购物车可以正常下单
	f.carts.deleteErr = nil
	res, err := f.svc.Checkout(ctx, 7, "addr")
	require.NoError(t, err)
	assert.Equal(t, "25.50", res.Order.TotalAmount.StringFixed(2))
	assert.Equal(t, 1, f.orders.count())
}

func TestUpdateStatusRollsBackWhenEnqueueFails(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	standardCart(f, 7)
	res, err := f.svc.Checkout(ctx, 7, "addr")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, res.Order.ID, "PROCESSING")
	require.NoError(t, err)

	f.notifier.err = errors.New("outbox unavailable")
	_, err = f.svc.UpdateStatus(ctx, res.Order.ID, "SHIPPED")
	require.Error(t, err)

	stored, err := f.orders.GetByID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, stored.Status, "status change rolled back with the notification")
	assert.Empty(t, f.notifier.tasks)
}

func TestCheckoutRequiresAddress(t *testing.T) {
	f := newOrderFixture(nil)
	standardCart(f, 7)
	_, err := f.svc.Checkout(context.Background(), 7, "   ")
	assert.True(t, errorsx.IsKind(err, errorsx.KindValidation))
}

func TestCheckoutSessionFailureKeepsOrder(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	standardCart(f, 7)
	f.checkout.err = errors.New("gateway timeout")

	_, err := f.svc.Checkout(ctx, 7, "addr")
	assert.True(t, errorsx.IsKind(err, errorsx.KindUpstreamFailure))
	require.Equal(t, 1, f.orders.count())
	assert.Equal(t, "Failed to create checkout session for order 1", errorsx.PublicMessage(err))

	// 重新发起支付
	f.checkout.err = nil
	res, err := f.svc.Pay(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, res.Order.Status)
	assert.Equal(t, []uint{1, 1}, f.checkout.calls)
}

func TestPayGuards(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	standardCart(f, 7)
	res, err := f.svc.Checkout(ctx, 7, "addr")
	require.NoError(t, err)

	_, err = f.svc.Pay(ctx, 8, res.Order.ID)
	assert.True(t, errorsx.IsKind(err, errorsx.KindNotFound), "other users cannot pay")
	_, err = f.svc.Pay(ctx, 7, 999)
	assert.True(t, errorsx.IsKind(err, errorsx.KindNotFound))

	_, err = f.svc.UpdateStatus(ctx, res.Order.ID, "CANCELLED")
	require.NoError(t, err)
	_, err = f.svc.Pay(ctx, 7, res.Order.ID)
	require.Error(t, err)
	assert.True(t, errorsx.IsKind(err, errorsx.KindInvalidState))
	assert.Equal(t, "Order must be PENDING to pay", errorsx.PublicMessage(err))
}

func TestUpdateStatusTransitions(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	standardCart(f, 7)
	res, err := f.svc.Checkout(ctx, 7, "addr")
	require.NoError(t, err)
	id := res.Order.ID

	_, err = f.svc.UpdateStatus(ctx, id, "SHIPPED")
	assert.True(t, errorsx.IsKind(err, errorsx.KindInvalidTransition), "PENDING -> SHIPPED")

	_, err = f.svc.UpdateStatus(ctx, id, "BOGUS")
	assert.True(t, errorsx.IsKind(err, errorsx.KindValidation))

	_, err = f.svc.UpdateStatus(ctx, 999, "PROCESSING")
	assert.True(t, errorsx.IsKind(err, errorsx.KindNotFound))

	o, err := f.svc.UpdateStatus(ctx, id, "PROCESSING")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, o.Status)
	assert.Empty(t, f.notifier.tasks)

	o, err = f.svc.UpdateStatus(ctx, id, "SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, o.Status)

	require.Len(t, f.notifier.tasks, 1, "one shipment notification")
	task := f.notifier.tasks[0]
	assert.Equal(t, notification.TypeOrderShipped, task.Type)
	assert.EqualValues(t, 7, task.UserID)
	require.NotNil(t, task.Order)
	assert.Equal(t, "25.50", task.Order.TotalAmount)

	stored, err := f.orders.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, stored.Status)
}

func TestConcurrentCheckoutCreatesOneOrder(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	f := newOrderFixture(rc)
	standardCart(f, 7)

	var g errgroup.Group
	errs := make([]error, 8)
	for i := range errs {
		g.Go(func() error {
			_, errs[i] = f.svc.Checkout(context.Background(), 7, "addr")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errorsx.IsKind(err, errorsx.KindInvalidState), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.orders.count())
	assert.False(t, mr.Exists("checkout:lock:7"), "lock released")
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	for i := 0; i < 3; i++ {
		standardCart(f, 7)
		_, err := f.svc.Checkout(ctx, 7, "addr")
		require.NoError(t, err)
	}
	standardCart(f, 8)
	other, err := f.svc.Checkout(ctx, 8, "addr")
	require.NoError(t, err)

	list, err := f.queries.ListForUser(ctx, 7, 1, 2)
	require.NoError(t, err)
	require.Len(t, list.Orders, 2)
	assert.EqualValues(t, 3, list.Orders[0].ID, "newest first")
	assert.EqualValues(t, 3, list.Pagination.TotalItems)

	_, err = f.queries.Get(ctx, 7, false, other.Order.ID)
	assert.True(t, errorsx.IsKind(err, errorsx.KindNotFound))
	o, err := f.queries.Get(ctx, 1, true, other.Order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 8, o.UserID)

	_, err = f.svc.UpdateStatus(ctx, other.Order.ID, "PROCESSING")
	require.NoError(t, err)
	all, err := f.queries.ListAll(ctx, "processing", 1, 10)
	require.NoError(t, err)
	require.Len(t, all.Orders, 1)
	assert.Equal(t, other.Order.ID, all.Orders[0].ID)
}
