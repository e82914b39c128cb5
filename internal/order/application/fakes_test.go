package application

import (
	"context"
	"errors"
	"sort"
	"sync"

	cart "github.com/wyfcoding/ecommerce/internal/cart/domain"
	catalog "github.com/wyfcoding/ecommerce/internal/catalog/domain"
	notification "github.com/wyfcoding/ecommerce/internal/notification/domain"
	"github.com/wyfcoding/ecommerce/internal/order/domain"
)

type snapshotter interface {
	snapshot() (restore func())
}

// rollbackTx 串行执行事务，fn 返回错误时把内存仓储恢复到事务开始前的状态
type rollbackTx struct {
	mu     sync.Mutex
	stores []snapshotter
}

func (t *rollbackTx) WithTx(ctx context.Context, fn func(context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	restores := make([]func(), 0, len(t.stores))
	for _, s := range t.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

type memoryOrders struct {
	mu     sync.Mutex
	nextID uint
	orders map[uint]*domain.Order
}

func newMemoryOrders() *memoryOrders {
	return &memoryOrders{orders: map[uint]*domain.Order{}}
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := &domain.Order{
		ID: o.ID, UserID: o.UserID, Status: o.Status, TotalAmount: o.TotalAmount,
		ShippingAddress: o.ShippingAddress, CheckoutSessionID: o.CheckoutSessionID,
		PaymentIntentID: o.PaymentIntentID, PaidAt: o.PaidAt,
		Items:     append([]domain.OrderItem(nil), o.Items...),
		CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
	return cp
}

func (r *memoryOrders) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *memoryOrders) GetByID(_ context.Context, id uint) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (r *memoryOrders) GetByIDForUpdate(ctx context.Context, id uint) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *memoryOrders) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*domain.Order, int64, error) {
	return r.List(ctx, domain.Filter{UserID: userID, Offset: offset, Limit: limit})
}

func (r *memoryOrders) List(_ context.Context, f domain.Filter) ([]*domain.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.Order
	for _, o := range r.orders {
		if f.UserID != 0 && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		all = append(all, cloneOrder(o))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if f.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (r *memoryOrders) Save(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return errors.New("order not found")
	}
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *memoryOrders) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	nextID := r.nextID
	saved := make(map[uint]*domain.Order, len(r.orders))
	for id, o := range r.orders {
		saved[id] = cloneOrder(o)
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.nextID = nextID
		r.orders = saved
	}
}

func (r *memoryOrders) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type memoryCarts struct {
	mu        sync.Mutex
	carts     map[uint]*cart.Cart
	deleteErr error
}

func (r *memoryCarts) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[uint]*cart.Cart, len(r.carts))
	for uid, c := range r.carts {
		cp := *c
		cp.Items = append([]cart.CartItem(nil), c.Items...)
		saved[uid] = &cp
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.carts = saved
	}
}

func (r *memoryCarts) put(userID uint, items ...cart.CartItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.carts == nil {
		r.carts = map[uint]*cart.Cart{}
	}
	r.carts[userID] = &cart.Cart{ID: userID + 100, UserID: userID, Items: items}
}

func (r *memoryCarts) GetByUserID(_ context.Context, userID uint) (*cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = append([]cart.CartItem(nil), c.Items...)
	return &cp, nil
}

func (r *memoryCarts) GetByUserIDForUpdate(ctx context.Context, userID uint) (*cart.Cart, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *memoryCarts) Create(context.Context, *cart.Cart) error { return nil }
func (r *memoryCarts) AddItem(context.Context, uint, uint, int) error { return nil }
func (r *memoryCarts) RemoveItem(context.Context, uint, uint) error { return nil }

func (r *memoryCarts) Delete(_ context.Context, cartID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for uid, c := range r.carts {
		if c.ID == cartID {
			delete(r.carts, uid)
		}
	}
	return nil
}

type productStub struct {
	catalog.ProductRepository
	items map[uint]*catalog.Product
}

func (p *productStub) GetByIDs(_ context.Context, ids []uint) ([]*catalog.Product, error) {
	var out []*catalog.Product
	for _, id := range ids {
		if v, ok := p.items[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

type stubCheckout struct {
	mu    sync.Mutex
	err   error
	calls []uint
}

func (s *stubCheckout) StartCheckout(_ context.Context, o *domain.Order) (*domain.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, o.ID)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.CheckoutSession{ID: "cs_test", URL: "https://pay.example.com/cs_test"}, nil
}

type recordingEnqueuer struct {
	mu    sync.Mutex
	err   error
	tasks []notification.Task
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, task notification.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *recordingEnqueuer) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := append([]notification.Task(nil), r.tasks...)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.tasks = saved
	}
}
