package application

import (
	"context"

	"github.com/wyfcoding/ecommerce/internal/order/domain"
	"github.com/wyfcoding/ecommerce/pkg/errorsx"
	"github.com/wyfcoding/ecommerce/pkg/utils"
)

// OrderList 分页订单列表
type OrderList struct {
	Orders     []*domain.Order
	Pagination utils.Pagination
}

// OrderQueryService 订单查询
type OrderQueryService struct {
	orders domain.OrderRepository
}

func NewOrderQueryService(orders domain.OrderRepository) *OrderQueryService {
	return &OrderQueryService{orders: orders}
}

// ListForUser 当前用户的订单，最新的在前
func (s *OrderQueryService) ListForUser(ctx context.Context, userID uint, page, limit int) (*OrderList, error) {
	page, limit = utils.NormalizePage(page, limit, 10, 100)
	orders, total, err := s.orders.ListByUser(ctx, userID, utils.Offset(page, limit), limit)
	if err != nil {
		return nil, err
	}
	return &OrderList{Orders: orders, Pagination: utils.NewPagination(page, limit, total)}, nil
}

// Get 读取订单；非管理员只能读取自己的订单
func (s *OrderQueryService) Get(ctx context.Context, userID uint, isAdmin bool, orderID uint) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil || (!isAdmin && !o.IsOwnedBy(userID)) {
		return nil, errorsx.NotFound("Order not found")
	}
	return o, nil
}

// ListAll 管理端订单列表，可按状态过滤
func (s *OrderQueryService) ListAll(ctx context.Context, status string, page, limit int) (*OrderList, error) {
	f := domain.Filter{}
	if status != "" {
		st, err := domain.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		f.Status = st
	}
	page, limit = utils.NormalizePage(page, limit, 10, 100)
	f.Offset, f.Limit = utils.Offset(page, limit), limit

	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &OrderList{Orders: orders, Pagination: utils.NewPagination(page, limit, total)}, nil
}
