package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/ecommerce/internal/cart/domain"
	catalog "github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/errorsx"
	"github.com/wyfcoding/ecommerce/pkg/logger"
)

// CartItemView 购物车行，附带当前商品信息
type CartItemView struct {
	ProductID uint                `json:"productId"`
	Name      string              `json:"name"`
	Price     decimal.NullDecimal `json:"price"`
	Quantity  int                 `json:"quantity"`
	Subtotal  decimal.NullDecimal `json:"subtotal"`
	Available bool                `json:"available"`
}

// CartView 购物车视图
type CartView struct {
	ID          uint            `json:"id"`
	UserID      uint            `json:"userId"`
	Items       []CartItemView  `json:"items"`
	TotalItems  int             `json:"totalItems"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// AddItemCommand 加购命令，Quantity 为 0 时按 1 处理
type AddItemCommand struct {
	UserID    uint
	ProductID uint
	Quantity  int
}

// CartService 购物车操作
type CartService struct {
	carts    domain.CartRepository
	products catalog.ProductRepository
}

func NewCartService(carts domain.CartRepository, products catalog.ProductRepository) *CartService {
	return &CartService{carts: carts, products: products}
}

// GetOrCreate 返回用户购物车，不存在时创建空车
func (s *CartService) GetOrCreate(ctx context.Context, userID uint) (*domain.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil || cart != nil {
		return cart, err
	}

	cart = &domain.Cart{UserID: userID}
	if err := s.carts.Create(ctx, cart); err != nil {
		// 并发创建时以已存在的为准
		if db.IsDuplicate(err) {
			return s.carts.GetByUserID(ctx, userID)
		}
		return nil, err
	}
	return cart, nil
}

// GetCart 当前购物车
func (s *CartService) GetCart(ctx context.Context, userID uint) (*CartView, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// AddItem 加购；商品已在车内时数量累加
func (s *CartService) AddItem(ctx context.Context, cmd AddItemCommand) (*CartView, error) {
	qty := cmd.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, errorsx.Validation("Quantity must be positive")
	}

	p, err := s.products.GetByID(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsActive {
		return nil, errorsx.NotFound("Product not found")
	}

	cart, err := s.GetOrCreate(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.AddItem(ctx, cart.ID, cmd.ProductID, qty); err != nil {
		return nil, err
	}
	logger.Debug(ctx, "cart item added", "user_id", cmd.UserID, "product_id", cmd.ProductID, "quantity", qty)
	return s.GetCart(ctx, cmd.UserID)
}

// RemoveItem 移除商品，商品不在车内时不报错
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) (*CartView, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		if err := s.carts.RemoveItem(ctx, cart.ID, productID); err != nil {
			return nil, err
		}
	}
	return s.GetCart(ctx, userID)
}

// Clear 删除购物车，没有购物车时不报错
func (s *CartService) Clear(ctx context.Context, userID uint) error {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil || cart == nil {
		return err
	}
	return s.carts.Delete(ctx, cart.ID)
}

func (s *CartService) view(ctx context.Context, cart *domain.Cart) (*CartView, error) {
	v := &CartView{ID: cart.ID, UserID: cart.UserID, Items: make([]CartItemView, 0, len(cart.Items))}
	if cart.IsEmpty() {
		return v, nil
	}

	products, err := s.products.GetByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, it := range cart.Items {
		line := CartItemView{ProductID: it.ProductID, Quantity: it.Quantity}
		if p, ok := byID[it.ProductID]; ok {
			line.Name = p.Name
			line.Price = p.Price
			line.Available = p.IsActive && p.HasPrice()
			if p.HasPrice() {
				sub := p.Price.Decimal.Mul(decimal.NewFromInt(int64(it.Quantity)))
				line.Subtotal = decimal.NewNullDecimal(sub)
				v.TotalAmount = v.TotalAmount.Add(sub)
			}
		}
		v.TotalItems += it.Quantity
		v.Items = append(v.Items, line)
	}
	return v, nil
}
