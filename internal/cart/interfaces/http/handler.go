// Package http 购物车 HTTP 接口
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/ecommerce/internal/cart/application"
	"github.com/wyfcoding/ecommerce/pkg/middleware"
	"github.com/wyfcoding/ecommerce/pkg/response"
)

// CartHandler 购物车接口，均需登录
type CartHandler struct {
	svc *application.CartService
}

func NewCartHandler(svc *application.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/cart")
	{
		api.GET("", h.GetCart)
		api.POST("/items", h.AddItem)
		api.DELETE("/items/:productId", h.RemoveItem)
		api.DELETE("", h.Clear)
	}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.svc.GetCart(c.Request.Context(), middleware.MustIdentity(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cart)
}

type AddItemRequest struct {
	ProductID uint `json:"productId" binding:"required"`
	Quantity  int  `json:"quantity"`
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	cart, err := h.svc.AddItem(c.Request.Context(), application.AddItemCommand{
		UserID:    middleware.MustIdentity(c).UserID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, cart, "Item added to cart")
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := response.ParseIDParam(c, "productId")
	if !ok {
		return
	}
	cart, err := h.svc.RemoveItem(c.Request.Context(), middleware.MustIdentity(c).UserID, productID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, cart, "Item removed from cart")
}

func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.svc.Clear(c.Request.Context(), middleware.MustIdentity(c).UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, nil, "Cart cleared")
}
