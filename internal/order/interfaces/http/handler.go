// Package http 订单 HTTP 接口
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/ecommerce/internal/order/application"
	"github.com/wyfcoding/ecommerce/pkg/middleware"
	"github.com/wyfcoding/ecommerce/pkg/response"
)

// OrderHandler 订单接口
type OrderHandler struct {
	commands *application.OrderCommandService
	queries  *application.OrderQueryService
}

func NewOrderHandler(commands *application.OrderCommandService, queries *application.OrderQueryService) *OrderHandler {
	return &OrderHandler{commands: commands, queries: queries}
}

// RegisterRoutes 状态变更与全量列表仅管理员可用
func (h *OrderHandler) RegisterRoutes(groups middleware.RouteGroups) {
	orders := groups.Authed.Group("/orders")
	{
		orders.POST("/checkout", h.Checkout)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id/pay", h.PayOrder)
		orders.PATCH("/:id/status", middleware.RequireRole("admin"), h.UpdateStatus)
	}
	groups.Admin.GET("/orders", h.AdminListOrders)
}

type checkoutRequest struct {
	ShippingAddress string `json:"shippingAddress" binding:"required"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Checkout 购物车下单并返回结算会话
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	id := middleware.MustIdentity(c)
	res, err := h.commands.Checkout(c.Request.Context(), id.UserID, req.ShippingAddress)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res, "Order created")
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	id := middleware.MustIdentity(c)
	list, err := h.queries.ListForUser(c.Request.Context(), id.UserID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, list.Orders, list.Pagination)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	id := middleware.MustIdentity(c)
	o, err := h.queries.Get(c.Request.Context(), id.UserID, id.IsAdmin(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, o)
}

// PayOrder 为待支付订单重新发起结算
func (h *OrderHandler) PayOrder(c *gin.Context) {
	orderID, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	id := middleware.MustIdentity(c)
	res, err := h.commands.Pay(c.Request.Context(), id.UserID, orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	o, err := h.commands.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, o, "Order status updated")
}

func (h *OrderHandler) AdminListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	list, err := h.queries.ListAll(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, list.Orders, list.Pagination)
}
