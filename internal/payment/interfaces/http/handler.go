// Package http 支付回调与支付记录接口
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/ecommerce/internal/payment/application"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/middleware"
	"github.com/wyfcoding/ecommerce/pkg/response"
)

const maxWebhookBody = 64 << 10

// PaymentHandler 支付接口
type PaymentHandler struct {
	svc *application.PaymentService
}

func NewPaymentHandler(svc *application.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// RegisterRoutes webhook 不经过令牌认证，依赖网关签名
func (h *PaymentHandler) RegisterRoutes(groups middleware.RouteGroups) {
	groups.Public.POST("/payment/webhook", h.Webhook)
	groups.Admin.GET("/orders/:id/payments", h.ListByOrder)
}

// Webhook 网关只区分 2xx 与非 2xx，任何失败都返回 400 以触发重投
func (h *PaymentHandler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "Error processing webhook")
		return
	}

	if err := h.svc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		logger.Warn(c.Request.Context(), "webhook rejected", "error", err)
		response.ErrorWithStatus(c, http.StatusBadRequest, "Error processing webhook")
		return
	}
	response.SuccessWithMessage(c, nil, "Webhook processed")
}

func (h *PaymentHandler) ListByOrder(c *gin.Context) {
	orderID, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	payments, err := h.svc.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, payments)
}
