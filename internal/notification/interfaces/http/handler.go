package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/ecommerce/internal/notification/application"
	"github.com/wyfcoding/ecommerce/pkg/middleware"
	"github.com/wyfcoding/ecommerce/pkg/response"
)

// NotificationHandler 通知查询接口
type NotificationHandler struct {
	query *application.NotificationQueryService
}

func NewNotificationHandler(query *application.NotificationQueryService) *NotificationHandler {
	return &NotificationHandler{query: query}
}

// RegisterRoutes router 需已挂载 AuthMiddleware
func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/notifications", h.List)
}

// List 当前用户的通知
func (h *NotificationHandler) List(c *gin.Context) {
	id := middleware.MustIdentity(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, pagination, err := h.query.ListForUser(c.Request.Context(), id.UserID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, items, pagination)
}
