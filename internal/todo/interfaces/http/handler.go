// Package http 待办 HTTP 接口
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/ecommerce/internal/todo/application"
	"github.com/wyfcoding/ecommerce/pkg/middleware"
	"github.com/wyfcoding/ecommerce/pkg/response"
)

// TodoHandler 待办接口
type TodoHandler struct {
	svc *application.TodoService
}

func NewTodoHandler(svc *application.TodoService) *TodoHandler {
	return &TodoHandler{svc: svc}
}

// RegisterRoutes /todos 需要登录，/users 仅管理员
func (h *TodoHandler) RegisterRoutes(groups middleware.RouteGroups) {
	todos := groups.Authed.Group("/todos")
	{
		todos.GET("", h.List)
		todos.POST("", h.Create)
		todos.GET("/:id", h.Get)
		todos.PUT("/:id", h.Update)
		todos.DELETE("/:id", h.Delete)
	}

	users := groups.Authed.Group("/users", middleware.RequireRole("admin"))
	{
		users.GET("", h.ListUsers)
		users.GET("/:userId/todos", h.ListUserTodos)
		users.POST("/:userId/todos", h.CreateUserTodo)
	}
}

type createTodoRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type updateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

func (h *TodoHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	list, err := h.svc.List(c.Request.Context(), middleware.MustIdentity(c).UserID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, list.Todos, list.Pagination)
}

func (h *TodoHandler) Create(c *gin.Context) {
	var req createTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.svc.Create(c.Request.Context(), middleware.MustIdentity(c).UserID, application.CreateTodoCommand(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t, "Todo created")
}

func (h *TodoHandler) Get(c *gin.Context) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.Get(c.Request.Context(), middleware.MustIdentity(c).UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, t)
}

func (h *TodoHandler) Update(c *gin.Context) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.svc.Update(c.Request.Context(), middleware.MustIdentity(c).UserID, id, application.UpdateTodoCommand(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, t, "Todo updated")
}

func (h *TodoHandler) Delete(c *gin.Context) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.MustIdentity(c).UserID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, nil, "Todo deleted")
}

func (h *TodoHandler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)
	rows, pagination, err := h.svc.UsersWithCounts(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, rows, pagination)
}

func (h *TodoHandler) ListUserTodos(c *gin.Context) {
	userID, ok := response.ParseIDParam(c, "userId")
	if !ok {
		return
	}
	page, limit := pageParams(c)
	list, err := h.svc.ListForUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, list.Todos, list.Pagination)
}

func (h *TodoHandler) CreateUserTodo(c *gin.Context) {
	userID, ok := response.ParseIDParam(c, "userId")
	if !ok {
		return
	}
	var req createTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.svc.CreateForUser(c.Request.Context(), userID, application.CreateTodoCommand(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t, "Todo created")
}
