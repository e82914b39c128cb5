package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/ecommerce/internal/user/application"
	"github.com/wyfcoding/ecommerce/pkg/middleware"
	"github.com/wyfcoding/ecommerce/pkg/response"
)

// UserHandler 个人资料与管理员用户管理
type UserHandler struct {
	users *application.UserService
}

func NewUserHandler(users *application.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes 注册需要登录与管理员权限的路由
func (h *UserHandler) RegisterRoutes(groups middleware.RouteGroups) {
	profile := groups.Authed.Group("/user/profile")
	{
		profile.GET("", h.GetProfile)
		profile.PUT("", h.UpdateProfile)
	}

	admin := groups.Admin.Group("/users")
	{
		admin.GET("", h.ListUsers)
		admin.GET("/:id", h.GetUser)
		admin.PUT("/:id", h.UpdateUser)
		admin.DELETE("/:id", h.DeleteUser)
	}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.users.GetProfile(c.Request.Context(), middleware.MustIdentity(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

type UpdateProfileRequest struct {
	Phone          *string `json:"phone"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	Bio            *string `json:"bio"`
	Gender         *string `json:"gender"`
	Address        *string `json:"address"`
	ProfilePicture *string `json:"profilePicture"`
	// YYYY-MM-DD
	DateOfBirth *string `json:"dateOfBirth"`
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	cmd := application.UpdateProfileCommand{
		Phone:          req.Phone,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Bio:            req.Bio,
		Gender:         req.Gender,
		Address:        req.Address,
		ProfilePicture: req.ProfilePicture,
	}
	if req.DateOfBirth != nil && *req.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, *req.DateOfBirth)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "dateOfBirth must be YYYY-MM-DD")
			return
		}
		cmd.DateOfBirth = &dob
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), middleware.MustIdentity(c).UserID, cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, user, "Profile updated successfully")
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	users, pagination, err := h.users.ListUsers(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, users, pagination)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

type AdminUpdateUserRequest struct {
	Role       *string `json:"role"`
	Phone      *string `json:"phone"`
	IsVerified *bool   `json:"isVerified"`
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.users.UpdateUser(c.Request.Context(), id, application.AdminUpdateUserCommand{
		Role:       req.Role,
		Phone:      req.Phone,
		IsVerified: req.IsVerified,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, user, "User updated successfully")
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), middleware.MustIdentity(c).UserID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, nil, "User deleted successfully")
}
