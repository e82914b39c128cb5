// Package http 用户上下文的 HTTP 接口
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/ecommerce/internal/user/application"
	"github.com/wyfcoding/ecommerce/pkg/response"
)

// AuthHandler 认证接口
type AuthHandler struct {
	auth *application.AuthService
}

func NewAuthHandler(auth *application.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes 注册路由，均为公开接口
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/auth")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.GET("/verify-email", h.VerifyEmail)
		api.POST("/request-password-reset", h.RequestPasswordReset)
		api.POST("/verify-reset-otp", h.VerifyResetOTP)
		api.POST("/reset-password", h.ResetPassword)
	}
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Phone     string `json:"phone"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.auth.Register(c.Request.Context(), application.RegisterCommand{
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if res.Resent {
		response.SuccessWithMessage(c, res.User, "Verification email resent. Please check your inbox.")
		return
	}
	msg := "User registered successfully"
	if !res.User.IsVerified {
		msg = "User registered successfully. Please check your email to verify your account."
	}
	response.Created(c, res.User, msg)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, res, "Login successful")
}

// VerifyEmail GET /auth/verify-email?token=...
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "Verification token is required")
		return
	}
	user, err := h.auth.VerifyEmail(c.Request.Context(), raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, user, "Email verified successfully")
}

type EmailRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, nil, "OTP sent to your email")
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

func (h *AuthHandler) VerifyResetOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.auth.VerifyResetOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, nil, "OTP verified successfully")
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, nil, "Password reset successfully")
}
