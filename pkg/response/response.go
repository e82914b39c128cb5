// Package response 统一 HTTP 响应结构 {success, data, message}
package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/ecommerce/pkg/errorsx"
	"github.com/wyfcoding/ecommerce/pkg/logger"
)

// Body 响应体
type Body struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

// Success 200 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// SuccessWithMessage 200 成功响应并附带提示信息
func SuccessWithMessage(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data, Message: message})
}

// SuccessWithMeta 分页列表响应
func SuccessWithMeta(c *gin.Context, data, meta any) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data, Meta: meta})
}

// Created 201 创建成功
func Created(c *gin.Context, data any, message string) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data, Message: message})
}

// Error 根据错误类别输出状态码，内部错误记录日志并返回通用提示
func Error(c *gin.Context, err error) {
	status := errorsx.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	ErrorWithStatus(c, status, errorsx.PublicMessage(err))
}

// ErrorWithStatus 以指定状态码返回错误
func ErrorWithStatus(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Body{Success: false, Message: message})
}

// ParseIDParam 解析路径中的正整数 ID，失败时直接返回 400
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		ErrorWithStatus(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
