package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/ecommerce/pkg/response"
	"github.com/wyfcoding/ecommerce/pkg/token"
)

const identityKey = "identity"

// Identity 当前请求的调用者
type Identity struct {
	UserID uint
	Email  string
	Role   string
}

// IsAdmin 是否为管理员
func (i Identity) IsAdmin() bool {
	return i.Role == "admin"
}

// AuthMiddleware 校验 Bearer 访问令牌
func AuthMiddleware(tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := tokens.Parse(raw, token.PurposeAccess)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		c.Set(identityKey, Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role})
		c.Next()
	}
}

// RequireRole 需在 AuthMiddleware 之后使用
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		response.ErrorWithStatus(c, http.StatusForbidden, "Insufficient permissions")
	}
}

// CurrentIdentity 读取 AuthMiddleware 写入的调用者
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// MustIdentity 用于已挂载 AuthMiddleware 的路由
func MustIdentity(c *gin.Context) Identity {
	id, _ := CurrentIdentity(c)
	return id
}

// RouteGroups 按鉴权级别划分的路由组
type RouteGroups struct {
	Public *gin.RouterGroup
	Authed *gin.RouterGroup
	Admin  *gin.RouterGroup
}

// NewRouteGroups Authed 需要访问令牌，Admin 额外要求 admin 角色
func NewRouteGroups(api *gin.RouterGroup, tokens *token.Manager) RouteGroups {
	authed := api.Group("", AuthMiddleware(tokens))
	return RouteGroups{
		Public: api,
		Authed: authed,
		Admin:  authed.Group("/admin", RequireRole("admin")),
	}
}
