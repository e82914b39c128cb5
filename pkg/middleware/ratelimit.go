package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/ecommerce/pkg/config"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/metrics"
	"github.com/wyfcoding/ecommerce/pkg/ratelimit"
	"github.com/wyfcoding/ecommerce/pkg/response"
	"github.com/wyfcoding/ecommerce/pkg/token"
)

// RateLimitMiddleware 按用户（携带有效访问令牌）或客户端 IP 限流；限流器故障时放行。
// 挂在全局时早于 AuthMiddleware 执行，因此自行解析令牌，无效令牌按匿名处理而不拒绝
func RateLimitMiddleware(limiter ratelimit.RateLimiter, cfg config.RateLimitConfig, tokens *token.Manager, m *metrics.Metrics) gin.HandlerFunc {
	guard := ratelimit.NewGuard(limiter, ratelimit.PerSecond(cfg.QPS, cfg.Burst))
	limit := guard.Limit()

	return func(c *gin.Context) {
		if !cfg.Enabled || limiter == nil {
			c.Next()
			return
		}

		res, err := guard.Allow(c.Request.Context(), callerID(c, tokens), c.ClientIP())
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(res.ResetAfter/time.Second), 10))

		if !res.Allowed {
			m.RecordRateLimited()
			c.Header("Retry-After", strconv.FormatInt(int64(res.RetryAfter/time.Second)+1, 10))
			response.ErrorWithStatus(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}

// callerID 已认证调用者的用户 ID，匿名返回 0
func callerID(c *gin.Context, tokens *token.Manager) uint {
	if id, ok := CurrentIdentity(c); ok {
		return id.UserID
	}
	if tokens == nil {
		return 0
	}
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return 0
	}
	claims, err := tokens.Parse(raw, token.PurposeAccess)
	if err != nil {
		return 0
	}
	return claims.UserID
}
