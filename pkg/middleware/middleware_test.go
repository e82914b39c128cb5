package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ecommerce/pkg/config"
	"github.com/wyfcoding/ecommerce/pkg/ratelimit"
	"github.com/wyfcoding/ecommerce/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func newAuthRouter(tokens *token.Manager) *gin.Engine {
	r := gin.New()
	r.Use(GinLoggingMiddleware(), GinRecoveryMiddleware())

	api := r.Group("/api", AuthMiddleware(tokens))
	api.GET("/me", func(c *gin.Context) {
		id := MustIdentity(c)
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID, "role": id.Role})
	})
	api.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func serve(r http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := token.NewManager("secret", "shop")
	r := newAuthRouter(tokens)

	w := serve(r, http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = serve(r, http.MethodGet, "/api/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	customer, err := tokens.Issue(7, "c@example.com", "customer", token.PurposeAccess, time.Hour)
	require.NoError(t, err)
	w = serve(r, http.MethodGet, "/api/me", customer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 7, decode(t, w)["userId"])
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	w = serve(r, http.MethodGet, "/api/admin", customer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient permissions", decode(t, w)["message"])

	admin, err := tokens.Issue(1, "a@example.com", "admin", token.PurposeAccess, time.Hour)
	require.NoError(t, err)
	w = serve(r, http.MethodGet, "/api/admin", admin)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecovery(t *testing.T) {
	r := newAuthRouter(token.NewManager("secret", "shop"))
	w := serve(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w)["message"])
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(GinCORSMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodOptions, "/x", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ ratelimit.Limit) (*ratelimit.Result, error) {
	s.keys = append(s.keys, key)
	if s.err != nil {
		return nil, s.err
	}
	return &ratelimit.Result{Allowed: s.allowed, RetryAfter: time.Second}, nil
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}
	tokens := token.NewManager("secret", "shop")

	newRouter := func(l ratelimit.RateLimiter) *gin.Engine {
		r := gin.New()
		r.Use(RateLimitMiddleware(l, cfg, tokens, nil))
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	denied := &stubLimiter{allowed: false}
	w := serve(newRouter(denied), http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	require.Len(t, denied.keys, 1)
	assert.Equal(t, ratelimit.Key(0, "192.0.2.1"), denied.keys[0])

	broken := &stubLimiter{err: errors.New("redis down")}
	w = serve(newRouter(broken), http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusOK, w.Code)

	allowed := &stubLimiter{allowed: true}
	w = serve(newRouter(allowed), http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddlewareKeysByUser(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}
	tokens := token.NewManager("secret", "shop")
	limiter := &stubLimiter{allowed: true}

	r := gin.New()
	r.Use(RateLimitMiddleware(limiter, cfg, tokens, nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	access, err := tokens.Issue(7, "c@example.com", "customer", token.PurposeAccess, time.Hour)
	require.NoError(t, err)
	verify, err := tokens.Issue(7, "c@example.com", "customer", token.PurposeVerifyEmail, time.Hour)
	require.NoError(t, err)

	serve(r, http.MethodGet, "/x", access)
	serve(r, http.MethodGet, "/x", "garbage")
	serve(r, http.MethodGet, "/x", verify)

	assert.Equal(t, []string{
		ratelimit.Key(7, "192.0.2.1"),
		ratelimit.Key(0, "192.0.2.1"),
		ratelimit.Key(0, "192.0.2.1"),
	}, limiter.keys)
}
