package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/saas/backoffice/internal/infrastructure/config"
	"github.com/saas/backoffice/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCORSRouter(origins ...string) *gin.Engine {
	router := gin.New()
	router.Use(CORSWithConfig(CORSConfigFrom(config.HTTPConfig{CORSAllowOrigins: origins})))
	router.GET("/api/v1/plans", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestCORS(t *testing.T) {
	t.Run("empty whitelist sets no headers", func(t *testing.T) {
		rec := serve(newCORSRouter(), http.MethodGet, "/api/v1/plans", "", "Origin", "http://evil.example")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("whitelisted origin is echoed with credentials", func(t *testing.T) {
		rec := serve(newCORSRouter("http://admin.example"), http.MethodGet, "/api/v1/plans", "", "Origin", "http://admin.example")
		assert.Equal(t, "http://admin.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), TenantHeaderKey)
	})

	t.Run("wildcard never allows credentials", func(t *testing.T) {
		rec := serve(newCORSRouter("*"), http.MethodGet, "/api/v1/plans", "", "Origin", "http://any.example")
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight answers 204", func(t *testing.T) {
		rec := serve(newCORSRouter("http://admin.example"), http.MethodOptions, "/api/v1/plans", "", "Origin", "http://admin.example")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "43200", rec.Header().Get("Access-Control-Max-Age"))
	})
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	var seen string
	router.GET("/x", func(c *gin.Context) {
		seen = c.GetString(RequestIDKey)
		c.Status(http.StatusOK)
	})

	rec := serve(router, http.MethodGet, "/x", "", logger.RequestIDHeader, "req-123")
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(logger.RequestIDHeader))

	rec = serve(router, http.MethodGet, "/x", "")
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(logger.RequestIDHeader))
}

func TestSecureWithConfig(t *testing.T) {
	cfg := DefaultSecurityConfig()
	cfg.HSTSEnabled = true
	router := gin.New()
	router.Use(SecureWithConfig(cfg))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(router, http.MethodGet, "/x", "")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestTimeout(t *testing.T) {
	router := gin.New()
	router.Use(Timeout(20 * time.Millisecond))
	var ctxErr error
	router.GET("/slow", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		<-c.Request.Context().Done()
		ctxErr = c.Request.Context().Err()
		c.Status(http.StatusGatewayTimeout)
	})

	serve(router, http.MethodGet, "/slow", "")
	assert.ErrorIs(t, ctxErr, context.DeadlineExceeded)
}
