package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestControllerOf(t *testing.T) {
	tests := map[string]string{
		"/api/v1/plans/:id":               "plans",
		"/api/v1/admin/reports/dashboard": "admin",
		"/api/v2/reports/revenue":         "reports",
		"/health":                         "health",
		"/api/v1/:id":                     "",
		"":                                "",
	}
	for route, want := range tests {
		assert.Equal(t, want, controllerOf(route), route)
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("v12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("vx"))
	assert.False(t, isVersionSegment("plans"))
}

func TestProfiling_RunsHandlers(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		router := gin.New()
		router.Use(Profiling(enabled))
		calls := 0
		router.GET("/api/v1/plans", func(c *gin.Context) {
			calls++
			c.Status(http.StatusOK)
		})
		router.GET("/health", func(c *gin.Context) {
			calls++
			c.Status(http.StatusOK)
		})

		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/v1/plans", "").Code)
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", "").Code)
		assert.Equal(t, 2, calls)
	}
}
