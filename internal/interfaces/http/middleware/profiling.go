package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/saas/backoffice/internal/infrastructure/telemetry"
)

// Profiling attaches Pyroscope labels (controller, route, method, tenant)
// to the request so CPU samples can be sliced per endpoint. Register it
// after the auth middleware. Disabled, it passes requests through.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if skipped(c.Request.URL.Path, []string{"/health", "/api/v1/health"}, []string{"/swagger"}) {
			c.Next()
			return
		}
		route := c.FullPath()
		labels := telemetry.HTTPRequestLabels(controllerOf(route), route, c.Request.Method, GetTenantID(c))
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// controllerOf returns the first resource segment of a route pattern,
// e.g. "/api/v1/admin/reports/dashboard" gives "admin".
func controllerOf(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) || strings.HasPrefix(part, ":") {
			continue
		}
		return part
	}
	return ""
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || segment[0] != 'v' {
		return false
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
