package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func newTracedRouter() *gin.Engine {
	router := gin.New()
	router.Use(
		RequestID(),
		TracingWithConfig(TracingConfig{ServiceName: "backoffice-test", Enabled: true}),
		SpanErrorMarker(),
		DevScopeMiddleware(DevScopeConfig{}),
		TracingAttributeInjector(),
	)
	router.GET("/api/v1/subscriptions/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestTracing_SpanCarriesScope(t *testing.T) {
	sr := setupRecorder(t)
	tenantID := uuid.NewString()

	serve(newTracedRouter(), http.MethodGet, "/api/v1/subscriptions/abc", "",
		TenantHeaderKey, tenantID, "X-Request-ID", "req-9")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Name(), "/api/v1/subscriptions/:id")
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, tenantID, attrs[telemetry.SpanAttrTenantID])
	assert.Equal(t, "req-9", attrs["request_id"])
	assert.Equal(t, "false", attrs["admin"])
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_MarksErrorResponses(t *testing.T) {
	sr := setupRecorder(t)

	serve(newTracedRouter(), http.MethodGet, "/api/v1/subscriptions/missing", "")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "Not Found", spans[0].Status().Description)
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupRecorder(t)
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/x", "")
	assert.Empty(t, sr.Ended())
}
