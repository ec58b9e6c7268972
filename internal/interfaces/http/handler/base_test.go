package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/saas/backoffice/internal/interfaces/http/dto"
	"github.com/saas/backoffice/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, path, target string, h gin.HandlerFunc, mw ...gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(mw...)
	r.GET(path, h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", shared.NewValidationError("name is required"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"invalid state", shared.NewInvalidStateTransitionError("invoice", "paid", "cancelled"), http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"invalid range", shared.NewInvalidRangeError("start must be before end"), http.StatusBadRequest, dto.ErrCodeInvalidRange},
		{"not found", shared.NewNotFoundError("plan"), http.StatusNotFound, dto.ErrCodeNotFound},
		{"concurrency", shared.NewConcurrencyConflictError("subscription"), http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{"wrapped domain error", fmt.Errorf("load: %w", shared.NewNotFoundError("tenant")), http.StatusNotFound, dto.ErrCodeNotFound},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, dto.ErrCodeTimeout},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h BaseHandler
			w := serve(t, "/x", "/x", func(c *gin.Context) { h.HandleError(c, tt.err) })
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestBaseHandler_HandleErrorHidesInternals(t *testing.T) {
	var h BaseHandler
	w := serve(t, "/x", "/x", func(c *gin.Context) { h.HandleError(c, errors.New("password=hunter2")) })
	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestBaseHandler_PathID(t *testing.T) {
	var h BaseHandler
	var got uuid.UUID
	handler := func(c *gin.Context) {
		id, ok := h.pathID(c, "plan")
		if !ok {
			return
		}
		got = id
		h.NoContent(c)
	}

	id := uuid.New()
	w := serve(t, "/plans/:id", "/plans/"+id.String(), handler)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, id, got)

	w = serve(t, "/plans/:id", "/plans/not-a-uuid", handler)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, errorCode(t, w))
}

func TestBaseHandler_TenantID(t *testing.T) {
	var h BaseHandler
	handler := func(c *gin.Context) {
		id, ok := h.tenantID(c)
		if !ok {
			return
		}
		h.Success(c, id)
	}
	scope := middleware.DevScopeMiddleware(middleware.DevScopeConfig{})

	tenant := uuid.New()
	r := gin.New()
	r.Use(middleware.RequestID(), scope)
	r.GET("/x", handler)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(middleware.TenantHeaderKey, tenant.String())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var got uuid.UUID
	decode(t, w, &got)
	assert.Equal(t, tenant, got)

	w = serve(t, "/x", "/x", handler, scope)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
