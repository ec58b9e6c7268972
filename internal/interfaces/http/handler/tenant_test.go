package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/application/identity"
	"github.com/saas/backoffice/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) mountTenants() {
	e.handle(http.MethodPost, "/tenants", e.tenants.Create)
	e.handle(http.MethodGet, "/tenants", e.tenants.List)
	e.handle(http.MethodGet, "/tenants/stats", e.tenants.Stats)
	e.handle(http.MethodGet, "/tenants/:id", e.tenants.GetByID)
	e.handle(http.MethodPost, "/tenants/:id/activate", e.tenants.Activate)
	e.handle(http.MethodPost, "/tenants/:id/suspend", e.tenants.Suspend)
}

// createTenant registers a tenant through the API and returns its id
func (e *testEnv) createTenant(t *testing.T, code string) uuid.UUID {
	t.Helper()
	w := e.do(t, asAdmin(), http.MethodPost, "/tenants", CreateTenantRequest{Code: code, Name: code + " Ltd"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tenant identity.TenantDTO
	decode(t, w, &tenant)
	return tenant.ID
}

func TestTenantHandler_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.mountTenants()

	id := env.createTenant(t, "acme")

	w := env.do(t, asAdmin(), http.MethodGet, "/tenants/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tenant identity.TenantDTO
	decode(t, w, &tenant)
	assert.Equal(t, "ACME", tenant.Code)
	assert.Equal(t, "active", tenant.Status)

	w = env.do(t, asAdmin(), http.MethodPost, "/tenants/"+id.String()+"/suspend", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &tenant)
	assert.Equal(t, "suspended", tenant.Status)

	w = env.do(t, asAdmin(), http.MethodPost, "/tenants/"+id.String()+"/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &tenant)
	assert.Equal(t, "active", tenant.Status)

	w = env.do(t, asAdmin(), http.MethodGet, "/tenants/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats identity.TenantStatsDTO
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Active)
}

func TestTenantHandler_CreateTrial(t *testing.T) {
	env := newTestEnv(t)
	env.mountTenants()

	w := env.do(t, asAdmin(), http.MethodPost, "/tenants", CreateTenantRequest{Code: "beta", Name: "Beta", Trial: true})
	require.Equal(t, http.StatusCreated, w.Code)
	var tenant identity.TenantDTO
	decode(t, w, &tenant)
	assert.Equal(t, "trial", tenant.Status)
}

func TestTenantHandler_List(t *testing.T) {
	env := newTestEnv(t)
	env.mountTenants()
	env.createTenant(t, "alpha")
	env.createTenant(t, "bravo")
	env.createTenant(t, "charlie")

	w := env.do(t, asAdmin(), http.MethodGet, "/tenants?page_size=2&sort_by=code&sort_dir=asc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tenants []identity.TenantDTO
	resp := decode(t, w, &tenants)
	require.Len(t, tenants, 2)
	assert.Equal(t, "ALPHA", tenants[0].Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(3), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
}

func TestTenantHandler_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.mountTenants()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing name", http.MethodPost, "/tenants", map[string]any{"code": "x1"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"bad code characters", http.MethodPost, "/tenants", CreateTenantRequest{Code: "a b", Name: "Bad"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"malformed id", http.MethodGet, "/tenants/nope", nil, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"unknown id", http.MethodGet, "/tenants/" + uuid.NewString(), nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"unknown status filter", http.MethodGet, "/tenants?status=gone", nil, http.StatusBadRequest, dto.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, asAdmin(), tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}
