package partner

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates provider", func(t *testing.T) {
		p, err := NewProvider(tenantID, " Clinic One ", "Owner@Clinic.io", "555-0100", "12.345.678/0001-90")

		require.NoError(t, err)
		assert.Equal(t, tenantID, p.TenantID)
		assert.Equal(t, "Clinic One", p.Name)
		assert.Equal(t, "owner@clinic.io", p.Email)
		assert.Equal(t, "12345678000190", p.Document)
		assert.True(t, p.IsActive())
		assert.Nil(t, p.PlanID)
	})

	t.Run("requires tenant", func(t *testing.T) {
		_, err := NewProvider(uuid.Nil, "Clinic", "", "", "")
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("rejects bad email", func(t *testing.T) {
		_, err := NewProvider(tenantID, "Clinic", "not-an-email", "", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email")
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewProvider(tenantID, "", "", "", "")
		assert.Error(t, err)
	})
}

func TestProvider_Plan(t *testing.T) {
	p, err := NewProvider(uuid.New(), "Clinic", "", "", "")
	require.NoError(t, err)

	planID := uuid.New()
	p.AssignPlan(planID)
	require.NotNil(t, p.PlanID)
	assert.Equal(t, planID, *p.PlanID)
	assert.Equal(t, 2, p.Version)

	p.ClearPlan()
	assert.Nil(t, p.PlanID)
}

func TestProvider_Deactivate(t *testing.T) {
	p, err := NewProvider(uuid.New(), "Clinic", "", "", "")
	require.NoError(t, err)

	require.NoError(t, p.Deactivate())
	assert.False(t, p.IsActive())
	assert.Error(t, p.Deactivate())
}
