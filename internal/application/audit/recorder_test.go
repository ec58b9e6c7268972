package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/audit"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/identity"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAuditRepository) FindByAggregate(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]audit.Entry, error) {
	args := m.Called(ctx, aggregateType, aggregateID)
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]audit.Entry, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]audit.Entry), args.Get(1).(int64), args.Error(2)
}

var _ audit.Repository = (*MockAuditRepository)(nil)

func TestRecorder_Handle(t *testing.T) {
	tenant, err := identity.NewTenant("ACME", "Acme")
	require.NoError(t, err)
	require.NoError(t, tenant.Suspend())
	events := tenant.PullDomainEvents()
	require.Len(t, events, 2)
	changed := events[1]

	t.Run("appends the event as an entry", func(t *testing.T) {
		repo := new(MockAuditRepository)
		repo.On("Append", mock.Anything, mock.MatchedBy(func(e *audit.Entry) bool {
			return e.ID == changed.EventID() &&
				e.TenantID == tenant.ID &&
				e.Action == identity.EventTypeTenantStatusChanged &&
				e.AggregateType == identity.AggregateTypeTenant
		})).Return(nil)

		recorder := NewRecorder(repo, zap.NewNop())
		require.NoError(t, recorder.Handle(context.Background(), changed))
		repo.AssertExpectations(t)
	})

	t.Run("storage failure is returned to the bus", func(t *testing.T) {
		repo := new(MockAuditRepository)
		repo.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		err := NewRecorder(repo, nil).Handle(context.Background(), changed)
		assert.ErrorContains(t, err, "disk full")
	})
}

func TestRecorder_EventTypes(t *testing.T) {
	types := NewRecorder(new(MockAuditRepository), nil).EventTypes()
	assert.Contains(t, types, billing.EventTypeSubscriptionPlanChanged)
	assert.Contains(t, types, billing.EventTypePlanDeleted)
	assert.Contains(t, types, identity.EventTypeTenantCreated)
}

func TestTrailService_ForTenant(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockAuditRepository)
	entries := []audit.Entry{{
		ID:            uuid.New(),
		TenantID:      tenantID,
		AggregateType: billing.AggregateTypeSubscription,
		AggregateID:   uuid.New(),
		Action:        billing.EventTypeSubscriptionStatusChanged,
		Payload:       `{"from":"trial","to":"active"}`,
	}}
	repo.On("FindForTenant", mock.Anything, tenantID, mock.MatchedBy(func(f shared.Filter) bool {
		return f.Filters["action"] == billing.EventTypeSubscriptionStatusChanged && f.PageSize == 20
	})).Return(entries, int64(41), nil)

	result, err := NewTrailService(repo, nil).ForTenant(context.Background(), tenantID, TrailFilter{Action: billing.EventTypeSubscriptionStatusChanged})

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalPages)
	require.Len(t, result.Entries, 1)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(result.Entries[0].Payload, &payload))
	assert.Equal(t, "active", payload["to"])
}
