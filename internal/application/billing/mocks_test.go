package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/identity"
	"github.com/saas/backoffice/internal/domain/partner"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Plan), args.Error(1)
}

func (m *MockPlanRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Plan, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]billing.Plan), args.Get(1).(int64), args.Error(2)
}

func (m *MockPlanRepository) ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPlanRepository) CountByStatus(ctx context.Context) (map[billing.PlanStatus]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[billing.PlanStatus]int64), args.Error(1)
}

func (m *MockPlanRepository) Save(ctx context.Context, plan *billing.Plan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *MockPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

var _ billing.PlanRepository = (*MockPlanRepository)(nil)

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindCurrentForTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]billing.Subscription, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]billing.Subscription), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubscriptionRepository) CountByPlan(ctx context.Context, planID uuid.UUID) (int64, error) {
	args := m.Called(ctx, planID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, sub *billing.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockSubscriptionRepository) SaveWithLock(ctx context.Context, sub *billing.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

var _ billing.SubscriptionRepository = (*MockSubscriptionRepository)(nil)

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]billing.Invoice, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]billing.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	args := m.Called(ctx, tenantID, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

var _ billing.InvoiceRepository = (*MockInvoiceRepository)(nil)

type MockProviderRepository struct {
	mock.Mock
}

func (m *MockProviderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Provider, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Provider), args.Error(1)
}

func (m *MockProviderRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]partner.Provider, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]partner.Provider), args.Get(1).(int64), args.Error(2)
}

func (m *MockProviderRepository) ExistsByDocument(ctx context.Context, tenantID uuid.UUID, document string) (bool, error) {
	args := m.Called(ctx, tenantID, document)
	return args.Bool(0), args.Error(1)
}

func (m *MockProviderRepository) Save(ctx context.Context, provider *partner.Provider) error {
	return m.Called(ctx, provider).Error(0)
}

var _ partner.ProviderRepository = (*MockProviderRepository)(nil)

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByCode(ctx context.Context, code string) (*identity.Tenant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]identity.Tenant), args.Get(1).(int64), args.Error(2)
}

func (m *MockTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	return m.Called(ctx, tenant).Error(0)
}

func (m *MockTenantRepository) CountByStatus(ctx context.Context) (map[identity.TenantStatus]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[identity.TenantStatus]int64), args.Error(1)
}

func (m *MockTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

var _ identity.TenantRepository = (*MockTenantRepository)(nil)

// =============================================================================
// Side effect recorders
// =============================================================================

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}

// recordingInvalidator remembers every pattern and the order relative to publishing
type recordingInvalidator struct {
	patterns []string
	err      error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, patterns ...string) error {
	r.patterns = append(r.patterns, patterns...)
	return r.err
}

type recordingMetrics struct {
	transitions     []string
	planChanges     []string
	invoiceStatuses []string
}

func (r *recordingMetrics) RecordSubscriptionTransition(_ context.Context, _ uuid.UUID, from, to string) {
	r.transitions = append(r.transitions, from+"->"+to)
}

func (r *recordingMetrics) RecordPlanChange(_ context.Context, _ uuid.UUID, classification string) {
	r.planChanges = append(r.planChanges, classification)
}

func (r *recordingMetrics) RecordInvoiceStatus(_ context.Context, _ uuid.UUID, status string) {
	r.invoiceStatuses = append(r.invoiceStatuses, status)
}

// eventTypes extracts the event types of a Publish call argument
func eventTypes(events []shared.DomainEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.EventType()
	}
	return out
}
