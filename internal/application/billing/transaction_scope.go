package billing

import (
	"context"

	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/partner"
)

// TransactionScope provides transactional access to the ledger repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories a ledger
// write touches. All repositories returned share the same transaction.
//
// A plan change closes one subscription and opens its successor, and a new
// subscription denormalizes the plan onto its provider, so both aggregates
// are written in the same unit of work.
type TransactionalRepositories interface {
	// SubscriptionRepo returns the subscription repository scoped to the current transaction
	SubscriptionRepo() billing.SubscriptionRepository
	// ProviderRepo returns the provider repository scoped to the current transaction
	ProviderRepo() partner.ProviderRepository
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() billing.InvoiceRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	subscriptionRepo billing.SubscriptionRepository
	providerRepo     partner.ProviderRepository
	invoiceRepo      billing.InvoiceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	subscriptionRepo billing.SubscriptionRepository,
	providerRepo partner.ProviderRepository,
	invoiceRepo billing.InvoiceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		subscriptionRepo: subscriptionRepo,
		providerRepo:     providerRepo,
		invoiceRepo:      invoiceRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// SubscriptionRepo returns the subscription repository.
func (s *NoOpTransactionScope) SubscriptionRepo() billing.SubscriptionRepository {
	return s.subscriptionRepo
}

// ProviderRepo returns the provider repository.
func (s *NoOpTransactionScope) ProviderRepo() partner.ProviderRepository {
	return s.providerRepo
}

// InvoiceRepo returns the invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() billing.InvoiceRepository {
	return s.invoiceRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
