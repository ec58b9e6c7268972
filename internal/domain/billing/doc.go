// Package billing holds the plan catalog, the subscription ledger and the
// invoice book of the back-office.
//
// Key Aggregates:
//   - Plan: a subscription tier shared by every tenant (price, cycle, limits, features)
//   - Subscription: a time-bounded commitment of a tenant's provider to a plan
//   - Invoice: a charge raised by a tenant, the ground truth for realized revenue
//
// Value Objects:
//   - BillingCycle, PlanLimits, Classification
//
// Subscriptions follow a small state machine (trial, pending, active, cancelled)
// and a tenant holds at most one subscription in trial or active at a time.
// Changing plan closes the current subscription and opens a new one that
// remembers the previous plan and amount, which drives upgrade/downgrade
// classification in reports.
package billing
