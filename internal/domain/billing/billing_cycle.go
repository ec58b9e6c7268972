package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle is how often a subscription is charged
type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "monthly"
	BillingCycleQuarterly BillingCycle = "quarterly"
	BillingCycleYearly    BillingCycle = "yearly"
)

// IsValid returns true if the billing cycle is known
func (c BillingCycle) IsValid() bool {
	switch c {
	case BillingCycleMonthly, BillingCycleQuarterly, BillingCycleYearly:
		return true
	}
	return false
}

// Months returns the length of one cycle in months
func (c BillingCycle) Months() int {
	switch c {
	case BillingCycleQuarterly:
		return 3
	case BillingCycleYearly:
		return 12
	default:
		return 1
	}
}

// Next returns the date one cycle after from
func (c BillingCycle) Next(from time.Time) time.Time {
	return from.AddDate(0, c.Months(), 0)
}

// MonthlyEquivalent normalizes a per-cycle amount to a monthly amount
func (c BillingCycle) MonthlyEquivalent(amount decimal.Decimal) decimal.Decimal {
	months := c.Months()
	if months == 1 {
		return amount
	}
	return amount.Div(decimal.NewFromInt(int64(months)))
}

// YearlyEquivalent normalizes a per-cycle amount to a yearly amount
func (c BillingCycle) YearlyEquivalent(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(12 / c.Months())))
}

// AllBillingCycles returns every supported cycle
func AllBillingCycles() []BillingCycle {
	return []BillingCycle{BillingCycleMonthly, BillingCycleQuarterly, BillingCycleYearly}
}
