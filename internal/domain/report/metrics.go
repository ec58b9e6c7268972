package report

import (
	"context"

	"github.com/shopspring/decimal"
)

// MetricFunc computes a monetary metric over a window.
// GrowthRate evaluates it twice: for a window and for the one before it.
type MetricFunc func(ctx context.Context, r DateRange) (decimal.Decimal, error)

var hundred = decimal.NewFromInt(100)

// RoundPercent rounds a percentage half away from zero to two decimals
func RoundPercent(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func roundedPercent(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// GrowthRate returns (current-previous)/previous*100. A zero previous value
// yields 100 when current is positive and 0 otherwise.
func GrowthRate(previous, current decimal.Decimal) float64 {
	if previous.IsZero() {
		if current.IsPositive() {
			return 100
		}
		return 0
	}
	return roundedPercent(current.Sub(previous).Div(previous).Mul(hundred))
}

// ChurnRate returns cancelled/base*100, or 0 when there is no base
func ChurnRate(cancelled, base int64) float64 {
	if base <= 0 {
		return 0
	}
	return Ratio(cancelled, base)
}

// RetentionRate returns retained/base*100, or 100 when there is no base
func RetentionRate(retained, base int64) float64 {
	if base <= 0 {
		return 100
	}
	return Ratio(retained, base)
}

// Ratio returns part/whole*100 rounded, or 0 for an empty whole
func Ratio(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return roundedPercent(decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole)))
}

// PercentOf returns part/whole*100 rounded, or 0 when whole is zero
func PercentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return roundedPercent(part.Mul(hundred).Div(whole))
}

// ProcessingFeeRate is the gateway fee charged on collected revenue
var ProcessingFeeRate = decimal.RequireFromString("0.029")

// LowPaymentRateThreshold triggers a payment-rate alert below this percentage
const LowPaymentRateThreshold = 70.0
