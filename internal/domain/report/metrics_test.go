package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGrowthRate(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name     string
		previous string
		current  string
		want     float64
	}{
		{"no data in either window", "0", "0", 0},
		{"growth from nothing", "0", "250.00", 100},
		{"negative from nothing", "0", "-5", 0},
		{"up", "100", "150", 50},
		{"down", "200", "50", -75},
		{"flat", "80", "80", 0},
		{"rounded", "3", "4", 33.33},
		{"rounded half away from zero", "8", "7.0004", -12.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GrowthRate(d(tt.previous), d(tt.current)))
		})
	}
}

func TestChurnRate(t *testing.T) {
	assert.Equal(t, 0.0, ChurnRate(0, 0))
	assert.Equal(t, 0.0, ChurnRate(3, 0))
	assert.Equal(t, 25.0, ChurnRate(1, 4))
	assert.Equal(t, 66.67, ChurnRate(2, 3))
}

func TestRetentionRate(t *testing.T) {
	assert.Equal(t, 100.0, RetentionRate(0, 0))
	assert.Equal(t, 75.0, RetentionRate(3, 4))
	assert.Equal(t, 0.0, RetentionRate(0, 4))
}

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, 1.01, RoundPercent(1.005))
	assert.Equal(t, -1.01, RoundPercent(-1.005))
	assert.Equal(t, 12.35, RoundPercent(12.345))
	assert.Equal(t, 12.0, RoundPercent(12))
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, 0.0, PercentOf(decimal.NewFromInt(5), decimal.Zero))
	assert.Equal(t, 12.5, PercentOf(decimal.NewFromInt(1), decimal.NewFromInt(8)))
}
