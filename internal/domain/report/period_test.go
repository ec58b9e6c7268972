package report

import (
	"errors"
	"testing"
	"time"

	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewDateRange(t *testing.T) {
	t.Run("valid range", func(t *testing.T) {
		r, err := NewDateRange(date(2026, 1, 1), date(2026, 2, 1))
		require.NoError(t, err)
		assert.Equal(t, 31*24*time.Hour, r.Duration())
		assert.True(t, r.Contains(date(2026, 1, 1)))
		assert.False(t, r.Contains(date(2026, 2, 1)))
	})

	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"start equals end", date(2026, 1, 1), date(2026, 1, 1)},
		{"start after end", date(2026, 2, 1), date(2026, 1, 1)},
		{"zero start", time.Time{}, date(2026, 1, 1)},
		{"zero end", date(2026, 1, 1), time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDateRange(tt.start, tt.end)
			assert.True(t, errors.Is(err, shared.ErrInvalidRange))
		})
	}
}

func TestDateRange_Previous(t *testing.T) {
	r := DateRange{Start: date(2026, 2, 1), End: date(2026, 2, 11)}

	prev := r.Previous()

	assert.Equal(t, date(2026, 1, 22), prev.Start)
	assert.Equal(t, r.Start, prev.End)
	assert.Equal(t, r.Duration(), prev.Duration())
}

func TestResolvePeriod(t *testing.T) {
	// Wednesday
	now := time.Date(2026, 5, 13, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{PeriodToday, date(2026, 5, 13), date(2026, 5, 14)},
		{PeriodWeek, date(2026, 5, 11), date(2026, 5, 18)},
		{PeriodMonth, date(2026, 5, 1), date(2026, 6, 1)},
		{"", date(2026, 5, 1), date(2026, 6, 1)},
		{PeriodQuarter, date(2026, 4, 1), date(2026, 7, 1)},
		{PeriodYear, date(2026, 1, 1), date(2027, 1, 1)},
		{PeriodLast7Days, date(2026, 5, 7), date(2026, 5, 14)},
		{PeriodLast30Days, date(2026, 4, 14), date(2026, 5, 14)},
		{PeriodLast90Days, date(2026, 2, 13), date(2026, 5, 14)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ResolvePeriod(tt.name, now)
			require.NoError(t, err)
			assert.Equal(t, tt.start, r.Start)
			assert.Equal(t, tt.end, r.End)
			assert.NoError(t, r.Validate())
		})
	}

	t.Run("unknown period", func(t *testing.T) {
		_, err := ResolvePeriod("fortnight", now)
		assert.Equal(t, shared.KindInvalidRange, shared.KindOf(err))
	})

	t.Run("week on a sunday starts the previous monday", func(t *testing.T) {
		r, err := ResolvePeriod(PeriodWeek, date(2026, 5, 17))
		require.NoError(t, err)
		assert.Equal(t, date(2026, 5, 11), r.Start)
	})
}

func TestMonthsBack(t *testing.T) {
	months := MonthsBack(time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC), 3)

	require.Len(t, months, 3)
	assert.Equal(t, date(2025, 12, 1), months[0].Start)
	assert.Equal(t, date(2026, 1, 1), months[1].Start)
	assert.Equal(t, date(2026, 3, 1), months[2].End)
}
