package report

import (
	"strings"
	"time"

	"github.com/saas/backoffice/internal/domain/shared"
)

// DateRange is a half-open window [Start, End) in UTC
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a validated range. Zero bounds or Start >= End fail with an invalid range error.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: start.UTC(), End: end.UTC()}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate checks the range bounds
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return shared.NewInvalidRangeError("date range requires both start and end")
	}
	if !r.Start.Before(r.End) {
		return shared.NewInvalidRangeError("start %s must be before end %s",
			r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	return nil
}

// Duration returns the length of the range
func (r DateRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Previous returns the window of equal length immediately before r
func (r DateRange) Previous() DateRange {
	return DateRange{Start: r.Start.Add(-r.Duration()), End: r.Start}
}

// Contains reports whether t falls inside [Start, End)
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Key renders the range for cache keys
func (r DateRange) Key() string {
	return r.Start.Format("20060102T150405") + "-" + r.End.Format("20060102T150405")
}

// Named periods accepted by the reporting endpoints
const (
	PeriodToday      = "today"
	PeriodWeek       = "week"
	PeriodMonth      = "month"
	PeriodQuarter    = "quarter"
	PeriodYear       = "year"
	PeriodLast7Days  = "last_7_days"
	PeriodLast30Days = "last_30_days"
	PeriodLast90Days = "last_90_days"
)

// ResolvePeriod turns a named period into a range ending at the close of the
// current day (or calendar unit). Calendar periods start on Monday, the 1st of
// the month, the first month of the quarter and January 1st.
func ResolvePeriod(name string, now time.Time) (DateRange, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	switch strings.ToLower(strings.TrimSpace(name)) {
	case PeriodToday:
		return DateRange{Start: today, End: tomorrow}, nil
	case PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -offset)
		return DateRange{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case "", PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return DateRange{Start: start, End: start.AddDate(0, 1, 0)}, nil
	case PeriodQuarter:
		firstMonth := time.Month((int(now.Month())-1)/3*3 + 1)
		start := time.Date(now.Year(), firstMonth, 1, 0, 0, 0, 0, time.UTC)
		return DateRange{Start: start, End: start.AddDate(0, 3, 0)}, nil
	case PeriodYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return DateRange{Start: start, End: start.AddDate(1, 0, 0)}, nil
	case PeriodLast7Days:
		return DateRange{Start: tomorrow.AddDate(0, 0, -7), End: tomorrow}, nil
	case PeriodLast30Days:
		return DateRange{Start: tomorrow.AddDate(0, 0, -30), End: tomorrow}, nil
	case PeriodLast90Days:
		return DateRange{Start: tomorrow.AddDate(0, 0, -90), End: tomorrow}, nil
	}
	return DateRange{}, shared.NewInvalidRangeError("unknown period %q", name)
}

// MonthsBack returns the n calendar months ending with the month of now, oldest first
func MonthsBack(now time.Time, n int) []DateRange {
	if n < 1 {
		n = 1
	}
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)
	out := make([]DateRange, n)
	for i := range out {
		start := first.AddDate(0, i, 0)
		out[i] = DateRange{Start: start, End: start.AddDate(0, 1, 0)}
	}
	return out
}
