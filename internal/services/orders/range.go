package orders

import (
	"time"

	"github.com/pkg/errors"
)

// Range names a date window over notification_time. Windows follow the
// driver's wall clock: "today" is the current calendar day, "week" the last
// seven days including today, "month" the current calendar month.
type Range string

const (
	RangeAll   Range = "all"
	RangeToday Range = "today"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
)

func ParseRange(s string) (Range, error) {
	switch Range(s) {
	case "", RangeAll:
		return RangeAll, nil
	case RangeToday, RangeWeek, RangeMonth:
		return Range(s), nil
	}
	return "", errors.Errorf("unknown range %q", s)
}

// Bounds returns the half-open [from, to) window for the range at the given
// instant. Not meaningful for RangeAll.
func (r Range) Bounds(now time.Time) (from, to time.Time) {
	now = now.Local()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	switch r {
	case RangeToday:
		return dayStart, dayEnd
	case RangeWeek:
		return dayStart.AddDate(0, 0, -7), dayEnd
	case RangeMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return monthStart, monthStart.AddDate(0, 1, 0)
	}
	return time.Time{}, dayEnd
}
