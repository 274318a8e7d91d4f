// Package utils holds small date helpers shared by the engine and its
// callers. The backtest works on calendar days, so everything here is
// date arithmetic in the input's own location.
package utils

import "time"

// DateLayout is the date-only format used in configs, holidays, and day keys.
const DateLayout = "2006-01-02"

// TruncateDay strips the time-of-day component.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last second of the given day. Fills executed on a
// daily bar are stamped here.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// CalendarDays counts the days from start to end inclusive, ignoring the
// time-of-day of both. A reversed range counts as zero.
func CalendarDays(start, end time.Time) int {
	startDay := TruncateDay(start)
	endDay := TruncateDay(end)

	if endDay.Before(startDay) {
		return 0
	}

	return int(endDay.Sub(startDay).Hours()/24) + 1
}

// DayKey formats a timestamp as its date-only map key.
func DayKey(t time.Time) string {
	return t.Format(DateLayout)
}
