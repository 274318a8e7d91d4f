package market

import (
	"fmt"
	"time"
)

// recurringHolidays are the fixed-date NSE holidays observed every year.
// Movable holidays (Holi, Diwali, Good Friday) must be supplied per-year via
// extra dates in the engine config.
var recurringHolidays = []struct {
	month time.Month
	day   int
}{
	{time.January, 26},  // Republic Day
	{time.April, 14},    // Ambedkar Jayanti
	{time.May, 1},       // Maharashtra Day
	{time.August, 15},   // Independence Day
	{time.October, 2},   // Gandhi Jayanti
	{time.December, 25}, // Christmas
}

// Calendar answers trading-day and trading-hours questions for one exchange.
// Timestamps are assumed to already be in exchange-local time; no timezone
// conversion happens here.
type Calendar struct {
	openMinute  int
	closeMinute int
	holidays    map[string]struct{}
}

// NewCalendar builds a calendar from "HH:MM" open/close strings and extra
// holiday dates in "2006-01-02" form.
func NewCalendar(openStr string, closeStr string, extraHolidays []string) (*Calendar, error) {
	openMinute, err := parseWallClock(openStr)
	if err != nil {
		return nil, fmt.Errorf("invalid market open time %q: %w", openStr, err)
	}

	closeMinute, err := parseWallClock(closeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid market close time %q: %w", closeStr, err)
	}

	if closeMinute <= openMinute {
		return nil, fmt.Errorf("market close %q must be after open %q", closeStr, openStr)
	}

	holidays := make(map[string]struct{}, len(extraHolidays))

	for _, h := range extraHolidays {
		day, err := time.Parse("2006-01-02", h)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday date %q: %w", h, err)
		}

		holidays[day.Format("2006-01-02")] = struct{}{}
	}

	return &Calendar{
		openMinute:  openMinute,
		closeMinute: closeMinute,
		holidays:    holidays,
	}, nil
}

// IsTradingDay reports whether the date (time part ignored) is a weekday
// that is not a holiday.
func (c *Calendar) IsTradingDay(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	if _, ok := c.holidays[date.Format("2006-01-02")]; ok {
		return false
	}

	for _, h := range recurringHolidays {
		if date.Month() == h.month && date.Day() == h.day {
			return false
		}
	}

	return true
}

// IsMarketOpen reports whether the exact timestamp falls inside trading
// hours on a trading day. Both session boundaries are inclusive.
func (c *Calendar) IsMarketOpen(ts time.Time) bool {
	if !c.IsTradingDay(ts) {
		return false
	}

	minute := ts.Hour()*60 + ts.Minute()

	return minute >= c.openMinute && minute <= c.closeMinute
}

func parseWallClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}

	return t.Hour()*60 + t.Minute(), nil
}
