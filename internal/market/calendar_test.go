package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type CalendarTestSuite struct {
	suite.Suite
	calendar *Calendar
}

func (suite *CalendarTestSuite) SetupTest() {
	calendar, err := NewCalendar("09:15", "15:30", nil)
	suite.Require().NoError(err)
	suite.calendar = calendar
}

func TestCalendarSuite(t *testing.T) {
	suite.Run(t, new(CalendarTestSuite))
}

// Every Saturday and Sunday over a ten-year span must be closed, regardless
// of any other configuration.
func (suite *CalendarTestSuite) TestWeekendsClosedForTenYears() {
	day := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for day.Before(end) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			suite.False(suite.calendar.IsTradingDay(day), "expected %s to be closed", day.Format("2006-01-02"))

			noon := day.Add(12 * time.Hour)
			suite.False(suite.calendar.IsMarketOpen(noon), "expected %s noon to be closed", day.Format("2006-01-02"))
		}

		day = day.AddDate(0, 0, 1)
	}
}

func (suite *CalendarTestSuite) TestSessionBoundsForTenYears() {
	day := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for day.Before(end) {
		beforeOpen := time.Date(day.Year(), day.Month(), day.Day(), 9, 14, 0, 0, time.UTC)
		afterClose := time.Date(day.Year(), day.Month(), day.Day(), 15, 31, 0, 0, time.UTC)

		suite.False(suite.calendar.IsMarketOpen(beforeOpen), "expected %s 09:14 to be closed", day.Format("2006-01-02"))
		suite.False(suite.calendar.IsMarketOpen(afterClose), "expected %s 15:31 to be closed", day.Format("2006-01-02"))

		day = day.AddDate(0, 0, 1)
	}
}

func (suite *CalendarTestSuite) TestSessionBoundsInclusive() {
	// Thursday, not a holiday.
	open := time.Date(2024, 2, 1, 9, 15, 0, 0, time.UTC)
	close := time.Date(2024, 2, 1, 15, 30, 0, 0, time.UTC)

	suite.True(suite.calendar.IsMarketOpen(open))
	suite.True(suite.calendar.IsMarketOpen(close))
}

func (suite *CalendarTestSuite) TestRecurringHolidays() {
	tests := []struct {
		name string
		date time.Time
	}{
		{"Republic Day", time.Date(2024, 1, 26, 0, 0, 0, 0, time.UTC)},
		{"Ambedkar Jayanti", time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC)},
		{"May Day", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"Independence Day", time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"Gandhi Jayanti", time.Date(2024, 10, 2, 0, 0, 0, 0, time.UTC)},
		{"Christmas", time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.False(suite.calendar.IsTradingDay(tc.date))
		})
	}
}

func (suite *CalendarTestSuite) TestExtraHolidays() {
	// Holi 2024 fell on a Monday.
	calendar, err := NewCalendar("09:15", "15:30", []string{"2024-03-25"})
	suite.Require().NoError(err)

	suite.False(calendar.IsTradingDay(time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)))
	suite.True(calendar.IsTradingDay(time.Date(2024, 3, 26, 0, 0, 0, 0, time.UTC)))
}

func (suite *CalendarTestSuite) TestInvalidInputs() {
	_, err := NewCalendar("9am", "15:30", nil)
	suite.Error(err)

	_, err = NewCalendar("09:15", "15:30", []string{"25-03-2024"})
	suite.Error(err)
}
