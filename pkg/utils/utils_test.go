package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestTruncateDay() {
	ts := time.Date(2024, 2, 5, 15, 30, 45, 123, time.UTC)
	suite.Equal(time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), TruncateDay(ts))
}

func (suite *UtilsTestSuite) TestEndOfDay() {
	ts := time.Date(2024, 2, 5, 9, 15, 0, 0, time.UTC)
	suite.Equal(time.Date(2024, 2, 5, 23, 59, 59, 0, time.UTC), EndOfDay(ts))
}

func (suite *UtilsTestSuite) TestCalendarDays() {
	monday := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	suite.Equal(1, CalendarDays(monday, monday))
	suite.Equal(5, CalendarDays(monday, monday.AddDate(0, 0, 4)))
	// Time-of-day never changes the count.
	suite.Equal(2, CalendarDays(monday.Add(23*time.Hour), monday.AddDate(0, 0, 1)))
	// Reversed range is empty, not negative.
	suite.Equal(0, CalendarDays(monday, monday.AddDate(0, 0, -1)))
}

func (suite *UtilsTestSuite) TestDayKey() {
	suite.Equal("2024-02-05", DayKey(time.Date(2024, 2, 5, 15, 30, 0, 0, time.UTC)))
}
