package datasource

import (
	"testing"
	"time"

	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type InMemoryDataSourceTestSuite struct {
	suite.Suite
	source DataSource
	days   []time.Time
}

func (suite *InMemoryDataSourceTestSuite) SetupTest() {
	base := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	suite.days = []time.Time{
		base,
		base.AddDate(0, 0, 1),
		base.AddDate(0, 0, 2),
	}

	// Deliberately unsorted input.
	suite.source = NewInMemoryDataSource([]types.MarketData{
		{Symbol: "RELIANCE", Time: suite.days[2], Close: 102},
		{Symbol: "RELIANCE", Time: suite.days[0], Close: 100},
		{Symbol: "TCS", Time: suite.days[1], Close: 4000},
		{Symbol: "RELIANCE", Time: suite.days[1], Close: 101},
	})
}

func TestInMemoryDataSourceSuite(t *testing.T) {
	suite.Run(t, new(InMemoryDataSourceTestSuite))
}

func (suite *InMemoryDataSourceTestSuite) TestInitializeRejectsPath() {
	suite.NoError(suite.source.Initialize(""))
	suite.Error(suite.source.Initialize("/tmp/bars.parquet"))
}

func (suite *InMemoryDataSourceTestSuite) TestGetRangeSortedAndBounded() {
	bars, err := suite.source.GetRange(suite.days[0], suite.days[1])
	suite.Require().NoError(err)
	suite.Require().Len(bars, 3)

	for i := 1; i < len(bars); i++ {
		suite.False(bars[i].Time.Before(bars[i-1].Time))
	}
}

func (suite *InMemoryDataSourceTestSuite) TestReadAllIteration() {
	var seen []float64

	suite.source.ReadAll(optional.None[time.Time](), optional.None[time.Time]())(func(bar types.MarketData, err error) bool {
		suite.Require().NoError(err)
		seen = append(seen, bar.Close)

		return true
	})

	suite.Len(seen, 4)
	suite.Equal(100.0, seen[0])
	suite.Equal(102.0, seen[len(seen)-1])
}

func (suite *InMemoryDataSourceTestSuite) TestReadAllBoundedStart() {
	count := 0

	suite.source.ReadAll(optional.Some(suite.days[1]), optional.None[time.Time]())(func(_ types.MarketData, err error) bool {
		suite.Require().NoError(err)
		count++

		return true
	})

	suite.Equal(3, count)
}

func (suite *InMemoryDataSourceTestSuite) TestCount() {
	total, err := suite.source.Count(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(4, total)

	bounded, err := suite.source.Count(optional.Some(suite.days[1]), optional.Some(suite.days[1]))
	suite.Require().NoError(err)
	suite.Equal(2, bounded)
}

func (suite *InMemoryDataSourceTestSuite) TestReadLastData() {
	last, err := suite.source.ReadLastData("RELIANCE")
	suite.Require().NoError(err)
	suite.Equal(102.0, last.Close)

	_, err = suite.source.ReadLastData("INFY")
	suite.Error(err)
}
