package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gridworks-hq/trademate-backtest/internal/logger"
	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type BacktestStateTestSuite struct {
	suite.Suite
	state *BacktestState
}

func (suite *BacktestStateTestSuite) SetupSuite() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)

	state, err := NewBacktestState(log)
	suite.Require().NoError(err)
	suite.state = state
}

func (suite *BacktestStateTestSuite) TearDownSuite() {
	if suite.state != nil {
		suite.state.Close()
	}
}

func (suite *BacktestStateTestSuite) SetupTest() {
	suite.Require().NoError(suite.state.Initialize())
}

func (suite *BacktestStateTestSuite) TearDownTest() {
	suite.Require().NoError(suite.state.Cleanup())
}

func TestBacktestStateSuite(t *testing.T) {
	suite.Run(t, new(BacktestStateTestSuite))
}

func (suite *BacktestStateTestSuite) sampleTrades() []types.Trade {
	at := time.Date(2024, 2, 5, 15, 30, 0, 0, time.UTC)

	return []types.Trade{
		{
			ID:           "entry-1",
			StrategyName: "alpha",
			Symbol:       "RELIANCE",
			Side:         types.SideBuy,
			Quantity:     100,
			EntryPrice:   100,
			ExitPrice:    optional.None[float64](),
			ExitTime:     optional.None[time.Time](),
			PnL:          optional.None[float64](),
			Commission:   20,
			Tag:          types.TradeTagStrategy,
			ExecutedAt:   at,
		},
		{
			ID:           "exit-1",
			StrategyName: "alpha",
			Symbol:       "RELIANCE",
			Side:         types.SideSell,
			Quantity:     -100,
			EntryPrice:   110,
			ExitPrice:    optional.Some(110.0),
			ExitTime:     optional.Some(at.AddDate(0, 0, 1)),
			PnL:          optional.Some(960.0),
			Commission:   20,
			Tag:          types.TradeTagTakeProfit,
			ExecutedAt:   at.AddDate(0, 0, 1),
		},
		{
			ID:           "entry-2",
			StrategyName: "beta",
			Symbol:       "TCS",
			Side:         types.SideBuy,
			Quantity:     10,
			EntryPrice:   4000,
			ExitPrice:    optional.None[float64](),
			ExitTime:     optional.None[time.Time](),
			PnL:          optional.None[float64](),
			Commission:   20,
			Tag:          types.TradeTagStrategy,
			ExecutedAt:   at.AddDate(0, 0, 2),
		},
	}
}

func (suite *BacktestStateTestSuite) TestRecordAndReadTrades() {
	suite.Require().NoError(suite.state.RecordTrades(suite.sampleTrades()))

	trades, err := suite.state.GetAllTrades()
	suite.Require().NoError(err)
	suite.Require().Len(trades, 3)

	suite.Equal("entry-1", trades[0].ID)
	suite.False(trades[0].Closed())

	suite.Equal("exit-1", trades[1].ID)
	suite.Require().True(trades[1].Closed())
	suite.InDelta(960.0, trades[1].PnL.Unwrap(), 1e-9)
	suite.InDelta(110.0, trades[1].ExitPrice.Unwrap(), 1e-9)
}

func (suite *BacktestStateTestSuite) TestStrategyPerformance() {
	suite.Require().NoError(suite.state.RecordTrades(suite.sampleTrades()))

	performance, err := suite.state.GetStrategyPerformance()
	suite.Require().NoError(err)
	suite.Require().Len(performance, 2)

	alpha := performance["alpha"]
	suite.Equal("alpha", alpha.StrategyName)
	suite.Equal(2, alpha.Summary.TotalTrades)
	suite.Equal(1, alpha.Summary.ClosedTrades)
	suite.Equal(1, alpha.Summary.WinningTrades)
	suite.InDelta(1.0, alpha.Summary.WinRate, 1e-9)
	suite.InDelta(960.0, alpha.RealizedPnL, 1e-9)
	suite.InDelta(40.0, alpha.TotalFees, 1e-9)

	beta := performance["beta"]
	suite.Equal(1, beta.Summary.TotalTrades)
	suite.Equal(0, beta.Summary.ClosedTrades)
	suite.InDelta(0.0, beta.RealizedPnL, 1e-9)
}

func (suite *BacktestStateTestSuite) TestRecordEquityPointsAndExport() {
	day := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		point := types.EquityPoint{
			Date:           day.AddDate(0, 0, i),
			Cash:           100_000,
			PositionsValue: float64(i) * 100,
			Equity:         100_000 + float64(i)*100,
		}
		suite.Require().NoError(suite.state.RecordEquityPoint(point))
	}

	dir, err := os.MkdirTemp("", "backtest-state-*")
	suite.Require().NoError(err)
	defer os.RemoveAll(dir)

	suite.Require().NoError(suite.state.Write(dir))

	for _, name := range []string{"trades.parquet", "equity_curve.parquet"} {
		info, err := os.Stat(filepath.Join(dir, name))
		suite.Require().NoError(err)
		suite.Positive(info.Size())
	}
}
