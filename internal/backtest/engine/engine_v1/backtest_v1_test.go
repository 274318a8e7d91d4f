package engine

import (
	"context"
	"testing"
	"time"

	"github.com/gridworks-hq/trademate-backtest/internal/backtest/engine"
	"github.com/gridworks-hq/trademate-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/gridworks-hq/trademate-backtest/internal/strategy"
	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

// scriptedStrategy emits pre-planned signals keyed by bar date.
type scriptedStrategy struct {
	name    string
	signals map[string]types.Signal
}

func (s *scriptedStrategy) Initialize(config string) error {
	return nil
}

func (s *scriptedStrategy) Name() string {
	return s.name
}

func (s *scriptedStrategy) GenerateSignal(history []types.MarketData, currentPrice float64) (optional.Option[types.Signal], error) {
	last := history[len(history)-1]
	if signal, ok := s.signals[last.Time.Format("2006-01-02")]; ok {
		return optional.Some(signal), nil
	}

	return optional.None[types.Signal](), nil
}

// panicStrategy blows up on every bar.
type panicStrategy struct{}

func (s *panicStrategy) Initialize(config string) error {
	return nil
}

func (s *panicStrategy) Name() string {
	return "panicker"
}

func (s *panicStrategy) GenerateSignal(history []types.MarketData, currentPrice float64) (optional.Option[types.Signal], error) {
	panic("boom")
}

type BacktestEngineV1TestSuite struct {
	suite.Suite
	start time.Time
	end   time.Time
}

func (suite *BacktestEngineV1TestSuite) SetupTest() {
	// Monday through Friday, no holidays in that week.
	suite.start = time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	suite.end = time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)
}

func TestBacktestEngineV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestEngineV1TestSuite))
}

// flatWeek returns one bar per weekday at the given closes.
func (suite *BacktestEngineV1TestSuite) week(closes ...float64) []types.MarketData {
	suite.Require().Len(closes, 5)

	bars := make([]types.MarketData, 0, 5)
	for i, close := range closes {
		day := suite.start.AddDate(0, 0, i)
		bars = append(bars, types.MarketData{
			Symbol: "RELIANCE",
			Time:   day,
			Open:   close,
			High:   close,
			Low:    close,
			Close:  close,
			Volume: 1_000_000,
		})
	}

	return bars
}

func (suite *BacktestEngineV1TestSuite) newEngine(bars []types.MarketData, strat *scriptedStrategy) *BacktestEngineV1 {
	cfg := TestConfig(suite.start, suite.end, 100_000)
	cfg.MinHistoryBars = 1

	eng, err := NewBacktestEngineV1()
	suite.Require().NoError(err)
	suite.Require().NoError(eng.InitializeWithConfig(cfg))
	suite.Require().NoError(eng.LoadStrategy(strat))
	suite.Require().NoError(eng.SetDataSource(datasource.NewInMemoryDataSource(bars)))

	return eng
}

func (suite *BacktestEngineV1TestSuite) buyOnDayOne(positionSize float64) *scriptedStrategy {
	return &scriptedStrategy{
		name: "scripted",
		signals: map[string]types.Signal{
			"2024-02-05": {
				Time:         suite.start,
				Symbol:       "RELIANCE",
				Side:         types.SideBuy,
				EntryPrice:   100,
				PositionSize: positionSize,
			},
		},
	}
}

func (suite *BacktestEngineV1TestSuite) TestFlatMarketZeroCost() {
	eng := suite.newEngine(suite.week(100, 100, 100, 100, 100), suite.buyOnDayOne(0.1))

	result, err := eng.Run(context.Background(), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 1)
	suite.Equal(100.0, result.Trades[0].Quantity)
	suite.Equal(100.0, result.Trades[0].EntryPrice)
	suite.Equal(types.TradeTagStrategy, result.Trades[0].Tag)

	suite.Require().Len(result.EquityCurve, 5)
	suite.Equal(90_000.0, result.EquityCurve[0].Cash)
	suite.Equal(100_000.0, result.EquityCurve[0].Equity)

	// Flat closes, so equity never moves and the position never exits.
	suite.Equal(100_000.0, result.FinalCapital)
	suite.Equal(0.0, result.TotalReturn)
	suite.Equal(1, result.Summary.TotalTrades)
	suite.Equal(0, result.Summary.ClosedTrades)
}

func (suite *BacktestEngineV1TestSuite) TestOversizedBuyIsRejected() {
	eng := suite.newEngine(suite.week(100, 100, 100, 100, 100), suite.buyOnDayOne(2.0))

	result, err := eng.Run(context.Background(), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Empty(result.Trades)
	suite.Equal(100_000.0, result.FinalCapital)

	for _, point := range result.EquityCurve {
		suite.Equal(100_000.0, point.Cash)
	}
}

func (suite *BacktestEngineV1TestSuite) TestStopLossExit() {
	eng := suite.newEngine(suite.week(100, 94, 94, 94, 94), suite.buyOnDayOne(0.1))

	result, err := eng.Run(context.Background(), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	// Entry row plus the forced close.
	suite.Require().Len(result.Trades, 2)

	exit := result.Trades[1]
	suite.Equal(types.TradeTagStopLoss, exit.Tag)
	suite.Require().True(exit.Closed())
	suite.Negative(exit.PnL.Unwrap())
	suite.InDelta(-600.0, exit.PnL.Unwrap(), 1e-9)

	// Closed at 94: 90,000 cash + 9,400 proceeds.
	suite.InDelta(99_400.0, result.FinalCapital, 1e-9)
}

func (suite *BacktestEngineV1TestSuite) TestTakeProfitExit() {
	eng := suite.newEngine(suite.week(100, 111, 111, 111, 111), suite.buyOnDayOne(0.1))

	result, err := eng.Run(context.Background(), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 2)

	exit := result.Trades[1]
	suite.Equal(types.TradeTagTakeProfit, exit.Tag)
	suite.Require().True(exit.Closed())
	suite.InDelta(1100.0, exit.PnL.Unwrap(), 1e-9)
	suite.InDelta(101_100.0, result.FinalCapital, 1e-9)
}

func (suite *BacktestEngineV1TestSuite) TestEquityPointPerCalendarDay() {
	// Saturday and Sunday sit inside this range.
	cfg := TestConfig(
		time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC),
		100_000,
	)
	cfg.MinHistoryBars = 1

	eng, err := NewBacktestEngineV1()
	suite.Require().NoError(err)
	suite.Require().NoError(eng.InitializeWithConfig(cfg))
	suite.Require().NoError(eng.LoadStrategy(&scriptedStrategy{name: "noop"}))
	suite.Require().NoError(eng.SetDataSource(datasource.NewInMemoryDataSource(suite.week(100, 100, 100, 100, 100))))

	result, err := eng.Run(context.Background(), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	// Feb 5 through Feb 12 inclusive is 8 calendar days.
	suite.Len(result.EquityCurve, 8)
	suite.Equal(8, result.DurationDays)
}

func (suite *BacktestEngineV1TestSuite) TestStrategyPanicIsContained() {
	cfg := TestConfig(suite.start, suite.end, 100_000)
	cfg.MinHistoryBars = 1

	eng, err := NewBacktestEngineV1()
	suite.Require().NoError(err)
	suite.Require().NoError(eng.InitializeWithConfig(cfg))
	suite.Require().NoError(eng.LoadStrategy(&panicStrategy{}))
	suite.Require().NoError(eng.SetDataSource(datasource.NewInMemoryDataSource(suite.week(100, 100, 100, 100, 100))))

	result, err := eng.Run(context.Background(), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)
	suite.Empty(result.Trades)
	suite.Equal(100_000.0, result.FinalCapital)
}

func (suite *BacktestEngineV1TestSuite) TestRunRequiresSetup() {
	eng, err := NewBacktestEngineV1()
	suite.Require().NoError(err)

	_, err = eng.Run(context.Background(), engine.LifecycleCallbacks{})
	suite.Error(err)
}

func (suite *BacktestEngineV1TestSuite) TestCancellationAbortsRun() {
	eng := suite.newEngine(suite.week(100, 100, 100, 100, 100), suite.buyOnDayOne(0.1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Run(ctx, engine.LifecycleCallbacks{})
	suite.Error(err)
}

func (suite *BacktestEngineV1TestSuite) TestLifecycleCallbacks() {
	eng := suite.newEngine(suite.week(100, 100, 100, 100, 100), suite.buyOnDayOne(0.1))

	var (
		gotRunID     string
		gotTotalDays int
		processed    int
		ended        bool
	)

	_, err := eng.Run(context.Background(), engine.LifecycleCallbacks{
		OnRunStart: func(runID string, totalDays int) error {
			gotRunID = runID
			gotTotalDays = totalDays

			return nil
		},
		OnProcessData: func(current int, total int) error {
			processed = current
			return nil
		},
		OnRunEnd: func(runID string, err error) {
			ended = true
		},
	})
	suite.Require().NoError(err)

	suite.NotEmpty(gotRunID)
	suite.Equal(5, gotTotalDays)
	suite.Equal(5, processed)
	suite.True(ended)
}

func (suite *BacktestEngineV1TestSuite) TestRunParallel() {
	specs := []RunSpec{}

	for i := 0; i < 4; i++ {
		cfg := TestConfig(suite.start, suite.end, 100_000)
		cfg.MinHistoryBars = 1

		specs = append(specs, RunSpec{
			Name:       "run",
			Config:     cfg,
			Strategies: []strategy.Strategy{suite.buyOnDayOne(0.1)},
			DataSource: datasource.NewInMemoryDataSource(suite.week(100, 100, 100, 100, 100)),
		})
	}

	outcomes := RunParallel(context.Background(), specs, 2)
	suite.Require().Len(outcomes, 4)

	for _, outcome := range outcomes {
		suite.Require().NoError(outcome.Err)
		suite.Len(outcome.Result.Trades, 1)
		suite.Equal(100_000.0, outcome.Result.FinalCapital)
	}
}
