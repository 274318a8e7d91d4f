package market

import (
	"testing"
	"time"

	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/gridworks-hq/trademate-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SimulatorTestSuite struct {
	suite.Suite
	calendar *Calendar
}

func (suite *SimulatorTestSuite) SetupTest() {
	calendar, err := NewCalendar("09:15", "15:30", nil)
	suite.Require().NoError(err)
	suite.calendar = calendar
}

func TestSimulatorSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}

func (suite *SimulatorTestSuite) buySignal(price float64) types.Signal {
	return types.Signal{
		Time:       time.Date(2024, 2, 1, 15, 30, 0, 0, time.UTC),
		Symbol:     "RELIANCE",
		Side:       types.SideBuy,
		EntryPrice: price,
	}
}

func (suite *SimulatorTestSuite) TestUnknownExecutionModelRejected() {
	_, err := NewSimulator("lightning", DefaultSlippage(ExecutionRealistic), suite.calendar)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownExecutionModel))
}

func (suite *SimulatorTestSuite) TestPerfectExecutionHasNoSlippage() {
	sim, err := NewSimulator(ExecutionPerfect, DefaultSlippage(ExecutionPerfect), suite.calendar)
	suite.Require().NoError(err)

	bar := types.MarketData{Symbol: "RELIANCE", Close: 100}

	fill, slippage := sim.ExecutionPrice(suite.buySignal(100), bar, 1000)
	suite.Equal(100.0, fill)
	suite.Equal(0.0, slippage)
}

func (suite *SimulatorTestSuite) TestBuysFillAboveAndSellsBelow() {
	sim, err := NewSimulator(ExecutionRealistic, DefaultSlippage(ExecutionRealistic), suite.calendar)
	suite.Require().NoError(err)

	bar := types.MarketData{Symbol: "RELIANCE", Close: 100, AvgDailyVolume: 1_000_000}

	buyFill, buySlip := sim.ExecutionPrice(suite.buySignal(100), bar, 1000)
	suite.Greater(buyFill, 100.0)
	suite.Greater(buySlip, 0.0)

	sellSignal := suite.buySignal(100)
	sellSignal.Side = types.SideSell

	sellFill, sellSlip := sim.ExecutionPrice(sellSignal, bar, 1000)
	suite.Less(sellFill, 100.0)
	suite.Greater(sellSlip, 0.0)

	// Same components on both sides, just mirrored.
	suite.InDelta(100-sellFill, buyFill-100, 1e-9)
	suite.InDelta(buySlip, sellSlip, 1e-9)
}

func (suite *SimulatorTestSuite) TestImpactGrowsWithParticipation() {
	sim, err := NewSimulator(ExecutionRealistic, DefaultSlippage(ExecutionRealistic), suite.calendar)
	suite.Require().NoError(err)

	bar := types.MarketData{Symbol: "RELIANCE", Close: 100, AvgDailyVolume: 1_000_000}

	smallFill, _ := sim.ExecutionPrice(suite.buySignal(100), bar, 100)
	largeFill, _ := sim.ExecutionPrice(suite.buySignal(100), bar, 100_000)

	suite.Greater(largeFill, smallFill)
}

func (suite *SimulatorTestSuite) TestImpactIsCapped() {
	// Absurd impact setting must still be clamped at 1% before spread and
	// timing components.
	sim, err := NewSimulator(ExecutionConservative, SlippageConfig{MarketImpactBps: 10_000}, suite.calendar)
	suite.Require().NoError(err)

	bar := types.MarketData{Symbol: "RELIANCE", Close: 100, AvgDailyVolume: 1000}

	fill, _ := sim.ExecutionPrice(suite.buySignal(100), bar, 1_000_000)
	suite.InDelta(101.0, fill, 1e-9)
}

func (suite *SimulatorTestSuite) TestZeroVolumeFallsBackToDefaultLiquidity() {
	sim, err := NewSimulator(ExecutionRealistic, DefaultSlippage(ExecutionRealistic), suite.calendar)
	suite.Require().NoError(err)

	withVolume := types.MarketData{Symbol: "RELIANCE", Close: 100, AvgDailyVolume: types.DefaultAvgDailyVolume}
	noVolume := types.MarketData{Symbol: "RELIANCE", Close: 100}

	fillA, _ := sim.ExecutionPrice(suite.buySignal(100), withVolume, 1000)
	fillB, _ := sim.ExecutionPrice(suite.buySignal(100), noVolume, 1000)

	suite.Equal(fillA, fillB)
}
