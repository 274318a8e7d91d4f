// Package market simulates order execution against daily bars: trading-hours
// checks, fill-price slippage, and (via the costmodel subpackage) transaction
// costs.
package market

import (
	"math"
	"time"

	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/gridworks-hq/trademate-backtest/pkg/errors"
)

// ExecutionModel selects how fill prices deviate from the signal's nominal
// entry price.
type ExecutionModel string

const (
	// ExecutionPerfect fills at the signal price with zero slippage.
	ExecutionPerfect ExecutionModel = "perfect"
	// ExecutionRealistic applies moderate impact/spread/timing slippage.
	ExecutionRealistic ExecutionModel = "realistic"
	// ExecutionConservative doubles down on every slippage component.
	ExecutionConservative ExecutionModel = "conservative"
	// ExecutionIndianMarket uses component defaults tuned for NSE equities.
	ExecutionIndianMarket ExecutionModel = "indian_market"
)

// AllExecutionModels lists the valid execution model values for schema
// generation.
var AllExecutionModels = []any{
	ExecutionPerfect,
	ExecutionRealistic,
	ExecutionConservative,
	ExecutionIndianMarket,
}

// maxMarketImpact caps the participation-driven impact component at 1%.
const maxMarketImpact = 0.01

// SlippageConfig carries the slippage components in basis points.
type SlippageConfig struct {
	MarketImpactBps float64 `yaml:"market_impact_bps" json:"market_impact_bps" jsonschema:"title=Market Impact bps,minimum=0"`
	SpreadBps       float64 `yaml:"spread_bps" json:"spread_bps" jsonschema:"title=Bid/Ask Spread bps,minimum=0"`
	TimingBps       float64 `yaml:"timing_bps" json:"timing_bps" jsonschema:"title=Timing Cost bps,minimum=0"`
}

// DefaultSlippage returns the component defaults for an execution model.
func DefaultSlippage(model ExecutionModel) SlippageConfig {
	switch model {
	case ExecutionPerfect:
		return SlippageConfig{MarketImpactBps: 0, SpreadBps: 0, TimingBps: 0}
	case ExecutionConservative:
		return SlippageConfig{MarketImpactBps: 20, SpreadBps: 10, TimingBps: 5}
	case ExecutionIndianMarket:
		return SlippageConfig{MarketImpactBps: 15, SpreadBps: 8, TimingBps: 3}
	case ExecutionRealistic:
		return SlippageConfig{MarketImpactBps: 10, SpreadBps: 5, TimingBps: 2}
	default:
		return SlippageConfig{MarketImpactBps: 10, SpreadBps: 5, TimingBps: 2}
	}
}

// Simulator decides whether the market is open at a point in time and what
// price an order would actually fill at.
type Simulator struct {
	model    ExecutionModel
	slippage SlippageConfig
	calendar *Calendar
}

// NewSimulator builds a simulator. An unrecognized execution model is a hard
// error rather than a silent passthrough.
func NewSimulator(model ExecutionModel, slippage SlippageConfig, calendar *Calendar) (*Simulator, error) {
	switch model {
	case ExecutionPerfect, ExecutionRealistic, ExecutionConservative, ExecutionIndianMarket:
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownExecutionModel, "unknown execution model: %s", model)
	}

	return &Simulator{
		model:    model,
		slippage: slippage,
		calendar: calendar,
	}, nil
}

// IsMarketOpen reports whether the timestamp falls inside trading hours.
func (s *Simulator) IsMarketOpen(ts time.Time) bool {
	return s.calendar.IsMarketOpen(ts)
}

// IsTradingDay reports whether the date is a weekday that is not a holiday.
// The daily loop works off date-only bars, so it uses this instead of the
// full wall-clock check.
func (s *Simulator) IsTradingDay(date time.Time) bool {
	return s.calendar.IsTradingDay(date)
}

// ExecutionPrice converts a signal into a simulated fill price.
//
// The returned slippage cost is per unit (totalSlippage * entryPrice); the
// caller multiplies by quantity when recording the trade. The fill price
// already embeds the slippage, so cash accounting must use the fill price,
// not entry price plus slippage.
func (s *Simulator) ExecutionPrice(signal types.Signal, bar types.MarketData, quantity float64) (float64, float64) {
	if s.model == ExecutionPerfect {
		return signal.EntryPrice, 0
	}

	participation := quantity / bar.LiquidityVolume()

	impact := (s.slippage.MarketImpactBps / 10000) * math.Sqrt(participation*100)
	if impact > maxMarketImpact {
		impact = maxMarketImpact
	}

	totalSlippage := impact + (s.slippage.SpreadBps/10000)/2 + s.slippage.TimingBps/10000

	var fill float64
	if signal.Side == types.SideBuy {
		fill = signal.EntryPrice * (1 + totalSlippage)
	} else {
		fill = signal.EntryPrice * (1 - totalSlippage)
	}

	return fill, totalSlippage * signal.EntryPrice
}
