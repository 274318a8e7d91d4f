package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// TradeTag records why a fill happened.
type TradeTag string

const (
	TradeTagStrategy   TradeTag = "strategy"
	TradeTagStopLoss   TradeTag = "stop_loss"
	TradeTagTakeProfit TradeTag = "take_profit"
)

// Trade is one executed fill. Entry trades are created with no exit fields;
// a position close produces a separate Trade row carrying the realized PnL.
type Trade struct {
	ID           string `yaml:"id" json:"id" csv:"id"`
	StrategyName string `yaml:"strategy_name" json:"strategy_name" csv:"strategy_name"`
	Symbol       string `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side         Side   `yaml:"side" json:"side" csv:"side"`
	// Quantity is signed: positive for buys, negative for sells.
	Quantity   float64                    `yaml:"quantity" json:"quantity" csv:"quantity"`
	EntryPrice float64                    `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitPrice  optional.Option[float64]   `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	ExitTime   optional.Option[time.Time] `yaml:"exit_time" json:"exit_time" csv:"exit_time"`
	// PnL stays unset until the fill closes a position.
	PnL        optional.Option[float64] `yaml:"pnl" json:"pnl" csv:"pnl"`
	Commission float64                  `yaml:"commission" json:"commission" csv:"commission"`
	Slippage   float64                  `yaml:"slippage" json:"slippage" csv:"slippage"`
	Tag        TradeTag                 `yaml:"tag" json:"tag" csv:"tag"`
	ExecutedAt time.Time                `yaml:"executed_at" json:"executed_at" csv:"executed_at"`
}

// Closed reports whether this trade realized a PnL.
func (t Trade) Closed() bool {
	return t.PnL.IsSome()
}

// Position is the current holding in one symbol. Quantity is signed;
// a negative quantity is a short position.
type Position struct {
	Symbol   string  `yaml:"symbol" json:"symbol" csv:"symbol"`
	Quantity float64 `yaml:"quantity" json:"quantity" csv:"quantity"`
	// AvgCost is the volume-weighted average entry price.
	AvgCost float64 `yaml:"avg_cost" json:"avg_cost" csv:"avg_cost"`
	// MarketValue is quantity times the last mark price (signed).
	MarketValue   float64   `yaml:"market_value" json:"market_value" csv:"market_value"`
	UnrealizedPnL float64   `yaml:"unrealized_pnl" json:"unrealized_pnl" csv:"unrealized_pnl"`
	OpenedAt      time.Time `yaml:"opened_at" json:"opened_at" csv:"opened_at"`
	UpdatedAt     time.Time `yaml:"updated_at" json:"updated_at" csv:"updated_at"`
	StrategyName  string    `yaml:"strategy_name" json:"strategy_name" csv:"strategy_name"`
}

// IsLong reports whether the position is long.
func (p *Position) IsLong() bool {
	return p.Quantity > 0
}

// Mark revalues the position at the given price.
func (p *Position) Mark(price float64, at time.Time) {
	p.MarketValue = p.Quantity * price
	p.UnrealizedPnL = (price - p.AvgCost) * p.Quantity
	p.UpdatedAt = at
}

// UnrealizedMove returns the fractional price move relative to average cost,
// signed so that a positive value is always in the position's favor.
func (p *Position) UnrealizedMove(price float64) float64 {
	if p.AvgCost == 0 {
		return 0
	}

	move := (price - p.AvgCost) / p.AvgCost
	if !p.IsLong() {
		move = -move
	}

	return move
}

// RealizedPnL computes the profit of closing quantity qty (positive number of
// units) at exitPrice, before transaction costs, using decimal arithmetic to
// keep the round-trip identity exact.
func (p *Position) RealizedPnL(qty float64, exitPrice float64) float64 {
	entryDec := decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(p.AvgCost))
	exitDec := decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(exitPrice))

	var resultDec decimal.Decimal
	if p.IsLong() {
		resultDec = exitDec.Sub(entryDec)
	} else {
		resultDec = entryDec.Sub(exitDec)
	}

	pnl, _ := resultDec.Float64()

	return pnl
}
