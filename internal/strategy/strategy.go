// Package strategy defines the pluggable signal-generation interface the
// backtest engine drives, plus a couple of reference implementations.
package strategy

import (
	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/moznion/go-optional"
)

// Strategy produces at most one trade proposal per day from a price history
// window. Implementations should be stateless across runs; the engine owns
// all position and ledger state.
type Strategy interface {
	// Initialize sets up the strategy with a YAML configuration string.
	Initialize(config string) error
	// GenerateSignal inspects the history window (oldest first, current day
	// last) and the day's closing price, returning None when there is
	// nothing to do. The engine guarantees at least its configured minimum
	// number of bars.
	GenerateSignal(history []types.MarketData, currentPrice float64) (optional.Option[types.Signal], error)
	// Name returns the strategy's identifier used in trades and results.
	Name() string
}
