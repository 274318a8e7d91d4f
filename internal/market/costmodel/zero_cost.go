package costmodel

import "github.com/gridworks-hq/trademate-backtest/internal/types"

// ZeroCost implements CostModel with no costs at all. Used for frictionless
// scenario tests and as the baseline every other tier must dominate.
type ZeroCost struct{}

// NewZeroCost creates a zero cost model.
func NewZeroCost() CostModel {
	return &ZeroCost{}
}

// Calculate returns 0 for any fill.
func (c *ZeroCost) Calculate(symbol string, quantity float64, price float64, side types.Side) float64 {
	return 0.0
}
