package costmodel

import "github.com/gridworks-hq/trademate-backtest/internal/types"

// defaultPercentageRate is 10 bps of trade value.
const defaultPercentageRate = 0.001

// PercentageCost charges a flat fraction of trade value on both sides.
type PercentageCost struct {
	rate float64
}

// NewPercentageCost creates a percentage cost model. A non-positive rate
// keeps the default.
func NewPercentageCost(rate float64) CostModel {
	if rate <= 0 {
		rate = defaultPercentageRate
	}

	return &PercentageCost{rate: rate}
}

// Calculate returns rate * trade value.
func (c *PercentageCost) Calculate(symbol string, quantity float64, price float64, side types.Side) float64 {
	return quantity * price * c.rate
}
