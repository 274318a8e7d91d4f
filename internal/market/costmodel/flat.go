package costmodel

import "github.com/gridworks-hq/trademate-backtest/internal/types"

// defaultFlatFee is the per-order fee in rupees when none is configured.
const defaultFlatFee = 20.0

// FlatCost charges a fixed fee per order regardless of size.
type FlatCost struct {
	fee float64
}

// NewFlatCost creates a flat cost model. A non-positive fee keeps the default.
func NewFlatCost(fee float64) CostModel {
	if fee <= 0 {
		fee = defaultFlatFee
	}

	return &FlatCost{fee: fee}
}

// Calculate returns the flat fee for any non-zero fill.
func (c *FlatCost) Calculate(symbol string, quantity float64, price float64, side types.Side) float64 {
	if quantity == 0 {
		return 0
	}

	return c.fee
}
