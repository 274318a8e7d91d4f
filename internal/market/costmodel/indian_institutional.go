package costmodel

import "github.com/gridworks-hq/trademate-backtest/internal/types"

// institutionalBrokerageRate is 1 bps, uncapped.
const institutionalBrokerageRate = 0.0001

// IndianInstitutional models the institutional tariff: lower uncapped
// brokerage and no SEBI turnover fee. Everything else matches the retail
// stack.
type IndianInstitutional struct {
	params Params
}

// NewIndianInstitutional creates the institutional cost model.
func NewIndianInstitutional(params Params) CostModel {
	if params.BrokerageRate == 0 {
		params.BrokerageRate = institutionalBrokerageRate
	}

	applyCommonDefaults(&params)

	return &IndianInstitutional{params: params}
}

// Calculate sums the institutional tariff components for one fill.
func (c *IndianInstitutional) Calculate(symbol string, quantity float64, price float64, side types.Side) float64 {
	value := quantity * price

	brokerage := value * c.params.BrokerageRate
	exchange := value * c.params.ExchangeRate
	gst := c.params.GSTRate * (brokerage + exchange)

	total := brokerage + exchange + gst

	if side == types.SideSell {
		total += value * c.params.STTRate
	}

	if side == types.SideBuy {
		total += value * c.params.StampRate
	}

	return total
}
