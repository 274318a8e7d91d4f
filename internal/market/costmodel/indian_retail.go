package costmodel

import (
	"math"

	"github.com/gridworks-hq/trademate-backtest/internal/types"
)

// Statutory NSE equity-delivery tariff for discount retail brokers.
const (
	retailBrokerageRate = 0.0003
	retailBrokerageCap  = 20.0
	sttRate             = 0.001
	exchangeChargeRate  = 0.0000345
	gstRate             = 0.18
	sebiFeeRate         = 1e-7
	stampDutyRate       = 0.00003
)

// IndianRetail models the full retail cost stack on NSE equity delivery:
// capped brokerage, STT on sells, exchange charges, GST on brokerage and
// exchange charges, SEBI turnover fee, and stamp duty on buys.
type IndianRetail struct {
	params Params
}

// NewIndianRetail creates the retail cost model. Zero-valued params keep the
// statutory defaults.
func NewIndianRetail(params Params) CostModel {
	if params.BrokerageRate == 0 {
		params.BrokerageRate = retailBrokerageRate
	}

	if params.BrokerageCap == 0 {
		params.BrokerageCap = retailBrokerageCap
	}

	applyCommonDefaults(&params)

	return &IndianRetail{params: params}
}

// Calculate sums all six tariff components for one fill.
func (c *IndianRetail) Calculate(symbol string, quantity float64, price float64, side types.Side) float64 {
	value := quantity * price

	brokerage := math.Min(value*c.params.BrokerageRate, c.params.BrokerageCap)
	exchange := value * c.params.ExchangeRate
	gst := c.params.GSTRate * (brokerage + exchange)
	sebi := value * c.params.SEBIRate

	total := brokerage + exchange + gst + sebi

	if side == types.SideSell {
		total += value * c.params.STTRate
	}

	if side == types.SideBuy {
		total += value * c.params.StampRate
	}

	return total
}

func applyCommonDefaults(params *Params) {
	if params.STTRate == 0 {
		params.STTRate = sttRate
	}

	if params.ExchangeRate == 0 {
		params.ExchangeRate = exchangeChargeRate
	}

	if params.GSTRate == 0 {
		params.GSTRate = gstRate
	}

	if params.SEBIRate == 0 {
		params.SEBIRate = sebiFeeRate
	}

	if params.StampRate == 0 {
		params.StampRate = stampDutyRate
	}
}
