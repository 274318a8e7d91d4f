// Package costmodel prices the transaction-cost leg of a simulated fill.
// Each supported cost tier is its own CostModel implementation; unknown
// model names are rejected at construction so a misspelled tier can never
// silently degrade to free trading.
package costmodel

import (
	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/gridworks-hq/trademate-backtest/pkg/errors"
)

// CostModel computes the total transaction cost of one fill in rupees.
type CostModel interface {
	// Calculate returns the all-in cost for trading quantity units at price.
	// Side matters: STT applies to sells only, stamp duty to buys only.
	Calculate(symbol string, quantity float64, price float64, side types.Side) float64
}

// Model names a cost tier.
type Model string

const (
	ModelZero                Model = "zero_cost"
	ModelFlat                Model = "flat"
	ModelPercentage          Model = "percentage"
	ModelIndianRetail        Model = "indian_retail"
	ModelIndianInstitutional Model = "indian_institutional"
)

// AllModels lists the valid cost model values for schema generation.
var AllModels = []any{
	ModelZero,
	ModelFlat,
	ModelPercentage,
	ModelIndianRetail,
	ModelIndianInstitutional,
}

// Params overrides the Indian tariff components. Zero-valued fields keep
// the statutory defaults.
type Params struct {
	// BrokerageRate is the per-value brokerage rate, e.g. 0.0003.
	BrokerageRate float64 `yaml:"brokerage_rate" json:"brokerage_rate"`
	// BrokerageCap caps the brokerage per order in rupees (retail only).
	BrokerageCap float64 `yaml:"brokerage_cap" json:"brokerage_cap"`
	// STTRate is the Securities Transaction Tax rate, sell side only.
	STTRate float64 `yaml:"stt_rate" json:"stt_rate"`
	// ExchangeRate is the exchange transaction charge rate.
	ExchangeRate float64 `yaml:"exchange_rate" json:"exchange_rate"`
	// GSTRate applies to brokerage plus exchange charges.
	GSTRate float64 `yaml:"gst_rate" json:"gst_rate"`
	// SEBIRate is the SEBI turnover fee rate (retail only).
	SEBIRate float64 `yaml:"sebi_rate" json:"sebi_rate"`
	// StampRate is the stamp duty rate, buy side only.
	StampRate float64 `yaml:"stamp_rate" json:"stamp_rate"`
	// FlatFee is the per-order fee for the flat model in rupees.
	FlatFee float64 `yaml:"flat_fee" json:"flat_fee"`
	// PercentageRate is the per-value rate for the percentage model.
	PercentageRate float64 `yaml:"percentage_rate" json:"percentage_rate"`
}

// GetCostModelHandler resolves a model name to its implementation. Unknown
// names are an error, never a zero-cost fallthrough.
func GetCostModelHandler(model Model, params Params) (CostModel, error) {
	switch model {
	case ModelZero:
		return NewZeroCost(), nil
	case ModelFlat:
		return NewFlatCost(params.FlatFee), nil
	case ModelPercentage:
		return NewPercentageCost(params.PercentageRate), nil
	case ModelIndianRetail:
		return NewIndianRetail(params), nil
	case ModelIndianInstitutional:
		return NewIndianInstitutional(params), nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownCostModel, "unknown cost model: %s", model)
	}
}
