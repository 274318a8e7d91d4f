package types

import "time"

// DefaultAvgDailyVolume is assumed when a bar carries no liquidity figure.
// Participation-rate based market impact needs some denominator.
const DefaultAvgDailyVolume = 1_000_000

// MarketData is a single daily OHLCV bar for one symbol.
type MarketData struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
	// AvgDailyVolume is the rolling average daily volume used for
	// participation-rate slippage. Zero means unknown.
	AvgDailyVolume float64 `yaml:"avg_daily_volume" json:"avg_daily_volume" csv:"avg_daily_volume"`
}

// LiquidityVolume returns the average daily volume for impact calculations,
// falling back to DefaultAvgDailyVolume when the bar has none.
func (m MarketData) LiquidityVolume() float64 {
	if m.AvgDailyVolume > 0 {
		return m.AvgDailyVolume
	}

	return DefaultAvgDailyVolume
}
