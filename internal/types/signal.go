package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Signal is a strategy's proposed trade for a given day.
type Signal struct {
	// Time is the bar time the signal was generated on.
	Time time.Time `yaml:"time" json:"time" validate:"required"`
	// Symbol the signal applies to.
	Symbol string `yaml:"symbol" json:"symbol" validate:"required"`
	// Side is the direction of the proposed trade.
	Side Side `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	// EntryPrice is the nominal price the strategy wants to trade at.
	EntryPrice float64 `yaml:"entry_price" json:"entry_price" validate:"required,gt=0"`
	// TargetPrice is the strategy's profit objective. Informational only;
	// the engine applies its own exit thresholds.
	TargetPrice float64 `yaml:"target_price" json:"target_price"`
	// StopPrice is the strategy's stop level. Informational only.
	StopPrice float64 `yaml:"stop_price" json:"stop_price"`
	// PositionSize is the fraction of current capital to deploy, e.g. 0.1.
	PositionSize float64 `yaml:"position_size" json:"position_size" validate:"required,gt=0"`
	// ExpiresAt invalidates the signal after this time if set.
	ExpiresAt optional.Option[time.Time] `yaml:"expires_at" json:"expires_at"`
	// StrategyName identifies the strategy that produced the signal.
	StrategyName string `yaml:"strategy_name" json:"strategy_name"`
}

// Expired reports whether the signal has an expiry earlier than now.
func (s Signal) Expired(now time.Time) bool {
	if s.ExpiresAt.IsNone() {
		return false
	}

	return now.After(s.ExpiresAt.Unwrap())
}
