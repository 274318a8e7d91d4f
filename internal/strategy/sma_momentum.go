package strategy

import (
	"fmt"

	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v2"
)

// SMAMomentum buys when the short moving average crosses above the long one
// and sells on the opposite cross.
type SMAMomentum struct {
	ShortPeriod  int     `yaml:"short_period"`
	LongPeriod   int     `yaml:"long_period"`
	PositionSize float64 `yaml:"position_size"`
}

// NewSMAMomentum creates the strategy with the given periods.
func NewSMAMomentum(shortPeriod, longPeriod int, positionSize float64) *SMAMomentum {
	return &SMAMomentum{
		ShortPeriod:  shortPeriod,
		LongPeriod:   longPeriod,
		PositionSize: positionSize,
	}
}

// Name implements strategy.Strategy.
func (s *SMAMomentum) Name() string {
	return fmt.Sprintf("sma_momentum_%d_%d", s.ShortPeriod, s.LongPeriod)
}

// Initialize implements strategy.Strategy. The config string is YAML with
// the same field names as the struct; empty config keeps defaults.
func (s *SMAMomentum) Initialize(config string) error {
	if config != "" {
		if err := yaml.Unmarshal([]byte(config), s); err != nil {
			return fmt.Errorf("failed to parse sma momentum config: %w", err)
		}
	}

	if s.ShortPeriod == 0 {
		s.ShortPeriod = 5
	}

	if s.LongPeriod == 0 {
		s.LongPeriod = 20
	}

	if s.PositionSize == 0 {
		s.PositionSize = 0.1
	}

	return nil
}

// GenerateSignal implements strategy.Strategy.
func (s *SMAMomentum) GenerateSignal(history []types.MarketData, currentPrice float64) (optional.Option[types.Signal], error) {
	// One extra bar is needed to see the cross happen.
	if len(history) < s.LongPeriod+1 {
		return optional.None[types.Signal](), nil
	}

	shortMA := sma(history, s.ShortPeriod)
	longMA := sma(history, s.LongPeriod)

	prev := history[:len(history)-1]
	prevShortMA := sma(prev, s.ShortPeriod)
	prevLongMA := sma(prev, s.LongPeriod)

	bar := history[len(history)-1]

	var side types.Side

	switch {
	case shortMA > longMA && prevShortMA <= prevLongMA:
		side = types.SideBuy
	case shortMA < longMA && prevShortMA >= prevLongMA:
		side = types.SideSell
	default:
		return optional.None[types.Signal](), nil
	}

	return optional.Some(types.Signal{
		Time:         bar.Time,
		Symbol:       bar.Symbol,
		Side:         side,
		EntryPrice:   currentPrice,
		TargetPrice:  targetFor(side, currentPrice),
		StopPrice:    stopFor(side, currentPrice),
		PositionSize: s.PositionSize,
		StrategyName: s.Name(),
	}), nil
}

func sma(bars []types.MarketData, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}

	var sum float64
	for _, bar := range bars[len(bars)-period:] {
		sum += bar.Close
	}

	return sum / float64(period)
}

func targetFor(side types.Side, price float64) float64 {
	if side == types.SideBuy {
		return price * 1.10
	}

	return price * 0.90
}

func stopFor(side types.Side, price float64) float64 {
	if side == types.SideBuy {
		return price * 0.95
	}

	return price * 1.05
}
