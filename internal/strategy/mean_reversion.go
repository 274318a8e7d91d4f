package strategy

import (
	"fmt"

	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v2"
)

// MeanReversion buys when price stretches below its moving average by more
// than the threshold and sells on the mirror condition.
type MeanReversion struct {
	Period       int     `yaml:"period"`
	Threshold    float64 `yaml:"threshold"`
	PositionSize float64 `yaml:"position_size"`
}

// NewMeanReversion creates the strategy with the given lookback and stretch
// threshold (e.g. 0.03 for 3%).
func NewMeanReversion(period int, threshold float64, positionSize float64) *MeanReversion {
	return &MeanReversion{
		Period:       period,
		Threshold:    threshold,
		PositionSize: positionSize,
	}
}

// Name implements strategy.Strategy.
func (s *MeanReversion) Name() string {
	return fmt.Sprintf("mean_reversion_%d", s.Period)
}

// Initialize implements strategy.Strategy.
func (s *MeanReversion) Initialize(config string) error {
	if config != "" {
		if err := yaml.Unmarshal([]byte(config), s); err != nil {
			return fmt.Errorf("failed to parse mean reversion config: %w", err)
		}
	}

	if s.Period == 0 {
		s.Period = 20
	}

	if s.Threshold == 0 {
		s.Threshold = 0.03
	}

	if s.PositionSize == 0 {
		s.PositionSize = 0.1
	}

	return nil
}

// GenerateSignal implements strategy.Strategy.
func (s *MeanReversion) GenerateSignal(history []types.MarketData, currentPrice float64) (optional.Option[types.Signal], error) {
	if len(history) < s.Period {
		return optional.None[types.Signal](), nil
	}

	mean := sma(history, s.Period)
	if mean == 0 {
		return optional.None[types.Signal](), nil
	}

	stretch := (currentPrice - mean) / mean
	bar := history[len(history)-1]

	var side types.Side

	switch {
	case stretch <= -s.Threshold:
		side = types.SideBuy
	case stretch >= s.Threshold:
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
