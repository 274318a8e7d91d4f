package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EquityPoint is one entry of the daily equity curve. The curve carries one
// point per calendar day in the run range, trading day or not.
type EquityPoint struct {
	Date time.Time `yaml:"date" json:"date" csv:"date"`
	Cash float64   `yaml:"cash" json:"cash" csv:"cash"`
	// PositionsValue is the sum of all open position market values.
	PositionsValue float64 `yaml:"positions_value" json:"positions_value" csv:"positions_value"`
	// Equity always equals Cash + PositionsValue.
	Equity      float64 `yaml:"equity" json:"equity" csv:"equity"`
	DailyReturn float64 `yaml:"daily_return" json:"daily_return" csv:"daily_return"`
}

// TradeSummary aggregates the closed-trade list.
type TradeSummary struct {
	TotalTrades   int     `yaml:"total_trades" json:"total_trades"`
	ClosedTrades  int     `yaml:"closed_trades" json:"closed_trades"`
	WinningTrades int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int     `yaml:"losing_trades" json:"losing_trades"`
	WinRate       float64 `yaml:"win_rate" json:"win_rate"`
	AverageWin    float64 `yaml:"average_win" json:"average_win"`
	AverageLoss   float64 `yaml:"average_loss" json:"average_loss"`
	ProfitFactor  float64 `yaml:"profit_factor" json:"profit_factor"`
	LargestWin    float64 `yaml:"largest_win" json:"largest_win"`
	LargestLoss   float64 `yaml:"largest_loss" json:"largest_loss"`
}

// RiskStatistics holds the end-of-run return and risk figures.
//
// Sortino, CVaR95, Alpha, Beta, TrackingError and InformationRatio are
// approximations derived from the Sharpe ratio and a fixed benchmark return,
// not independent estimators. Downstream reporting depends on these exact
// figures, so they are preserved as-is rather than replaced with proper
// statistics. Calmar is computed directly from annualized return and max
// drawdown.
type RiskStatistics struct {
	AnnualizedReturn float64 `yaml:"annualized_return" json:"annualized_return"`
	Volatility       float64 `yaml:"volatility" json:"volatility"`
	SharpeRatio      float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	SortinoRatio     float64 `yaml:"sortino_ratio" json:"sortino_ratio"`
	CalmarRatio      float64 `yaml:"calmar_ratio" json:"calmar_ratio"`
	MaxDrawdown      float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// MaxDrawdownDuration is the longest peak-to-recovery stretch in days.
	MaxDrawdownDuration int     `yaml:"max_drawdown_duration" json:"max_drawdown_duration"`
	VaR95               float64 `yaml:"var_95" json:"var_95"`
	CVaR95              float64 `yaml:"cvar_95" json:"cvar_95"`
	Alpha               float64 `yaml:"alpha" json:"alpha"`
	Beta                float64 `yaml:"beta" json:"beta"`
	TrackingError       float64 `yaml:"tracking_error" json:"tracking_error"`
	InformationRatio    float64 `yaml:"information_ratio" json:"information_ratio"`
}

// StrategyPerformance is the per-strategy snapshot embedded in the result.
type StrategyPerformance struct {
	StrategyName string       `yaml:"strategy_name" json:"strategy_name"`
	Summary      TradeSummary `yaml:"summary" json:"summary"`
	RealizedPnL  float64      `yaml:"realized_pnl" json:"realized_pnl"`
	TotalFees    float64      `yaml:"total_fees" json:"total_fees"`
}

// BacktestResult is the terminal aggregate of one run. Produced once at the
// end of a run and read-only thereafter. No JSON stability guarantee is made
// across schema versions; SchemaVersion is there for consumers to check.
type BacktestResult struct {
	ID            string    `yaml:"id" json:"id"`
	SchemaVersion string    `yaml:"schema_version" json:"schema_version"`
	StartDate     time.Time `yaml:"start_date" json:"start_date"`
	EndDate       time.Time `yaml:"end_date" json:"end_date"`
	DurationDays  int       `yaml:"duration_days" json:"duration_days"`

	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	FinalCapital   float64 `yaml:"final_capital" json:"final_capital"`
	TotalReturn    float64 `yaml:"total_return" json:"total_return"`

	Risk    RiskStatistics `yaml:"risk" json:"risk"`
	Summary TradeSummary   `yaml:"summary" json:"summary"`

	Trades      []Trade       `yaml:"trades" json:"trades"`
	EquityCurve []EquityPoint `yaml:"equity_curve" json:"equity_curve"`

	// MonthlyReturns is keyed by "2006-01", YearlyReturns by "2006".
	MonthlyReturns map[string]float64 `yaml:"monthly_returns" json:"monthly_returns"`
	YearlyReturns  map[string]float64 `yaml:"yearly_returns" json:"yearly_returns"`

	Strategies map[string]StrategyPerformance `yaml:"strategies" json:"strategies"`
}

// WriteBacktestResult writes the result as YAML to the given path.
func WriteBacktestResult(path string, result BacktestResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}

// ReadBacktestResult reads a YAML result file back.
func ReadBacktestResult(path string) (BacktestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BacktestResult{}, fmt.Errorf("failed to read backtest result file: %w", err)
	}

	var result BacktestResult
	if err := yaml.Unmarshal(data, &result); err != nil {
		return BacktestResult{}, fmt.Errorf("failed to unmarshal backtest result: %w", err)
	}

	return result, nil
}
