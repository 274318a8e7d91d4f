package engine

import (
	"math"
	"sort"

	"github.com/gridworks-hq/trademate-backtest/internal/types"
)

const (
	tradingDaysPerYear = 252.0
	daysPerYear        = 365.25

	// The ratios below Sharpe in RiskStatistics are approximations scaled
	// off Sharpe and a fixed benchmark return, not independent estimators.
	// Downstream reports consume these exact figures.
	sortinoSharpeScale = 1.2
	cvarVaRScale       = 1.3
	benchmarkReturn    = 0.12
	assumedBeta        = 0.9
	trackingErrorScale = 0.5
)

// ComputeRiskStatistics derives the return and risk figures from the equity
// curve. Every ratio guards its denominator and returns 0 instead of NaN.
func ComputeRiskStatistics(curve []types.EquityPoint, initialCapital, riskFreeRate float64) types.RiskStatistics {
	var stats types.RiskStatistics

	if len(curve) == 0 || initialCapital <= 0 {
		return stats
	}

	final := curve[len(curve)-1].Equity
	durationDays := len(curve)

	stats.AnnualizedReturn = annualizedReturn(initialCapital, final, durationDays)

	returns := dailyReturns(curve)
	stats.Volatility = stdDev(returns) * math.Sqrt(tradingDaysPerYear)

	if stats.Volatility > 0 {
		stats.SharpeRatio = (stats.AnnualizedReturn - riskFreeRate) / stats.Volatility
	}

	stats.MaxDrawdown, stats.MaxDrawdownDuration = maxDrawdown(curve)
	stats.VaR95 = percentile(returns, 0.05)

	stats.SortinoRatio = stats.SharpeRatio * sortinoSharpeScale
	stats.CVaR95 = stats.VaR95 * cvarVaRScale
	stats.Beta = assumedBeta
	stats.Alpha = stats.AnnualizedReturn - assumedBeta*benchmarkReturn
	stats.TrackingError = stats.Volatility * trackingErrorScale

	if stats.TrackingError > 0 {
		stats.InformationRatio = (stats.AnnualizedReturn - benchmarkReturn) / stats.TrackingError
	}

	if stats.MaxDrawdown > 0 {
		stats.CalmarRatio = stats.AnnualizedReturn / stats.MaxDrawdown
	}

	return stats
}

// ComputeTradeSummary aggregates the closed-trade list.
func ComputeTradeSummary(trades []types.Trade) types.TradeSummary {
	var summary types.TradeSummary

	summary.TotalTrades = len(trades)

	var grossProfit, grossLoss float64

	for _, trade := range trades {
		if !trade.Closed() {
			continue
		}

		pnl := trade.PnL.Unwrap()
		summary.ClosedTrades++

		switch {
		case pnl > 0:
			summary.WinningTrades++
			grossProfit += pnl

			if pnl > summary.LargestWin {
				summary.LargestWin = pnl
			}
		case pnl < 0:
			summary.LosingTrades++
			grossLoss += -pnl

			if pnl < summary.LargestLoss {
				summary.LargestLoss = pnl
			}
		}
	}

	if summary.ClosedTrades > 0 {
		summary.WinRate = float64(summary.WinningTrades) / float64(summary.ClosedTrades)
	}

	if summary.WinningTrades > 0 {
		summary.AverageWin = grossProfit / float64(summary.WinningTrades)
	}

	if summary.LosingTrades > 0 {
		summary.AverageLoss = -grossLoss / float64(summary.LosingTrades)
	}

	if grossLoss > 0 {
		summary.ProfitFactor = grossProfit / grossLoss
	}

	return summary
}

// ComputePeriodReturns buckets the equity curve into compounded monthly
// ("2006-01") and yearly ("2006") return maps.
func ComputePeriodReturns(curve []types.EquityPoint) (monthly, yearly map[string]float64) {
	monthly = make(map[string]float64)
	yearly = make(map[string]float64)

	for _, point := range curve {
		monthKey := point.Date.Format("2006-01")
		yearKey := point.Date.Format("2006")

		compound(monthly, monthKey, point.DailyReturn)
		compound(yearly, yearKey, point.DailyReturn)
	}

	return monthly, yearly
}

func compound(buckets map[string]float64, key string, dailyReturn float64) {
	current, ok := buckets[key]
	if !ok {
		buckets[key] = dailyReturn
		return
	}

	buckets[key] = (1+current)*(1+dailyReturn) - 1
}

func annualizedReturn(initial, final float64, durationDays int) float64 {
	if durationDays <= 0 || initial <= 0 || final <= 0 {
		return 0
	}

	return math.Pow(final/initial, daysPerYear/float64(durationDays)) - 1
}

func dailyReturns(curve []types.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(curve)-1)
	for _, point := range curve[1:] {
		returns = append(returns, point.DailyReturn)
	}

	return returns
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}

	return math.Sqrt(sq / float64(len(values)-1))
}

// maxDrawdown returns the deepest peak-to-trough decline as a positive
// fraction, together with the longest peak-to-recovery stretch in days.
func maxDrawdown(curve []types.EquityPoint) (float64, int) {
	if len(curve) == 0 {
		return 0, 0
	}

	var (
		peak        = curve[0].Equity
		peakIndex   int
		maxDD       float64
		longestDays int
	)

	for i, point := range curve {
		if point.Equity >= peak {
			if days := i - peakIndex; days > longestDays {
				longestDays = days
			}

			peak = point.Equity
			peakIndex = i

			continue
		}

		if peak > 0 {
			if dd := (peak - point.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}

	// Still underwater at the end of the run.
	if days := len(curve) - 1 - peakIndex; days > longestDays {
		longestDays = days
	}

	return maxDD, longestDays
}

// percentile returns the linearly interpolated p-quantile of values.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)

	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
