package engine

import (
	"context"
	"math"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gridworks-hq/trademate-backtest/internal/backtest/engine"
	"github.com/gridworks-hq/trademate-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/gridworks-hq/trademate-backtest/internal/logger"
	"github.com/gridworks-hq/trademate-backtest/internal/market"
	"github.com/gridworks-hq/trademate-backtest/internal/market/costmodel"
	"github.com/gridworks-hq/trademate-backtest/internal/strategy"
	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/gridworks-hq/trademate-backtest/internal/version"
	"github.com/gridworks-hq/trademate-backtest/pkg/errors"
	"github.com/gridworks-hq/trademate-backtest/pkg/utils"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// BacktestEngineV1 runs one synchronous day loop over one data source. It is
// the only mutator of its ledger; concurrency belongs to callers running
// independent engines side by side, never inside a single day loop.
type BacktestEngineV1 struct {
	config        *BacktestEngineV1Config
	logger        *logger.Logger
	strategies    []strategy.Strategy
	dataSource    datasource.DataSource
	resultsFolder string

	calendar  *market.Calendar
	simulator *market.Simulator
	costModel costmodel.CostModel
	validate  *validator.Validate
}

// NewBacktestEngineV1 creates an uninitialized engine.
func NewBacktestEngineV1() (*BacktestEngineV1, error) {
	log, err := logger.NewLogger()
	if err != nil {
		return nil, err
	}

	return &BacktestEngineV1{
		logger:   log.Named("engine_v1"),
		validate: validator.New(),
	}, nil
}

// Initialize parses the YAML configuration, validates it, and builds the
// calendar, simulator, and cost model for the run.
func (e *BacktestEngineV1) Initialize(config string) error {
	var cfg BacktestEngineV1Config
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "failed to parse engine config", err)
	}

	return e.InitializeWithConfig(cfg)
}

// InitializeWithConfig accepts an already-built configuration. Tests and
// embedding callers use this to skip the YAML round trip.
func (e *BacktestEngineV1) InitializeWithConfig(cfg BacktestEngineV1Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	calendar, err := market.NewCalendar(cfg.MarketOpen, cfg.MarketClose, cfg.Holidays)
	if err != nil {
		return err
	}

	simulator, err := market.NewSimulator(cfg.ExecutionModel, cfg.Slippage, calendar)
	if err != nil {
		return err
	}

	costModel, err := costmodel.GetCostModelHandler(cfg.CostModel, cfg.CostParams)
	if err != nil {
		return err
	}

	e.config = &cfg
	e.calendar = calendar
	e.simulator = simulator
	e.costModel = costModel

	e.logger.Info("Engine initialized",
		zap.Time("start_date", cfg.StartDate),
		zap.Time("end_date", cfg.EndDate),
		zap.Float64("initial_capital", cfg.InitialCapital),
		zap.String("execution_model", string(cfg.ExecutionModel)),
		zap.String("cost_model", string(cfg.CostModel)),
	)

	return nil
}

// LoadStrategy registers a strategy for the run.
func (e *BacktestEngineV1) LoadStrategy(s strategy.Strategy) error {
	if s == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy is nil")
	}

	e.strategies = append(e.strategies, s)

	return nil
}

// SetDataSource sets the market data source.
func (e *BacktestEngineV1) SetDataSource(ds datasource.DataSource) error {
	if ds == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "data source is nil")
	}

	e.dataSource = ds

	return nil
}

// SetResultsFolder sets the output directory. Empty disables disk output.
func (e *BacktestEngineV1) SetResultsFolder(folder string) error {
	e.resultsFolder = folder
	return nil
}

// GetConfigSchema returns the engine config JSON schema.
func (e *BacktestEngineV1) GetConfigSchema() (string, error) {
	var cfg BacktestEngineV1Config
	return cfg.GenerateSchemaJSON()
}

// Run executes the day loop. One equity point is appended per calendar day
// in the configured range; ledger mutations happen on trading days only.
func (e *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (types.BacktestResult, error) {
	result, err := e.run(ctx, callbacks)

	if callbacks.OnRunEnd != nil {
		callbacks.OnRunEnd(result.ID, err)
	}

	return result, err
}

func (e *BacktestEngineV1) run(ctx context.Context, callbacks engine.LifecycleCallbacks) (types.BacktestResult, error) {
	if e.config == nil {
		return types.BacktestResult{}, errors.New(errors.ErrCodeInvalidConfig, "engine is not initialized")
	}

	if len(e.strategies) == 0 {
		return types.BacktestResult{}, errors.New(errors.ErrCodeStrategyNotLoaded, "no strategy loaded")
	}

	if e.dataSource == nil {
		return types.BacktestResult{}, errors.New(errors.ErrCodeDataNotFound, "no data source set")
	}

	runID := uuid.New().String()
	totalDays := utils.CalendarDays(e.config.StartDate, e.config.EndDate)

	if callbacks.OnRunStart != nil {
		if err := callbacks.OnRunStart(runID, totalDays); err != nil {
			return types.BacktestResult{ID: runID}, err
		}
	}

	state, err := NewBacktestState(e.logger)
	if err != nil {
		return types.BacktestResult{ID: runID}, errors.Wrap(errors.ErrCodeStateFailure, "failed to create backtest state", err)
	}
	defer state.Close()

	if err := state.Initialize(); err != nil {
		return types.BacktestResult{ID: runID}, errors.Wrap(errors.ErrCodeStateFailure, "failed to initialize backtest state", err)
	}

	bars, err := e.dataSource.GetRange(e.config.StartDate, utils.EndOfDay(e.config.EndDate))
	if err != nil {
		return types.BacktestResult{ID: runID}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to load market data", err)
	}

	barsByDay := groupByDay(bars)
	ledger := NewLedger(e.config.InitialCapital)
	history := make(map[string][]types.MarketData)

	day := e.config.StartDate
	for i := 0; i < totalDays; i++ {
		if err := ctx.Err(); err != nil {
			return types.BacktestResult{ID: runID}, errors.Wrap(errors.ErrCodeRunAborted, "run cancelled", err)
		}

		dayBars := barsByDay[utils.DayKey(day)]

		if e.calendar.IsTradingDay(day) && len(dayBars) > 0 {
			for _, bar := range dayBars {
				history[bar.Symbol] = append(history[bar.Symbol], bar)
			}

			e.processSignals(ledger, state, history, dayBars, day)

			closes := closesOf(dayBars)
			ledger.MarkPositions(closes, utils.EndOfDay(day))
			e.processExits(ledger, state, closes, day)
		}

		point := ledger.AppendEquityPoint(day)
		if err := state.RecordEquityPoint(point); err != nil {
			e.logger.Warn("Failed to record equity point", zap.Error(err))
		}

		if callbacks.OnProcessData != nil {
			if err := callbacks.OnProcessData(i+1, totalDays); err != nil {
				return types.BacktestResult{ID: runID}, err
			}
		}

		day = day.AddDate(0, 0, 1)
	}

	result, err := e.buildResult(runID, ledger, state)
	if err != nil {
		return result, err
	}

	if e.resultsFolder != "" {
		if err := e.writeResults(result, state); err != nil {
			return result, err
		}
	}

	return result, nil
}

// processSignals runs every strategy over every symbol with enough history.
// A panicking or erroring strategy is logged and skipped for the day.
func (e *BacktestEngineV1) processSignals(ledger *Ledger, state *BacktestState, history map[string][]types.MarketData, dayBars []types.MarketData, day time.Time) {
	for _, bar := range dayBars {
		symbolHistory := history[bar.Symbol]
		if len(symbolHistory) < e.config.MinHistoryBars {
			continue
		}

		for _, strat := range e.strategies {
			signalOpt, err := e.generateSignal(strat, symbolHistory, bar.Close)
			if err != nil {
				e.logger.Warn("Strategy failed, skipping for the day",
					zap.String("strategy", strat.Name()),
					zap.String("symbol", bar.Symbol),
					zap.Error(err),
				)

				continue
			}

			if signalOpt.IsNone() {
				continue
			}

			signal := signalOpt.Unwrap()
			if signal.Expired(utils.EndOfDay(day)) {
				continue
			}

			if err := e.validate.Struct(signal); err != nil {
				e.logger.Warn("Dropping invalid signal",
					zap.String("strategy", strat.Name()),
					zap.Error(err),
				)

				continue
			}

			e.executeSignal(ledger, state, strat.Name(), signal, bar, day)
		}
	}
}

// generateSignal isolates strategy panics so one bad strategy cannot take
// down the run.
func (e *BacktestEngineV1) generateSignal(strat strategy.Strategy, history []types.MarketData, currentPrice float64) (result optional.Option[types.Signal], err error) {
	defer func() {
		if r := recover(); r != nil {
			result = optional.None[types.Signal]()
			err = errors.Newf(errors.ErrCodeStrategyPanic, "strategy panicked: %v", r)
		}
	}()

	return strat.GenerateSignal(history, currentPrice)
}

// executeSignal sizes, prices, and settles one signal against the ledger.
// A buy whose notional plus cost exceeds available cash is rejected, never
// partially filled.
func (e *BacktestEngineV1) executeSignal(ledger *Ledger, state *BacktestState, strategyName string, signal types.Signal, bar types.MarketData, day time.Time) {
	quantity := math.Floor(ledger.Cash() * signal.PositionSize / signal.EntryPrice)
	if quantity <= 0 {
		return
	}

	fillPrice, perUnitSlippage := e.simulator.ExecutionPrice(signal, bar, quantity)
	cost := e.costModel.Calculate(signal.Symbol, quantity, fillPrice, signal.Side)

	if signal.Side == types.SideBuy && quantity*fillPrice+cost > ledger.Cash() {
		e.logger.Info("Rejecting buy: insufficient capital",
			zap.String("symbol", signal.Symbol),
			zap.Float64("quantity", quantity),
			zap.Float64("fill_price", fillPrice),
			zap.Float64("cash", ledger.Cash()),
		)

		return
	}

	trades, err := ledger.ApplyFill(Fill{
		Symbol:       signal.Symbol,
		StrategyName: strategyName,
		Side:         signal.Side,
		Quantity:     quantity,
		Price:        fillPrice,
		Cost:         cost,
		SlippageCost: perUnitSlippage * quantity,
		Tag:          types.TradeTagStrategy,
		At:           utils.EndOfDay(day),
	})
	if err != nil {
		e.logger.Warn("Fill rejected by ledger",
			zap.String("symbol", signal.Symbol),
			zap.Error(err),
		)

		return
	}

	if err := state.RecordTrades(trades); err != nil {
		e.logger.Warn("Failed to record trades", zap.Error(err))
	}
}

// processExits force-closes positions whose unrealized move breaches the
// stop-loss or take-profit band. Shorts use the mirrored thresholds.
func (e *BacktestEngineV1) processExits(ledger *Ledger, state *BacktestState, closes map[string]float64, day time.Time) {
	for _, symbol := range ledger.OpenSymbols() {
		price, ok := closes[symbol]
		if !ok {
			continue
		}

		pos, ok := ledger.Position(symbol)
		if !ok {
			continue
		}

		move := pos.UnrealizedMove(price)

		var tag types.TradeTag

		switch {
		case move <= -e.config.StopLoss:
			tag = types.TradeTagStopLoss
		case move >= e.config.TakeProfit:
			tag = types.TradeTagTakeProfit
		default:
			continue
		}

		e.closePosition(ledger, state, pos, price, tag, day)
	}
}

func (e *BacktestEngineV1) closePosition(ledger *Ledger, state *BacktestState, pos types.Position, price float64, tag types.TradeTag, day time.Time) {
	quantity := math.Abs(pos.Quantity)

	side := types.SideSell
	if !pos.IsLong() {
		side = types.SideBuy
	}

	exitSignal := types.Signal{
		Time:       utils.EndOfDay(day),
		Symbol:     pos.Symbol,
		Side:       side,
		EntryPrice: price,
	}

	bar := types.MarketData{Symbol: pos.Symbol, Close: price}
	fillPrice, perUnitSlippage := e.simulator.ExecutionPrice(exitSignal, bar, quantity)
	cost := e.costModel.Calculate(pos.Symbol, quantity, fillPrice, side)

	trades, err := ledger.ApplyFill(Fill{
		Symbol:       pos.Symbol,
		StrategyName: pos.StrategyName,
		Side:         side,
		Quantity:     quantity,
		Price:        fillPrice,
		Cost:         cost,
		SlippageCost: perUnitSlippage * quantity,
		Tag:          tag,
		At:           utils.EndOfDay(day),
	})
	if err != nil {
		e.logger.Warn("Exit fill rejected by ledger",
			zap.String("symbol", pos.Symbol),
			zap.Error(err),
		)

		return
	}

	e.logger.Info("Position force-closed",
		zap.String("symbol", pos.Symbol),
		zap.String("tag", string(tag)),
		zap.Float64("price", fillPrice),
	)

	if err := state.RecordTrades(trades); err != nil {
		e.logger.Warn("Failed to record trades", zap.Error(err))
	}
}

func (e *BacktestEngineV1) buildResult(runID string, ledger *Ledger, state *BacktestState) (types.BacktestResult, error) {
	curve := ledger.EquityCurve()
	monthly, yearly := ComputePeriodReturns(curve)

	strategies, err := state.GetStrategyPerformance()
	if err != nil {
		return types.BacktestResult{ID: runID}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to aggregate strategy performance", err)
	}

	finalCapital := ledger.Equity()

	result := types.BacktestResult{
		ID:             runID,
		SchemaVersion:  version.ResultsSchemaVersion,
		StartDate:      e.config.StartDate,
		EndDate:        e.config.EndDate,
		DurationDays:   len(curve),
		InitialCapital: e.config.InitialCapital,
		FinalCapital:   finalCapital,
		Risk:           ComputeRiskStatistics(curve, e.config.InitialCapital, e.config.RiskFreeRate),
		Summary:        ComputeTradeSummary(ledger.Trades()),
		Trades:         ledger.Trades(),
		EquityCurve:    curve,
		MonthlyReturns: monthly,
		YearlyReturns:  yearly,
		Strategies:     strategies,
	}

	if e.config.InitialCapital > 0 {
		result.TotalReturn = (finalCapital - e.config.InitialCapital) / e.config.InitialCapital
	}

	return result, nil
}

func (e *BacktestEngineV1) writeResults(result types.BacktestResult, state *BacktestState) error {
	folder := filepath.Join(e.resultsFolder, result.ID)

	if err := state.Write(folder); err != nil {
		return errors.Wrap(errors.ErrCodeStateFailure, "failed to export state", err)
	}

	resultPath := filepath.Join(folder, "result.yaml")
	if err := types.WriteBacktestResult(resultPath, result); err != nil {
		return errors.Wrap(errors.ErrCodeStateFailure, "failed to write result", err)
	}

	e.logger.Info("Backtest result written", zap.String("path", resultPath))

	return nil
}

func groupByDay(bars []types.MarketData) map[string][]types.MarketData {
	grouped := make(map[string][]types.MarketData, len(bars))
	for _, bar := range bars {
		key := utils.DayKey(bar.Time)
		grouped[key] = append(grouped[key], bar)
	}

	return grouped
}

func closesOf(bars []types.MarketData) map[string]float64 {
	closes := make(map[string]float64, len(bars))
	for _, bar := range bars {
		closes[bar.Symbol] = bar.Close
	}

	return closes
}

var _ engine.Engine = (*BacktestEngineV1)(nil)
