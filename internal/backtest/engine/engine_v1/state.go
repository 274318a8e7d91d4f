package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/gridworks-hq/trademate-backtest/internal/logger"
	"github.com/gridworks-hq/trademate-backtest/internal/types"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

// BacktestState is the persistence layer behind the in-memory ledger: every
// trade and equity point lands in an in-memory DuckDB so that results can be
// exported as parquet and per-strategy statistics can be answered in SQL.
// The day loop never reads from here.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewBacktestState opens the in-memory database.
func NewBacktestState(log *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &BacktestState{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the trades and equity curve tables.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT PRIMARY KEY,
			strategy_name TEXT,
			symbol TEXT,
			side TEXT,
			quantity DOUBLE,
			entry_price DOUBLE,
			exit_price DOUBLE,
			exit_time TIMESTAMP,
			pnl DOUBLE,
			commission DOUBLE,
			slippage DOUBLE,
			tag TEXT,
			executed_at TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create trades table: %w", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity_curve (
			date TIMESTAMP PRIMARY KEY,
			cash DOUBLE,
			positions_value DOUBLE,
			equity DOUBLE,
			daily_return DOUBLE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create equity_curve table: %w", err)
	}

	return nil
}

// RecordTrades persists trade rows produced by the ledger.
func (b *BacktestState) RecordTrades(trades []types.Trade) error {
	for _, trade := range trades {
		var exitPrice, pnl any

		var exitTime any

		if trade.ExitPrice.IsSome() {
			exitPrice = trade.ExitPrice.Unwrap()
		}

		if trade.ExitTime.IsSome() {
			exitTime = trade.ExitTime.Unwrap()
		}

		if trade.PnL.IsSome() {
			pnl = trade.PnL.Unwrap()
		}

		query := b.sq.
			Insert("trades").
			Columns(
				"trade_id", "strategy_name", "symbol", "side", "quantity",
				"entry_price", "exit_price", "exit_time", "pnl",
				"commission", "slippage", "tag", "executed_at",
			).
			Values(
				trade.ID, trade.StrategyName, trade.Symbol, trade.Side, trade.Quantity,
				trade.EntryPrice, exitPrice, exitTime, pnl,
				trade.Commission, trade.Slippage, trade.Tag, trade.ExecutedAt,
			).
			RunWith(b.db)

		if _, err := query.Exec(); err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}
	}

	return nil
}

// RecordEquityPoint persists one equity-curve entry.
func (b *BacktestState) RecordEquityPoint(point types.EquityPoint) error {
	query := b.sq.
		Insert("equity_curve").
		Columns("date", "cash", "positions_value", "equity", "daily_return").
		Values(point.Date, point.Cash, point.PositionsValue, point.Equity, point.DailyReturn).
		RunWith(b.db)

	if _, err := query.Exec(); err != nil {
		return fmt.Errorf("failed to insert equity point: %w", err)
	}

	return nil
}

// GetAllTrades returns all persisted trades in execution order.
func (b *BacktestState) GetAllTrades() ([]types.Trade, error) {
	rows, err := b.sq.
		Select(
			"trade_id", "strategy_name", "symbol", "side", "quantity",
			"entry_price", "exit_price", "exit_time", "pnl",
			"commission", "slippage", "tag", "executed_at",
		).
		From("trades").
		OrderBy("executed_at ASC").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var trade types.Trade

		var exitPrice, pnl sql.NullFloat64

		var exitTime sql.NullTime

		err := rows.Scan(
			&trade.ID,
			&trade.StrategyName,
			&trade.Symbol,
			&trade.Side,
			&trade.Quantity,
			&trade.EntryPrice,
			&exitPrice,
			&exitTime,
			&pnl,
			&trade.Commission,
			&trade.Slippage,
			&trade.Tag,
			&trade.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		trade.ExitPrice = optionalFloat(exitPrice)
		trade.PnL = optionalFloat(pnl)
		trade.ExitTime = optionalTime(exitTime)

		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// GetStrategyPerformance aggregates closed trades per strategy in SQL.
func (b *BacktestState) GetStrategyPerformance() (map[string]types.StrategyPerformance, error) {
	query := `
		WITH closed AS (
			SELECT strategy_name, pnl
			FROM trades
			WHERE pnl IS NOT NULL
		),
		per_strategy AS (
			SELECT
				strategy_name,
				COUNT(*) as closed_trades,
				SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END) as winning_trades,
				SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END) as losing_trades,
				SUM(pnl) as realized_pnl,
				SUM(CASE WHEN pnl > 0 THEN pnl ELSE 0 END) as gross_profit,
				SUM(CASE WHEN pnl < 0 THEN -pnl ELSE 0 END) as gross_loss,
				MAX(pnl) as largest_win,
				MIN(pnl) as largest_loss
			FROM closed
			GROUP BY strategy_name
		),
		fees AS (
			SELECT strategy_name, COUNT(*) as total_trades, SUM(commission) as total_fees
			FROM trades
			GROUP BY strategy_name
		)
		SELECT
			f.strategy_name,
			f.total_trades,
			COALESCE(p.closed_trades, 0),
			COALESCE(p.winning_trades, 0),
			COALESCE(p.losing_trades, 0),
			COALESCE(p.realized_pnl, 0),
			COALESCE(p.gross_profit, 0),
			COALESCE(p.gross_loss, 0),
			COALESCE(p.largest_win, 0),
			COALESCE(p.largest_loss, 0),
			COALESCE(f.total_fees, 0)
		FROM fees f
		LEFT JOIN per_strategy p ON f.strategy_name = p.strategy_name
		ORDER BY f.strategy_name
	`

	rows, err := b.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy performance: %w", err)
	}
	defer rows.Close()

	out := make(map[string]types.StrategyPerformance)

	for rows.Next() {
		var (
			name                      string
			perf                      types.StrategyPerformance
			grossProfit, grossLoss    float64
			winning, losing, closedN  int
		)

		err := rows.Scan(
			&name,
			&perf.Summary.TotalTrades,
			&closedN,
			&winning,
			&losing,
			&perf.RealizedPnL,
			&grossProfit,
			&grossLoss,
			&perf.Summary.LargestWin,
			&perf.Summary.LargestLoss,
			&perf.TotalFees,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy performance: %w", err)
		}

		perf.StrategyName = name
		perf.Summary.ClosedTrades = closedN
		perf.Summary.WinningTrades = winning
		perf.Summary.LosingTrades = losing

		if closedN > 0 {
			perf.Summary.WinRate = float64(winning) / float64(closedN)
		}

		if winning > 0 {
			perf.Summary.AverageWin = grossProfit / float64(winning)
		}

		if losing > 0 {
			perf.Summary.AverageLoss = -grossLoss / float64(losing)
		}

		if grossLoss > 0 {
			perf.Summary.ProfitFactor = grossProfit / grossLoss
		}

		out[name] = perf
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategy performance: %w", err)
	}

	return out, nil
}

// Write exports trades and the equity curve as parquet files in the given
// directory.
func (b *BacktestState) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tradesPath := filepath.Join(path, "trades.parquet")
	if _, err := b.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT PARQUET)`, tradesPath)); err != nil {
		return fmt.Errorf("failed to export trades to parquet: %w", err)
	}

	equityPath := filepath.Join(path, "equity_curve.parquet")
	if _, err := b.db.Exec(fmt.Sprintf(`COPY equity_curve TO '%s' (FORMAT PARQUET)`, equityPath)); err != nil {
		return fmt.Errorf("failed to export equity curve to parquet: %w", err)
	}

	b.logger.Info("Exported backtest state to parquet",
		zap.String("trades", tradesPath),
		zap.String("equity_curve", equityPath),
	)

	return nil
}

// Cleanup drops and recreates the tables so the state can serve another run.
func (b *BacktestState) Cleanup() error {
	_, err := b.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS equity_curve;
	`)
	if err != nil {
		return fmt.Errorf("failed to cleanup tables: %w", err)
	}

	return b.Initialize()
}

// Close releases the database.
func (b *BacktestState) Close() error {
	return b.db.Close()
}

func optionalFloat(v sql.NullFloat64) optional.Option[float64] {
	if v.Valid {
		return optional.Some(v.Float64)
	}

	return optional.None[float64]()
}

func optionalTime(v sql.NullTime) optional.Option[time.Time] {
	if v.Valid {
		return optional.Some(v.Time)
	}

	return optional.None[time.Time]()
}
