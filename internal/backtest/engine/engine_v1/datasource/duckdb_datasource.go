package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/gridworks-hq/trademate-backtest/internal/logger"
	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/gridworks-hq/trademate-backtest/pkg/errors"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

// barColumns is the column list every query selects, in scan order.
const barColumns = "symbol, time, open, high, low, close, volume, avg_daily_volume"

// DuckDBDataSource reads daily bars from parquet or CSV files through an
// in-memory DuckDB view.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBDataSource opens an in-memory DuckDB instance. Initialize() must
// be called before any reads.
func NewDuckDBDataSource(log *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize implements DataSource. The file must carry symbol, time and
// OHLCV columns; avg_daily_volume is optional and defaults to zero.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	var reader string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		reader = fmt.Sprintf(`read_parquet('%s')`, path)
	case ".csv":
		reader = fmt.Sprintf(`read_csv_auto('%s')`, path)
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unsupported market data file type: %s", path)
	}

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS bars_raw; DROP VIEW IF EXISTS bars;`); err != nil {
		return fmt.Errorf("failed to drop existing views: %w", err)
	}

	if _, err := d.db.Exec(fmt.Sprintf(`CREATE VIEW bars_raw AS SELECT * FROM %s`, reader)); err != nil {
		return fmt.Errorf("failed to create raw view: %w", err)
	}

	hasADV, err := d.hasColumn("bars_raw", "avg_daily_volume")
	if err != nil {
		return err
	}

	advExpr := "0.0 AS avg_daily_volume"
	if hasADV {
		advExpr = "avg_daily_volume"
	}

	query := fmt.Sprintf(`
		CREATE VIEW bars AS
		SELECT symbol, time, open, high, low, close, volume, %s
		FROM bars_raw
	`, advExpr)

	if _, err := d.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create bars view: %w", err)
	}

	return nil
}

func (d *DuckDBDataSource) hasColumn(table string, column string) (bool, error) {
	var count int

	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM information_schema.columns WHERE table_name = ? AND column_name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect columns: %w", err)
	}

	return count > 0, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		query := d.sq.
			Select(barColumns).
			From("bars").
			OrderBy("time ASC")

		if start.IsSome() {
			query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
		}

		if end.IsSome() {
			query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
		}

		rows, err := query.RunWith(d.db).Query()
		if err != nil {
			yield(types.MarketData{}, fmt.Errorf("failed to query bars: %w", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			bar, err := scanBar(rows)
			if err != nil {
				yield(types.MarketData{}, err)

				return
			}

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.MarketData{}, fmt.Errorf("error iterating bars: %w", err))
		}
	}
}

// GetRange implements DataSource.
func (d *DuckDBDataSource) GetRange(start time.Time, end time.Time) ([]types.MarketData, error) {
	rows, err := d.sq.
		Select(barColumns).
		From("bars").
		Where(squirrel.GtOrEq{"time": start}).
		Where(squirrel.LtOrEq{"time": end}).
		OrderBy("time ASC").
		RunWith(d.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query bar range: %w", err)
	}
	defer rows.Close()

	var bars []types.MarketData

	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bar range: %w", err)
	}

	return bars, nil
}

// ReadLastData implements DataSource.
func (d *DuckDBDataSource) ReadLastData(symbol string) (types.MarketData, error) {
	row := d.sq.
		Select(barColumns).
		From("bars").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("time DESC").
		Limit(1).
		RunWith(d.db).
		QueryRow()

	bar, err := scanBarRow(row)
	if err == sql.ErrNoRows {
		return types.MarketData{}, errors.Newf(errors.ErrCodeDataNotFound, "no bars for symbol %s", symbol)
	}

	if err != nil {
		return types.MarketData{}, err
	}

	return bar, nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query := d.sq.
		Select("COUNT(*)").
		From("bars")

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	var count int
	if err := query.RunWith(d.db).QueryRow().Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bars: %w", err)
	}

	return count, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBar(rows *sql.Rows) (types.MarketData, error) {
	return scanBarRow(rows)
}

func scanBarRow(row rowScanner) (types.MarketData, error) {
	var bar types.MarketData

	err := row.Scan(
		&bar.Symbol,
		&bar.Time,
		&bar.Open,
		&bar.High,
		&bar.Low,
		&bar.Close,
		&bar.Volume,
		&bar.AvgDailyVolume,
	)
	if err == sql.ErrNoRows {
		return types.MarketData{}, err
	}

	if err != nil {
		return types.MarketData{}, fmt.Errorf("failed to scan bar: %w", err)
	}

	return bar, nil
}
