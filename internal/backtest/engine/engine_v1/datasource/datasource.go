// Package datasource supplies daily OHLCV bars to the backtest engine,
// either from parquet/CSV files through DuckDB or from bars already in
// memory.
package datasource

import (
	"time"

	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/moznion/go-optional"
)

// DataSource abstracts where daily bars come from.
type DataSource interface {
	// Initialize loads market data from the given parquet or CSV path.
	Initialize(path string) error
	// ReadAll yields all bars ordered by time, optionally bounded.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool)
	// GetRange returns the bars between start and end inclusive, ordered by
	// time.
	GetRange(start time.Time, end time.Time) ([]types.MarketData, error)
	// ReadLastData returns the most recent bar for a symbol.
	ReadLastData(symbol string) (types.MarketData, error)
	// Count returns the number of bars, optionally bounded.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close releases any resources held by the data source.
	Close() error
}
