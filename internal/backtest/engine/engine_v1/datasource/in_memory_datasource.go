package datasource

import (
	"sort"
	"time"

	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/gridworks-hq/trademate-backtest/pkg/errors"
	"github.com/moznion/go-optional"
)

// InMemoryDataSource serves bars supplied by the caller in-process. This is
// the path library users take when they already hold an OHLCV table.
type InMemoryDataSource struct {
	bars []types.MarketData
}

// NewInMemoryDataSource creates a data source over the given bars. The slice
// is copied and sorted by time.
func NewInMemoryDataSource(bars []types.MarketData) DataSource {
	sorted := make([]types.MarketData, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	return &InMemoryDataSource{bars: sorted}
}

// Initialize implements DataSource. In-memory sources carry their bars from
// construction, so a file path is a caller mistake.
func (d *InMemoryDataSource) Initialize(path string) error {
	if path != "" {
		return errors.New(errors.ErrCodeInvalidParameter, "in-memory data source cannot load from a path")
	}

	return nil
}

// ReadAll implements DataSource.
func (d *InMemoryDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		for _, bar := range d.bars {
			if start.IsSome() && bar.Time.Before(start.Unwrap()) {
				continue
			}

			if end.IsSome() && bar.Time.After(end.Unwrap()) {
				break
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// GetRange implements DataSource.
func (d *InMemoryDataSource) GetRange(start time.Time, end time.Time) ([]types.MarketData, error) {
	var out []types.MarketData

	for _, bar := range d.bars {
		if bar.Time.Before(start) {
			continue
		}

		if bar.Time.After(end) {
			break
		}

		out = append(out, bar)
	}

	return out, nil
}

// ReadLastData implements DataSource.
func (d *InMemoryDataSource) ReadLastData(symbol string) (types.MarketData, error) {
	for i := len(d.bars) - 1; i >= 0; i-- {
		if d.bars[i].Symbol == symbol {
			return d.bars[i], nil
		}
	}

	return types.MarketData{}, errors.Newf(errors.ErrCodeDataNotFound, "no bars for symbol %s", symbol)
}

// Count implements DataSource.
func (d *InMemoryDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, bar := range d.bars {
		if start.IsSome() && bar.Time.Before(start.Unwrap()) {
			continue
		}

		if end.IsSome() && bar.Time.After(end.Unwrap()) {
			break
		}

		count++
	}

	return count, nil
}

// Close implements DataSource.
func (d *InMemoryDataSource) Close() error {
	return nil
}
