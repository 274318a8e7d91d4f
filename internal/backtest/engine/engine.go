// Package engine defines the backtest engine interface and its lifecycle
// callbacks.
package engine

import (
	"context"

	"github.com/gridworks-hq/trademate-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/gridworks-hq/trademate-backtest/internal/strategy"
	"github.com/gridworks-hq/trademate-backtest/internal/types"
)

// OnRunStartCallback is called once before the day loop starts. Returning an
// error aborts the run.
type OnRunStartCallback func(runID string, totalDays int) error

// OnProcessDataCallback is called after every processed calendar day.
// Returning an error aborts the run.
type OnProcessDataCallback func(current int, total int) error

// OnRunEndCallback is called after the run finishes, successfully or not.
type OnRunEndCallback func(runID string, err error)

// LifecycleCallbacks holds optional hooks into the run. Nil fields are
// skipped.
type LifecycleCallbacks struct {
	OnRunStart    OnRunStartCallback
	OnProcessData OnProcessDataCallback
	OnRunEnd      OnRunEndCallback
}

// Engine drives one backtest run over one data source.
type Engine interface {
	// Initialize parses and validates the YAML engine configuration.
	Initialize(config string) error
	// LoadStrategy registers a strategy. May be called multiple times; all
	// registered strategies run on every trading day.
	LoadStrategy(s strategy.Strategy) error
	// SetDataSource sets the market data source for the run.
	SetDataSource(ds datasource.DataSource) error
	// SetResultsFolder sets the output directory. When empty, nothing is
	// written to disk and the result is only returned in-process.
	SetResultsFolder(folder string) error
	// Run executes the day loop and returns the terminal result. The
	// context is checked between days; cancellation aborts the run.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (types.BacktestResult, error)
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
