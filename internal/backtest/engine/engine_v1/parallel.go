package engine

import (
	"context"
	"runtime"
	"sync"

	"github.com/gridworks-hq/trademate-backtest/internal/backtest/engine"
	"github.com/gridworks-hq/trademate-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/gridworks-hq/trademate-backtest/internal/strategy"
	"github.com/gridworks-hq/trademate-backtest/internal/types"
)

// RunSpec is one independent backtest: its own config, strategies, and data
// source. Specs must not share strategy or data source instances, because
// each run mutates them from its own goroutine.
type RunSpec struct {
	Name          string
	Config        BacktestEngineV1Config
	Strategies    []strategy.Strategy
	DataSource    datasource.DataSource
	ResultsFolder string
}

// RunOutcome pairs a spec name with its result or error.
type RunOutcome struct {
	Name   string
	Result types.BacktestResult
	Err    error
}

// RunParallel executes independent backtests over a worker pool. Each worker
// owns a private engine instance, so no ledger is ever touched by two
// goroutines. Outcomes are returned in spec order. workers <= 0 defaults to
// GOMAXPROCS.
func RunParallel(ctx context.Context, specs []RunSpec, workers int) []RunOutcome {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	if workers > len(specs) {
		workers = len(specs)
	}

	outcomes := make([]RunOutcome, len(specs))
	jobs := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				outcomes[i] = runOne(ctx, specs[i])
			}
		}()
	}

	for i := range specs {
		jobs <- i
	}

	close(jobs)
	wg.Wait()

	return outcomes
}

func runOne(ctx context.Context, spec RunSpec) RunOutcome {
	outcome := RunOutcome{Name: spec.Name}

	eng, err := NewBacktestEngineV1()
	if err != nil {
		outcome.Err = err
		return outcome
	}

	if err := eng.InitializeWithConfig(spec.Config); err != nil {
		outcome.Err = err
		return outcome
	}

	for _, s := range spec.Strategies {
		if err := eng.LoadStrategy(s); err != nil {
			outcome.Err = err
			return outcome
		}
	}

	if err := eng.SetDataSource(spec.DataSource); err != nil {
		outcome.Err = err
		return outcome
	}

	if spec.ResultsFolder != "" {
		if err := eng.SetResultsFolder(spec.ResultsFolder); err != nil {
			outcome.Err = err
			return outcome
		}
	}

	outcome.Result, outcome.Err = eng.Run(ctx, engine.LifecycleCallbacks{})

	return outcome
}
