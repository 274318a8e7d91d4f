package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gridworks-hq/trademate-backtest/internal/backtest/engine"
	enginev1 "github.com/gridworks-hq/trademate-backtest/internal/backtest/engine/engine_v1"
	"github.com/gridworks-hq/trademate-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/gridworks-hq/trademate-backtest/internal/logger"
	"github.com/gridworks-hq/trademate-backtest/internal/strategy"
	"github.com/gridworks-hq/trademate-backtest/internal/version"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

func buildStrategy(name string) (strategy.Strategy, error) {
	// Zero parameters pick up the strategy defaults during Initialize.
	switch name {
	case "sma_momentum":
		return strategy.NewSMAMomentum(0, 0, 0), nil
	case "mean_reversion":
		return strategy.NewMeanReversion(0, 0, 0), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want sma_momentum or mean_reversion)", name)
	}
}

// runAction wires config, data source, and strategy into one engine run with
// a progress bar on the day loop.
func runAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	dataPath := cmd.String("data")
	outputPath := cmd.String("output")
	strategyName := cmd.String("strategy")
	strategyConfigPath := cmd.String("strategy-config")

	config, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	strategyConfig := ""

	if strategyConfigPath != "" {
		raw, err := os.ReadFile(strategyConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read strategy config: %w", err)
		}

		strategyConfig = string(raw)
	}

	strat, err := buildStrategy(strategyName)
	if err != nil {
		return err
	}

	if err := strat.Initialize(strategyConfig); err != nil {
		return fmt.Errorf("failed to initialize strategy: %w", err)
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	source, err := datasource.NewDuckDBDataSource(log)
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}
	defer source.Close()

	if err := source.Initialize(dataPath); err != nil {
		return fmt.Errorf("failed to load market data from %s: %w", dataPath, err)
	}

	backtester, err := enginev1.NewBacktestEngineV1()
	if err != nil {
		return err
	}

	if err := backtester.Initialize(string(config)); err != nil {
		return err
	}

	if err := backtester.LoadStrategy(strat); err != nil {
		return err
	}

	if err := backtester.SetDataSource(source); err != nil {
		return err
	}

	if err := backtester.SetResultsFolder(outputPath); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	result, err := backtester.Run(ctx, engine.LifecycleCallbacks{
		OnRunStart: func(runID string, totalDays int) error {
			bar = progressbar.Default(int64(totalDays))
			bar.Describe(fmt.Sprintf("Backtesting %s with %s", dataPath, strat.Name()))

			return nil
		},
		OnProcessData: func(current int, total int) error {
			if bar != nil {
				return bar.Set(current)
			}

			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	fmt.Printf("\nRun %s finished: final capital %.2f (%.2f%% total return), %d trades, Sharpe %.2f\n",
		result.ID, result.FinalCapital, result.TotalReturn*100,
		result.Summary.TotalTrades, result.Risk.SharpeRatio)
	fmt.Printf("Results written to %s/%s\n", outputPath, result.ID)

	return nil
}

// schemaAction prints the engine config JSON schema.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	backtester, err := enginev1.NewBacktestEngineV1()
	if err != nil {
		return err
	}

	schema, err := backtester.GetConfigSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Run equity backtests with Indian-market cost and slippage simulation",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run one backtest over a parquet or CSV bar file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the engine YAML config",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to daily OHLCV bars (parquet or CSV)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Results folder",
						Value:   "./results",
					},
					&cli.StringFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Usage:   "Strategy to run (sma_momentum or mean_reversion)",
						Value:   "sma_momentum",
					},
					&cli.StringFlag{
						Name:  "strategy-config",
						Usage: "Path to the strategy YAML config",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the engine config JSON schema",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
