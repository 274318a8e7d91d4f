package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gridworks-hq/trademate-backtest/internal/market"
	"github.com/gridworks-hq/trademate-backtest/internal/market/costmodel"
	"github.com/gridworks-hq/trademate-backtest/pkg/errors"
	"github.com/invopop/jsonschema"
)

// Default engine parameters. NSE cash session, T+1 settlement, and the
// standard -5%/+10% exit band.
const (
	defaultMarketOpen     = "09:15"
	defaultMarketClose    = "15:30"
	defaultSettlementDays = 1
	defaultStopLoss       = 0.05
	defaultTakeProfit     = 0.10
	defaultMinHistoryBars = 20
	dateLayout            = "2006-01-02"
)

// BacktestEngineV1Config is the immutable run configuration. Created once
// per run via Initialize and never mutated afterwards.
type BacktestEngineV1Config struct {
	StartDate      time.Time               `yaml:"start_date" json:"start_date" jsonschema:"title=Start Date,description=First calendar day of the run (YYYY-MM-DD)" validate:"required"`
	EndDate        time.Time               `yaml:"end_date" json:"end_date" jsonschema:"title=End Date,description=Last calendar day of the run (YYYY-MM-DD)" validate:"required"`
	InitialCapital float64                 `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting capital in INR,minimum=0" validate:"required,gt=0"`
	ExecutionModel market.ExecutionModel   `yaml:"execution_model" json:"execution_model" jsonschema:"title=Execution Model"`
	CostModel      costmodel.Model         `yaml:"cost_model" json:"cost_model" jsonschema:"title=Cost Model"`
	CostParams     costmodel.Params        `yaml:"cost_params" json:"cost_params" jsonschema:"title=Cost Parameters"`
	Slippage       market.SlippageConfig   `yaml:"slippage" json:"slippage" jsonschema:"title=Slippage Components"`
	BenchmarkSymbol string                 `yaml:"benchmark_symbol" json:"benchmark_symbol" jsonschema:"title=Benchmark Symbol"`
	RiskFreeRate   float64                 `yaml:"risk_free_rate" json:"risk_free_rate" jsonschema:"title=Risk Free Rate,description=Annualized risk-free rate used for Sharpe"`
	MarketOpen     string                  `yaml:"market_open" json:"market_open" jsonschema:"title=Market Open,description=Session open wall clock HH:MM"`
	MarketClose    string                  `yaml:"market_close" json:"market_close" jsonschema:"title=Market Close,description=Session close wall clock HH:MM"`
	SettlementDays int                     `yaml:"settlement_days" json:"settlement_days" jsonschema:"title=Settlement Days,minimum=0"`
	StopLoss       float64                 `yaml:"stop_loss" json:"stop_loss" jsonschema:"title=Stop Loss,description=Fractional adverse move that force-closes a position"`
	TakeProfit     float64                 `yaml:"take_profit" json:"take_profit" jsonschema:"title=Take Profit,description=Fractional favorable move that force-closes a position"`
	MinHistoryBars int                     `yaml:"min_history_bars" json:"min_history_bars" jsonschema:"title=Minimum History Bars,minimum=1"`
	Holidays       []string                `yaml:"holidays" json:"holidays" jsonschema:"title=Extra Holidays,description=Movable exchange holidays as YYYY-MM-DD dates"`
}

// UnmarshalYAML implements custom unmarshaling: dates come in as
// YYYY-MM-DD strings and unset fields pick up engine defaults.
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type rawConfig struct {
		StartDate       string                `yaml:"start_date"`
		EndDate         string                `yaml:"end_date"`
		InitialCapital  float64               `yaml:"initial_capital"`
		ExecutionModel  market.ExecutionModel `yaml:"execution_model"`
		CostModel       costmodel.Model       `yaml:"cost_model"`
		CostParams      costmodel.Params      `yaml:"cost_params"`
		Slippage        *market.SlippageConfig `yaml:"slippage"`
		BenchmarkSymbol string                `yaml:"benchmark_symbol"`
		RiskFreeRate    float64               `yaml:"risk_free_rate"`
		MarketOpen      string                `yaml:"market_open"`
		MarketClose     string                `yaml:"market_close"`
		SettlementDays  *int                  `yaml:"settlement_days"`
		StopLoss        float64               `yaml:"stop_loss"`
		TakeProfit      float64               `yaml:"take_profit"`
		MinHistoryBars  int                   `yaml:"min_history_bars"`
		Holidays        []string              `yaml:"holidays"`
	}

	var raw rawConfig
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if raw.StartDate != "" {
		start, err := time.Parse(dateLayout, raw.StartDate)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfig, err, "invalid start_date %q", raw.StartDate)
		}

		c.StartDate = start
	}

	if raw.EndDate != "" {
		end, err := time.Parse(dateLayout, raw.EndDate)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfig, err, "invalid end_date %q", raw.EndDate)
		}

		c.EndDate = end
	}

	c.InitialCapital = raw.InitialCapital
	c.ExecutionModel = raw.ExecutionModel
	c.CostModel = raw.CostModel
	c.CostParams = raw.CostParams
	c.BenchmarkSymbol = raw.BenchmarkSymbol
	c.RiskFreeRate = raw.RiskFreeRate
	c.MarketOpen = raw.MarketOpen
	c.MarketClose = raw.MarketClose
	c.StopLoss = raw.StopLoss
	c.TakeProfit = raw.TakeProfit
	c.MinHistoryBars = raw.MinHistoryBars
	c.Holidays = raw.Holidays

	if raw.SettlementDays != nil {
		c.SettlementDays = *raw.SettlementDays
	} else {
		c.SettlementDays = defaultSettlementDays
	}

	if c.ExecutionModel == "" {
		c.ExecutionModel = market.ExecutionRealistic
	}

	if c.CostModel == "" {
		c.CostModel = costmodel.ModelIndianRetail
	}

	if raw.Slippage != nil {
		c.Slippage = *raw.Slippage
	} else {
		c.Slippage = market.DefaultSlippage(c.ExecutionModel)
	}

	if c.MarketOpen == "" {
		c.MarketOpen = defaultMarketOpen
	}

	if c.MarketClose == "" {
		c.MarketClose = defaultMarketClose
	}

	if c.StopLoss == 0 {
		c.StopLoss = defaultStopLoss
	}

	if c.TakeProfit == 0 {
		c.TakeProfit = defaultTakeProfit
	}

	if c.MinHistoryBars == 0 {
		c.MinHistoryBars = defaultMinHistoryBars
	}

	return nil
}

// Validate rejects malformed configs before a run starts. A reversed date
// range would otherwise run zero days and return a vacuous result.
func (c *BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "invalid engine config", err)
	}

	if c.EndDate.Before(c.StartDate) {
		return errors.Newf(errors.ErrCodeInvalidDateRange,
			"end_date %s is before start_date %s",
			c.EndDate.Format(dateLayout), c.StartDate.Format(dateLayout))
	}

	return nil
}

// GenerateSchema generates a JSON schema for the engine configuration.
func (c *BacktestEngineV1Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Time{}) {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date",
				}
			}

			if strings.HasSuffix(t.String(), "costmodel.Model") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: costmodel.AllModels,
				}
			}

			if strings.HasSuffix(t.String(), "market.ExecutionModel") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: market.AllExecutionModels,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates the JSON schema as an indented string.
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a frictionless config for scenario tests: perfect
// execution, zero cost, no extra holidays.
func TestConfig(start time.Time, end time.Time, initialCapital float64) BacktestEngineV1Config {
	return BacktestEngineV1Config{
		StartDate:      start,
		EndDate:        end,
		InitialCapital: initialCapital,
		ExecutionModel: market.ExecutionPerfect,
		CostModel:      costmodel.ModelZero,
		Slippage:       market.DefaultSlippage(market.ExecutionPerfect),
		RiskFreeRate:   0.05,
		MarketOpen:     defaultMarketOpen,
		MarketClose:    defaultMarketClose,
		SettlementDays: defaultSettlementDays,
		StopLoss:       defaultStopLoss,
		TakeProfit:     defaultTakeProfit,
		MinHistoryBars: defaultMinHistoryBars,
	}
}
