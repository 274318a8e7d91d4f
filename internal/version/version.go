package version

// Version is the current version of the trademate-backtest library.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/gridworks-hq/trademate-backtest/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// ResultsSchemaVersion is stamped into every BacktestResult so downstream
// readers can check compatibility before trusting the shape.
const ResultsSchemaVersion = "1.0.0"

// GetVersion returns the current version of the library.
func GetVersion() string {
	return Version
}
