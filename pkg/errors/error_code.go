package errors

// ErrorCode is a typed numeric code identifying an error category.
type ErrorCode int

// General errors (1-99).
const (
	// ErrCodeUnknown is the fallback for uncategorized errors.
	ErrCodeUnknown ErrorCode = 1
)

// Validation errors (100-199).
const (
	ErrCodeInvalidParameter ErrorCode = 100 + iota
	ErrCodeInvalidConfig
	ErrCodeInvalidDateRange
	ErrCodeInvalidSignal
	ErrCodeInvalidQuantity
)

// Data errors (200-299).
const (
	ErrCodeDataNotFound ErrorCode = 200 + iota
	ErrCodeQueryFailed
	ErrCodeInsufficientHistory
)

// Strategy errors (400-499).
const (
	ErrCodeStrategyNotLoaded ErrorCode = 400 + iota
	ErrCodeStrategyPanic
)

// Trading errors (500-599).
const (
	ErrCodeInsufficientCapital ErrorCode = 500 + iota
	ErrCodePositionNotFound
	ErrCodeUnknownCostModel
	ErrCodeUnknownExecutionModel
)

// Backtest errors (600-699).
const (
	ErrCodeStateFailure ErrorCode = 600 + iota
	ErrCodeRunAborted
)
