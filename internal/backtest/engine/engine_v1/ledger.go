package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/gridworks-hq/trademate-backtest/internal/types"
	"github.com/gridworks-hq/trademate-backtest/pkg/errors"
	"github.com/moznion/go-optional"
)

// Fill is one execution applied to the ledger. Quantity is always positive;
// direction comes from Side. Price is the simulated fill price with slippage
// already embedded. Cost is the transaction cost of this leg and
// SlippageCost the slippage already scaled by quantity, recorded on the
// trade for reporting.
type Fill struct {
	Symbol       string
	StrategyName string
	Side         types.Side
	Quantity     float64
	Price        float64
	Cost         float64
	SlippageCost float64
	Tag          types.TradeTag
	At           time.Time
}

// Ledger is the single mutable run state: cash, open positions, the trade
// list and the equity curve. It has exactly one owner (the engine) and no
// external aliasing, which keeps the accounting identity
//
//	cash + sum(position market value) == equity
//
// trivially checkable at every equity point.
type Ledger struct {
	cash        float64
	positions   map[string]*types.Position
	trades      []types.Trade
	equityCurve []types.EquityPoint
}

// NewLedger creates a ledger holding only cash.
func NewLedger(initialCapital float64) *Ledger {
	return &Ledger{
		cash:        initialCapital,
		positions:   make(map[string]*types.Position),
		trades:      nil,
		equityCurve: nil,
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// Position returns a copy of the open position for symbol.
func (l *Ledger) Position(symbol string) (types.Position, bool) {
	p, ok := l.positions[symbol]
	if !ok {
		return types.Position{}, false
	}

	return *p, true
}

// Positions returns copies of all open positions.
func (l *Ledger) Positions() []types.Position {
	out := make([]types.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}

	return out
}

// OpenSymbols returns the symbols with open positions.
func (l *Ledger) OpenSymbols() []string {
	out := make([]string, 0, len(l.positions))
	for symbol := range l.positions {
		out = append(out, symbol)
	}

	return out
}

// Trades returns the recorded trades in execution order.
func (l *Ledger) Trades() []types.Trade {
	return l.trades
}

// EquityCurve returns the equity points recorded so far.
func (l *Ledger) EquityCurve() []types.EquityPoint {
	return l.equityCurve
}

// PositionsValue sums the mark-to-market value of all open positions.
func (l *Ledger) PositionsValue() float64 {
	var total float64
	for _, p := range l.positions {
		total += p.MarketValue
	}

	return total
}

// Equity is cash plus positions value.
func (l *Ledger) Equity() float64 {
	return l.cash + l.PositionsValue()
}

// ApplyFill mutates cash, upserts the position and records trade rows.
//
// Entry fees fold into the position's average cost (buys raise it, short
// entries lower it), so a closing trade's PnL nets out both legs' costs
// without tracking the entry cost separately. A fill that reverses through
// zero produces two trade rows: one realizing the close, one opening the
// remainder.
func (l *Ledger) ApplyFill(fill Fill) ([]types.Trade, error) {
	if fill.Quantity <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidQuantity, "fill quantity must be positive, got %f", fill.Quantity)
	}

	if fill.Price <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "fill price must be positive, got %f", fill.Price)
	}

	// Cash moves by the full notional plus costs regardless of how the
	// fill splits into close/open parts.
	if fill.Side == types.SideBuy {
		l.cash -= fill.Quantity*fill.Price + fill.Cost
	} else {
		l.cash += fill.Quantity*fill.Price - fill.Cost
	}

	pos, exists := l.positions[fill.Symbol]
	if !exists {
		trade := l.openPosition(fill, fill.Quantity, fill.Cost, fill.SlippageCost)

		return []types.Trade{trade}, nil
	}

	sameDirection := (fill.Side == types.SideBuy) == pos.IsLong()
	if sameDirection {
		trade := l.increasePosition(pos, fill, fill.Quantity, fill.Cost, fill.SlippageCost)

		return []types.Trade{trade}, nil
	}

	held := abs(pos.Quantity)
	closeQty := min(fill.Quantity, held)
	costPerUnit := fill.Cost / fill.Quantity
	slipPerUnit := fill.SlippageCost / fill.Quantity

	var out []types.Trade
	out = append(out, l.reducePosition(pos, fill, closeQty, closeQty*costPerUnit, closeQty*slipPerUnit))

	if remainder := fill.Quantity - closeQty; remainder > 0 {
		out = append(out, l.openPosition(fill, remainder, remainder*costPerUnit, remainder*slipPerUnit))
	}

	return out, nil
}

func (l *Ledger) openPosition(fill Fill, qty float64, cost float64, slippage float64) types.Trade {
	signedQty := qty
	// Entry fee folds into average cost: a buy pays it on top, a short
	// collects that much less.
	avgCost := fill.Price + cost/qty

	if fill.Side == types.SideSell {
		signedQty = -qty
		avgCost = fill.Price - cost/qty
	}

	l.positions[fill.Symbol] = &types.Position{
		Symbol:       fill.Symbol,
		Quantity:     signedQty,
		AvgCost:      avgCost,
		MarketValue:  signedQty * fill.Price,
		OpenedAt:     fill.At,
		UpdatedAt:    fill.At,
		StrategyName: fill.StrategyName,
	}
	l.positions[fill.Symbol].Mark(fill.Price, fill.At)

	return l.recordEntryTrade(fill, signedQty, cost, slippage)
}

func (l *Ledger) increasePosition(pos *types.Position, fill Fill, qty float64, cost float64, slippage float64) types.Trade {
	signedQty := qty
	fillAvg := fill.Price + cost/qty

	if fill.Side == types.SideSell {
		signedQty = -qty
		fillAvg = fill.Price - cost/qty
	}

	oldAbs := abs(pos.Quantity)
	newAbs := oldAbs + qty
	pos.AvgCost = (pos.AvgCost*oldAbs + fillAvg*qty) / newAbs
	pos.Quantity += signedQty
	pos.Mark(fill.Price, fill.At)

	return l.recordEntryTrade(fill, signedQty, cost, slippage)
}

func (l *Ledger) reducePosition(pos *types.Position, fill Fill, qty float64, cost float64, slippage float64) types.Trade {
	pnl := pos.RealizedPnL(qty, fill.Price) - cost

	signedQty := -qty
	if !pos.IsLong() {
		signedQty = qty
	}

	pos.Quantity += signedQty
	if pos.Quantity == 0 {
		delete(l.positions, fill.Symbol)
	} else {
		pos.Mark(fill.Price, fill.At)
	}

	trade := types.Trade{
		ID:           uuid.New().String(),
		StrategyName: fill.StrategyName,
		Symbol:       fill.Symbol,
		Side:         fill.Side,
		Quantity:     signedQty,
		EntryPrice:   fill.Price,
		ExitPrice:    optional.Some(fill.Price),
		ExitTime:     optional.Some(fill.At),
		PnL:          optional.Some(pnl),
		Commission:   cost,
		Slippage:     slippage,
		Tag:          fill.Tag,
		ExecutedAt:   fill.At,
	}
	l.trades = append(l.trades, trade)

	return trade
}

func (l *Ledger) recordEntryTrade(fill Fill, signedQty float64, cost float64, slippage float64) types.Trade {
	trade := types.Trade{
		ID:           uuid.New().String(),
		StrategyName: fill.StrategyName,
		Symbol:       fill.Symbol,
		Side:         fill.Side,
		Quantity:     signedQty,
		EntryPrice:   fill.Price,
		ExitPrice:    optional.None[float64](),
		ExitTime:     optional.None[time.Time](),
		PnL:          optional.None[float64](),
		Commission:   cost,
		Slippage:     slippage,
		Tag:          fill.Tag,
		ExecutedAt:   fill.At,
	}
	l.trades = append(l.trades, trade)

	return trade
}

// MarkPositions revalues open positions against the day's closing prices.
// Symbols with no close today keep their previous mark.
func (l *Ledger) MarkPositions(closes map[string]float64, at time.Time) {
	for symbol, pos := range l.positions {
		if price, ok := closes[symbol]; ok {
			pos.Mark(price, at)
		}
	}
}

// AppendEquityPoint records one equity-curve entry for the given calendar
// date and returns it. The daily return is relative to the previous point
// and zero for the first one.
func (l *Ledger) AppendEquityPoint(date time.Time) types.EquityPoint {
	point := types.EquityPoint{
		Date:           date,
		Cash:           l.cash,
		PositionsValue: l.PositionsValue(),
	}
	point.Equity = point.Cash + point.PositionsValue

	if n := len(l.equityCurve); n > 0 && l.equityCurve[n-1].Equity != 0 {
		prev := l.equityCurve[n-1].Equity
		point.DailyReturn = (point.Equity - prev) / prev
	}

	l.equityCurve = append(l.equityCurve, point)

	return point
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
