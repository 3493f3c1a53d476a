// Package position implements the §4.K order-intent and exit-monitor
// logic: lot sizing, TP/SL placement, and the M5-based early-exit rule.
// At most one open position per (symbol, bot kind) is enforced by the
// Tracker map, mirroring trader/auto_trader.go's position-tracking map.
package position

import (
	"time"

	"barwatch/internal/bar"
	"barwatch/internal/botkind"
	"barwatch/internal/broker"
	"barwatch/internal/ema"
	"barwatch/internal/m1state"
)

// Open is one tracked open position.
type Open struct {
	Ticket     string
	Symbol     string
	BotKind    botkind.Kind
	Side       broker.Side
	EntryPrice float64
	EntryTime  time.Time
	LotSize    float64
	TakeProfit float64
	StopLoss   float64
}

type key struct {
	Symbol string
	Kind   botkind.Kind
}

// Tracker owns the at-most-one-per-(symbol,bot) open-position map.
type Tracker struct {
	open map[key]Open
}

func NewTracker() *Tracker {
	return &Tracker{open: make(map[key]Open)}
}

func (t *Tracker) Get(symbol string, kind botkind.Kind) (Open, bool) {
	o, ok := t.open[key{symbol, kind}]
	return o, ok
}

func (t *Tracker) Set(o Open) {
	t.open[key{o.Symbol, o.BotKind}] = o
}

func (t *Tracker) Remove(symbol string, kind botkind.Kind) {
	delete(t.open, key{symbol, kind})
}

// All returns every tracked open position.
func (t *Tracker) All() []Open {
	out := make([]Open, 0, len(t.open))
	for _, o := range t.open {
		out = append(out, o)
	}
	return out
}

// Count returns the number of open positions for symbol across all bots.
func (t *Tracker) Count(symbol string) int {
	n := 0
	for k := range t.open {
		if k.Symbol == symbol {
			n++
		}
	}
	return n
}

// SyncFromBroker purges tracked tickets no longer reported as open by the
// broker, per §4.K's "external sync" step.
func (t *Tracker) SyncFromBroker(symbol string, reported []broker.Position) {
	live := make(map[string]bool, len(reported))
	for _, p := range reported {
		live[p.Ticket] = true
	}
	for k, o := range t.open {
		if k.Symbol != symbol {
			continue
		}
		if !live[o.Ticket] {
			delete(t.open, k)
		}
	}
}

// SizeTP computes the fixed-USD take-profit distance in price terms from
// the trade's target and the contract's pip/contract sizing.
func SizeTP(targetUSD, lotSize, contractSize float64) float64 {
	if lotSize == 0 || contractSize == 0 {
		return 0
	}
	return targetUSD / (lotSize * contractSize)
}

// Intent is the computed entry the orchestrator submits to the broker.
type Intent struct {
	Symbol     string
	Kind       botkind.Kind
	Side       broker.Side
	LotSize    float64
	TakeProfit float64
	StopLoss   float64
}

// BuildIntent sizes TP at a fixed USD distance and SL at 3x that distance
// on the unfavorable side, per §4.K.
func BuildIntent(symbol string, kind botkind.Kind, price, targetUSD, lotSize, contractSize float64) Intent {
	tpDist := SizeTP(targetUSD, lotSize, contractSize)
	slDist := 3 * tpDist

	side := broker.Buy
	if kind.Side() == "SELL" {
		side = broker.Sell
	}

	var tp, sl float64
	if side == broker.Buy {
		tp = price + tpDist
		sl = price - slDist
	} else {
		tp = price - tpDist
		sl = price + slDist
	}

	return Intent{Symbol: symbol, Kind: kind, Side: side, LotSize: lotSize, TakeProfit: tp, StopLoss: sl}
}

// ShouldExit implements the M5 early-exit rule: BUY closes when price falls
// below the M5 short EMA, SELL closes when price rises above it.
func ShouldExit(side broker.Side, m5Close, m5ShortEMA float64) bool {
	if side == broker.Buy {
		return m5Close < m5ShortEMA
	}
	return m5Close > m5ShortEMA
}

// OnClosed resets the M1 entry state for (symbol) back to IDLE and removes
// the position from the tracker, the two housekeeping steps that must
// happen atomically on every close regardless of reason.
func OnClosed(t *Tracker, symbol string, kind botkind.Kind, m1 m1state.State) m1state.State {
	t.Remove(symbol, kind)
	return m1state.Reset(m1)
}

// LatestM5ShortEMA is a small helper the orchestrator uses to pull the newest
// closed M5 bar and its short EMA for the exit check.
func LatestM5ShortEMA(calc *ema.Calculator, symbol string, m5Bars []bar.Bar, purplePeriod int) (bar.Bar, float64, bool) {
	if len(m5Bars) == 0 {
		return bar.Bar{}, 0, false
	}
	last := m5Bars[len(m5Bars)-1]
	v, ok := calc.Last(symbol, bar.M5, purplePeriod, m5Bars)
	return last, v, ok
}
