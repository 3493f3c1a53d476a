package engine

import (
	"time"

	"barwatch/internal/bar"
	"barwatch/internal/bias"
	"barwatch/internal/botkind"
	"barwatch/internal/m1state"
	"barwatch/internal/m30break"
)

// barCache holds the raw M1 window fetched from the broker plus the time
// it was fetched, enforcing the §4.L 60-second freshness window before a
// refetch. Every higher timeframe is derived from this window fresh each
// cycle via internal/resample — a pure function of the M1 slice — so no
// separate per-timeframe cache is needed beyond this one freshness gate.
type barCache struct {
	m1        []bar.Bar
	fetchedAt time.Time
}

func (c barCache) fresh(now time.Time, ttl time.Duration) bool {
	return !c.fetchedAt.IsZero() && now.Sub(c.fetchedAt) < ttl
}

// symbolState is every piece of per-symbol memory EngineState owns, per
// §3's "Symbol state" data model and §9's "concentrate them in a single
// EngineState value" note. Nothing here is read or written by anything
// but the orchestrator.
type symbolState struct {
	bars barCache

	m30Break    m30break.State
	m30LastTime time.Time // StartTime of the last M30 bar folded into m30Break
	m30SeqCount int       // monotonic bar count, stable across window slides

	m1FSM      m1state.State
	m1LastTime time.Time // StartTime of the last M1 bar folded into m1FSM
	m1SeqCount int       // monotonic bar count, stable across window slides

	haveBias bool
	biasDay  time.Time
	biasVal  bias.Bias

	haltedDay    time.Time
	painSellHalt bool

	// pnlDay anchors dailyProfit/dailyLoss to a trading day; the two
	// accumulate separately and never net against each other, matching the
	// original's record_trade_result (profit_usd > 0 adds to profit, else
	// abs(profit_usd) adds to loss) rather than a single running total.
	pnlDay      time.Time
	dailyProfit float64
	dailyLoss   float64
}

// recordTradeResult folds one closed trade's P/L into the day's separate
// profit/loss accumulators, resetting both on a trading-day rollover.
func (s *symbolState) recordTradeResult(day time.Time, pnl float64) {
	if !s.pnlDay.Equal(day) {
		s.pnlDay = day
		s.dailyProfit = 0
		s.dailyLoss = 0
	}
	if pnl > 0 {
		s.dailyProfit += pnl
	} else {
		s.dailyLoss += -pnl
	}
}

// resetForNewTradingDay clears the per-day caches on a trading-day
// rollover: the bias is stale and a HALTED PAIN-SELL must be eligible for
// READY again the next day, per invariant 2 of §3.
func (s *symbolState) resetForNewTradingDay(day time.Time) {
	s.haveBias = false
	s.painSellHalt = false
	s.haltedDay = day
	s.pnlDay = day
	s.dailyProfit = 0
	s.dailyLoss = 0
}

// EngineState is the orchestrator-owned map of per-symbol state (M1 bar
// window, break latch, M1 FSM, bias, halt and P/L), passed by reference
// into the pipeline functions but mutated only by the orchestrator. The
// EMA calculator and the open-position tracker (which provides the
// at-most-one-open-position-per-(symbol,bot) invariant) are held on
// Engine, not here.
type EngineState struct {
	symbols map[string]*symbolState
}

func newEngineState() *EngineState {
	return &EngineState{symbols: make(map[string]*symbolState)}
}

func (s *EngineState) get(symbol string) *symbolState {
	st, ok := s.symbols[symbol]
	if !ok {
		st = &symbolState{}
		s.symbols[symbol] = st
	}
	return st
}

// botHalted reports whether kind is currently halted for symbol. Only
// PAIN-SELL halts today (§4.D's day-stop); every other kind is never
// halted.
func (s *symbolState) botHalted(kind botkind.Kind) bool {
	return kind == botkind.PainSell && s.painSellHalt
}
