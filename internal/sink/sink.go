// Package sink defines the event observation stream the engine emits to —
// status updates, executed/closed trades, and errors — per §6.
package sink

import (
	"context"
	"time"
)

type Kind string

const (
	BotStatus      Kind = "bot_status"
	TradeExecuted  Kind = "trade_executed"
	TradeClosed    Kind = "trade_closed"
	HistoricalData Kind = "historical_data"
	TradeHistory   Kind = "trade_history"
	Error          Kind = "error"
)

// Event is one observation. Payload is kind-specific; sinks that don't
// understand a payload shape should still forward or log it, never panic.
type Event struct {
	Kind      Kind
	Symbol    string
	Timestamp time.Time
	Payload   any
}

// StatusPayload is the Payload shape for BotStatus events — every sink
// that reads bot status fields (metricsink, storesink) type-asserts to
// this single shared shape rather than each declaring its own.
type StatusPayload struct {
	BotKind string
	Ready   bool
	Reasons []Reason
}

// Reason mirrors internal/botkind.Reason without importing the decision
// core from this leaf package — sink is a dependency of the core's
// observers, never the other way around.
type Reason struct {
	Pass   bool
	Text   string
	Detail string
}

// ExecutedPayload is the Payload shape for TradeExecuted events.
type ExecutedPayload struct {
	TradeID    string
	BotKind    string
	Side       string
	EntryPrice float64
	LotSize    float64
	TakeProfit float64
	StopLoss   float64
	EntryTime  time.Time
}

// ClosedPayload is the Payload shape for TradeClosed events.
type ClosedPayload struct {
	TradeID   string
	BotKind   string
	ExitPrice float64
	ExitTime  time.Time
	Pnl       float64
	Reason    string
}

// Sink receives events. Delivery is best-effort: Emit returns nothing, so
// each sink handles its own delivery failures and one broken fan-out
// target never blocks the orchestrator.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// Multi fans a single event out to every member sink.
type Multi struct {
	Sinks []Sink
}

func (m Multi) Emit(ctx context.Context, ev Event) {
	for _, s := range m.Sinks {
		s.Emit(ctx, ev)
	}
}
