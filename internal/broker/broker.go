// Package broker defines the venue-agnostic gateway interface the decision
// core depends on. Concrete adapters (binancefutures, alpaca, sim) live in
// subpackages; the core never imports them directly.
package broker

import (
	"context"

	"barwatch/internal/bar"
)

// Tick is a single best-bid/best-ask quote.
type Tick struct {
	Symbol string
	Bid    float64
	Ask    float64
}

// Spread returns the bid-ask spread in price terms.
func (t Tick) Spread() float64 { return t.Ask - t.Bid }

// SymbolInfo carries the venue's contract metadata for a symbol.
type SymbolInfo struct {
	Symbol       string
	PipSize      float64
	ContractSize float64
	MinLot       float64
}

// AccountInfo is the broker-reported account snapshot used by the risk
// gates' health check.
type AccountInfo struct {
	Equity     float64
	FreeMargin float64
	Currency   string
}

// Side is BUY or SELL.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Position is one broker-reported open position.
type Position struct {
	Ticket     string
	Symbol     string
	Side       Side
	EntryPrice float64
	LotSize    float64
	OpenTime   int64 // unix seconds
	StopLoss   float64
	TakeProfit float64
}

// OrderRequest describes a market entry with bracket TP/SL.
type OrderRequest struct {
	Symbol     string
	Side       Side
	LotSize    float64
	TakeProfit float64
	StopLoss   float64
	ClientTag  string // correlates a fill back to (symbol, bot kind)
}

// OrderResult is the broker's response to a successful PlaceOrder.
type OrderResult struct {
	Ticket     string
	FillPrice  float64
	FilledTime int64
}

// CloseRequest identifies a position to close.
type CloseRequest struct {
	Ticket string
	Symbol string
	Reason string
}

// CloseResult is the broker's response to a successful ClosePosition.
type CloseResult struct {
	ExitPrice float64
	ClosedAt  int64
	Pnl       float64
}

// Broker is the only interface the decision core depends on. Every method
// takes a context so a slow or hung venue call can be cancelled by the
// orchestrator's per-cycle timeout.
type Broker interface {
	Connect(ctx context.Context) error
	GetTick(ctx context.Context, symbol string) (Tick, error)
	GetBars(ctx context.Context, symbol string, tf bar.Timeframe, count int) ([]bar.Bar, error)
	GetSymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error)
	GetAccountInfo(ctx context.Context) (AccountInfo, error)
	GetOpenPositions(ctx context.Context, symbol string) ([]Position, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	ClosePosition(ctx context.Context, req CloseRequest) (CloseResult, error)
}
