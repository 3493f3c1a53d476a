// Package sim is an in-memory broker.Broker used by internal/engine's
// integration tests, filling the role a live exchange would in the
// teacher's own broker tests.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"barwatch/internal/bar"
	"barwatch/internal/broker"
)

// Adapter is a deterministic in-memory broker: bars are preloaded per
// (symbol, timeframe), orders fill at a fixed price, positions are tracked
// in a map.
type Adapter struct {
	mu        sync.Mutex
	bars      map[string]map[bar.Timeframe][]bar.Bar
	ticks     map[string]broker.Tick
	account   broker.AccountInfo
	positions map[string]broker.Position
	nextID    int
}

// New builds an empty simulated broker with a healthy account.
func New() *Adapter {
	return &Adapter{
		bars:      make(map[string]map[bar.Timeframe][]bar.Bar),
		ticks:     make(map[string]broker.Tick),
		account:   broker.AccountInfo{Equity: 100000, FreeMargin: 100000, Currency: "USD"},
		positions: make(map[string]broker.Position),
	}
}

// SetBars installs the bar series returned by GetBars for (symbol, tf).
func (a *Adapter) SetBars(symbol string, tf bar.Timeframe, bars []bar.Bar) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bars[symbol] == nil {
		a.bars[symbol] = make(map[bar.Timeframe][]bar.Bar)
	}
	a.bars[symbol][tf] = bars
}

// SetTick installs the tick returned by GetTick for symbol.
func (a *Adapter) SetTick(symbol string, t broker.Tick) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ticks[symbol] = t
}

func (a *Adapter) Connect(ctx context.Context) error { return nil }

func (a *Adapter) GetTick(ctx context.Context, symbol string) (broker.Tick, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.ticks[symbol]
	if !ok {
		return broker.Tick{}, fmt.Errorf("sim: no tick for %s", symbol)
	}
	return t, nil
}

func (a *Adapter) GetBars(ctx context.Context, symbol string, tf bar.Timeframe, count int) ([]bar.Bar, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	series := a.bars[symbol][tf]
	if len(series) <= count {
		return append([]bar.Bar(nil), series...), nil
	}
	return append([]bar.Bar(nil), series[len(series)-count:]...), nil
}

func (a *Adapter) GetSymbolInfo(ctx context.Context, symbol string) (broker.SymbolInfo, error) {
	return broker.SymbolInfo{Symbol: symbol, PipSize: 0.0001, ContractSize: 100000, MinLot: 0.01}, nil
}

func (a *Adapter) GetAccountInfo(ctx context.Context) (broker.AccountInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.account, nil
}

// SetAccountInfo overrides the account snapshot, used by tests that
// exercise the risk gates' health check.
func (a *Adapter) SetAccountInfo(acc broker.AccountInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.account = acc
}

func (a *Adapter) GetOpenPositions(ctx context.Context, symbol string) ([]broker.Position, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []broker.Position
	for _, p := range a.positions {
		if symbol == "" || p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.ticks[req.Symbol]
	if !ok {
		return broker.OrderResult{}, fmt.Errorf("sim: no tick for %s", req.Symbol)
	}
	fill := t.Ask
	if req.Side == broker.Sell {
		fill = t.Bid
	}
	a.nextID++
	ticket := fmt.Sprintf("sim-%d", a.nextID)
	a.positions[ticket] = broker.Position{
		Ticket: ticket, Symbol: req.Symbol, Side: req.Side,
		EntryPrice: fill, LotSize: req.LotSize, OpenTime: time.Now().Unix(),
		StopLoss: req.StopLoss, TakeProfit: req.TakeProfit,
	}
	return broker.OrderResult{Ticket: ticket, FillPrice: fill, FilledTime: time.Now().Unix()}, nil
}

func (a *Adapter) ClosePosition(ctx context.Context, req broker.CloseRequest) (broker.CloseResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pos, ok := a.positions[req.Ticket]
	if !ok {
		return broker.CloseResult{}, fmt.Errorf("sim: no open position %s", req.Ticket)
	}
	t := a.ticks[pos.Symbol]
	exit := t.Bid
	if pos.Side == broker.Sell {
		exit = t.Ask
	}
	delete(a.positions, req.Ticket)
	pnl := (exit - pos.EntryPrice) * pos.LotSize
	if pos.Side == broker.Sell {
		pnl = -pnl
	}
	return broker.CloseResult{ExitPrice: exit, ClosedAt: time.Now().Unix(), Pnl: pnl}, nil
}
