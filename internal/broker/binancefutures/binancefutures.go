// Package binancefutures adapts the Binance USD-M futures client onto the
// shared broker.Broker interface, following the method shape of the
// teacher's hand-rolled trader/alpaca_trader.go but backed by the SDK
// instead of raw signed REST.
package binancefutures

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"barwatch/internal/bar"
	"barwatch/internal/broker"
)

// Adapter implements broker.Broker against Binance USD-M perpetual
// futures.
type Adapter struct {
	client *futures.Client
}

// New builds an Adapter from an API key/secret pair.
func New(apiKey, secretKey string) *Adapter {
	return &Adapter{client: futures.NewClient(apiKey, secretKey)}
}

func (a *Adapter) Connect(ctx context.Context) error {
	return a.client.NewPingService().Do(ctx)
}

func (a *Adapter) GetTick(ctx context.Context, symbol string) (broker.Tick, error) {
	books, err := a.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return broker.Tick{}, fmt.Errorf("binancefutures: book ticker: %w", err)
	}
	if len(books) == 0 {
		return broker.Tick{}, fmt.Errorf("binancefutures: no book ticker for %s", symbol)
	}
	bid, _ := strconv.ParseFloat(books[0].BidPrice, 64)
	ask, _ := strconv.ParseFloat(books[0].AskPrice, 64)
	return broker.Tick{Symbol: symbol, Bid: bid, Ask: ask}, nil
}

func nativeInterval(tf bar.Timeframe) (string, bool) {
	switch tf {
	case bar.M1:
		return "1m", true
	case bar.M5:
		return "5m", true
	case bar.M15:
		return "15m", true
	case bar.M30:
		return "30m", true
	case bar.H1:
		return "1h", true
	case bar.H4:
		return "4h", true
	case bar.D1:
		return "1d", true
	default:
		return "", false
	}
}

func (a *Adapter) GetBars(ctx context.Context, symbol string, tf bar.Timeframe, count int) ([]bar.Bar, error) {
	interval, ok := nativeInterval(tf)
	if !ok {
		return nil, fmt.Errorf("binancefutures: unsupported timeframe %s", tf)
	}
	klines, err := a.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(count).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binancefutures: klines: %w", err)
	}
	out := make([]bar.Bar, 0, len(klines))
	for _, k := range klines {
		o, _ := strconv.ParseFloat(k.Open, 64)
		h, _ := strconv.ParseFloat(k.High, 64)
		l, _ := strconv.ParseFloat(k.Low, 64)
		c, _ := strconv.ParseFloat(k.Close, 64)
		v, _ := strconv.ParseFloat(k.Volume, 64)
		out = append(out, bar.Bar{
			StartTime: time.UnixMilli(k.OpenTime),
			Open:      o, High: h, Low: l, Close: c, Volume: v,
		})
	}
	return out, nil
}

func (a *Adapter) GetSymbolInfo(ctx context.Context, symbol string) (broker.SymbolInfo, error) {
	info, err := a.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return broker.SymbolInfo{}, fmt.Errorf("binancefutures: exchange info: %w", err)
	}
	for _, s := range info.Symbols {
		if s.Symbol == symbol {
			return broker.SymbolInfo{
				Symbol:       symbol,
				PipSize:      tickSizeOf(s),
				ContractSize: 1,
				MinLot:       minQtyOf(s),
			}, nil
		}
	}
	return broker.SymbolInfo{}, fmt.Errorf("binancefutures: unknown symbol %s", symbol)
}

func tickSizeOf(s *futures.Symbol) float64 {
	for _, f := range s.Filters {
		if f["filterType"] == "PRICE_FILTER" {
			if v, ok := f["tickSize"].(string); ok {
				f, _ := strconv.ParseFloat(v, 64)
				return f
			}
		}
	}
	return 0.01
}

func minQtyOf(s *futures.Symbol) float64 {
	for _, f := range s.Filters {
		if f["filterType"] == "LOT_SIZE" {
			if v, ok := f["minQty"].(string); ok {
				f, _ := strconv.ParseFloat(v, 64)
				return f
			}
		}
	}
	return 0.001
}

func (a *Adapter) GetAccountInfo(ctx context.Context) (broker.AccountInfo, error) {
	acc, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return broker.AccountInfo{}, fmt.Errorf("binancefutures: account: %w", err)
	}
	equity, _ := strconv.ParseFloat(acc.TotalWalletBalance, 64)
	margin, _ := strconv.ParseFloat(acc.AvailableBalance, 64)
	return broker.AccountInfo{Equity: equity, FreeMargin: margin, Currency: "USDT"}, nil
}

func (a *Adapter) GetOpenPositions(ctx context.Context, symbol string) ([]broker.Position, error) {
	positions, err := a.client.NewGetPositionRiskService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binancefutures: position risk: %w", err)
	}
	var out []broker.Position
	for _, p := range positions {
		amt, _ := strconv.ParseFloat(p.PositionAmt, 64)
		if amt == 0 {
			continue
		}
		side := broker.Buy
		if amt < 0 {
			side = broker.Sell
			amt = -amt
		}
		entry, _ := strconv.ParseFloat(p.EntryPrice, 64)
		out = append(out, broker.Position{
			Ticket:     p.Symbol,
			Symbol:     p.Symbol,
			Side:       side,
			EntryPrice: entry,
			LotSize:    amt,
		})
	}
	return out, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	side := futures.SideTypeBuy
	if req.Side == broker.Sell {
		side = futures.SideTypeSell
	}
	order, err := a.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(fmt.Sprintf("%g", req.LotSize)).
		NewClientOrderID(req.ClientTag).
		Do(ctx)
	if err != nil {
		return broker.OrderResult{}, fmt.Errorf("binancefutures: place order: %w", err)
	}
	fill, _ := strconv.ParseFloat(order.AvgPrice, 64)
	if err := a.attachBracket(ctx, req, side); err != nil {
		return broker.OrderResult{}, fmt.Errorf("binancefutures: attach bracket: %w", err)
	}
	return broker.OrderResult{
		Ticket:     strconv.FormatInt(order.OrderID, 10),
		FillPrice:  fill,
		FilledTime: time.Now().Unix(),
	}, nil
}

func (a *Adapter) attachBracket(ctx context.Context, req broker.OrderRequest, entrySide futures.SideType) error {
	exitSide := futures.SideTypeSell
	if entrySide == futures.SideTypeSell {
		exitSide = futures.SideTypeBuy
	}
	_, err := a.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(exitSide).
		Type(futures.OrderTypeTakeProfitMarket).
		StopPrice(fmt.Sprintf("%g", req.TakeProfit)).
		ClosePosition(true).
		Do(ctx)
	if err != nil {
		return err
	}
	_, err = a.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(exitSide).
		Type(futures.OrderTypeStopMarket).
		StopPrice(fmt.Sprintf("%g", req.StopLoss)).
		ClosePosition(true).
		Do(ctx)
	return err
}

func (a *Adapter) ClosePosition(ctx context.Context, req broker.CloseRequest) (broker.CloseResult, error) {
	positions, err := a.client.NewGetPositionRiskService().Symbol(req.Symbol).Do(ctx)
	if err != nil {
		return broker.CloseResult{}, fmt.Errorf("binancefutures: position risk: %w", err)
	}
	if len(positions) == 0 {
		return broker.CloseResult{}, fmt.Errorf("binancefutures: no open position for %s", req.Symbol)
	}
	amt, _ := strconv.ParseFloat(positions[0].PositionAmt, 64)
	side := futures.SideTypeSell
	qty := amt
	if amt < 0 {
		side = futures.SideTypeBuy
		qty = -amt
	}
	order, err := a.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(fmt.Sprintf("%g", qty)).
		ReduceOnly(true).
		Do(ctx)
	if err != nil {
		return broker.CloseResult{}, fmt.Errorf("binancefutures: close position: %w", err)
	}
	exit, _ := strconv.ParseFloat(order.AvgPrice, 64)
	entry, _ := strconv.ParseFloat(positions[0].EntryPrice, 64)
	pnl := (exit - entry) * qty
	if side == futures.SideTypeBuy {
		pnl = -pnl
	}
	return broker.CloseResult{ExitPrice: exit, ClosedAt: time.Now().Unix(), Pnl: pnl}, nil
}
