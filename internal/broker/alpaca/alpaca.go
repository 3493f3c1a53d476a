// Package alpaca adapts the teacher's hand-rolled Alpaca Markets REST
// client (trader/alpaca_trader.go: doRequest, HMAC-free key/secret
// headers, position/order endpoints) onto the shared broker.Broker
// interface. Alpaca has no Go SDK in the retrieval pack, so — like the
// teacher — this talks to the REST API directly rather than through an
// SDK client.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"barwatch/internal/bar"
	"barwatch/internal/broker"
	"barwatch/internal/resample"
	"barwatch/internal/security"
	"barwatch/internal/tzday"
)

// Adapter implements broker.Broker against the Alpaca trading + market
// data REST APIs.
type Adapter struct {
	apiKey    string
	secretKey string
	baseURL   string
	dataURL   string
	client    *http.Client
	anchor    tzday.Anchor
}

// New builds an Adapter. Pass isPaper=true to trade against Alpaca's paper
// endpoint.
func New(apiKey, secretKey string, isPaper bool, anchor tzday.Anchor) *Adapter {
	base := "https://api.alpaca.markets"
	if isPaper {
		base = "https://paper-api.alpaca.markets"
	}
	return &Adapter{
		apiKey:    apiKey,
		secretKey: secretKey,
		baseURL:   base,
		dataURL:   "https://data.alpaca.markets",
		client:    security.SafeHTTPClient(30 * time.Second),
		anchor:    anchor,
	}
}

func (a *Adapter) doRequest(ctx context.Context, method, fullURL string, body interface{}) ([]byte, error) {
	if err := security.ValidateURL(fullURL); err != nil {
		return nil, err
	}
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("alpaca: marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("alpaca: build request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", a.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", a.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alpaca: request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alpaca: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("alpaca: api error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func (a *Adapter) Connect(ctx context.Context) error {
	_, err := a.doRequest(ctx, http.MethodGet, a.baseURL+"/v2/account", nil)
	return err
}

func (a *Adapter) GetAccountInfo(ctx context.Context) (broker.AccountInfo, error) {
	resp, err := a.doRequest(ctx, http.MethodGet, a.baseURL+"/v2/account", nil)
	if err != nil {
		return broker.AccountInfo{}, err
	}
	var account struct {
		Equity     string `json:"equity"`
		BuyingPower string `json:"buying_power"`
		Currency   string `json:"currency"`
	}
	if err := json.Unmarshal(resp, &account); err != nil {
		return broker.AccountInfo{}, fmt.Errorf("alpaca: parse account: %w", err)
	}
	equity, _ := strconv.ParseFloat(account.Equity, 64)
	margin, _ := strconv.ParseFloat(account.BuyingPower, 64)
	return broker.AccountInfo{Equity: equity, FreeMargin: margin, Currency: account.Currency}, nil
}

func (a *Adapter) GetOpenPositions(ctx context.Context, symbol string) ([]broker.Position, error) {
	resp, err := a.doRequest(ctx, http.MethodGet, a.baseURL+"/v2/positions", nil)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Symbol       string `json:"symbol"`
		Side         string `json:"side"`
		Qty          string `json:"qty"`
		AvgEntryPrice string `json:"avg_entry_price"`
		AssetID      string `json:"asset_id"`
	}
	if err := json.Unmarshal(resp, &raw); err != nil {
		return nil, fmt.Errorf("alpaca: parse positions: %w", err)
	}
	var out []broker.Position
	for _, p := range raw {
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		side := broker.Buy
		if p.Side == "short" {
			side = broker.Sell
		}
		qty, _ := strconv.ParseFloat(p.Qty, 64)
		entry, _ := strconv.ParseFloat(p.AvgEntryPrice, 64)
		out = append(out, broker.Position{
			Ticket:     p.AssetID,
			Symbol:     p.Symbol,
			Side:       side,
			EntryPrice: entry,
			LotSize:    qty,
		})
	}
	return out, nil
}

func (a *Adapter) GetSymbolInfo(ctx context.Context, symbol string) (broker.SymbolInfo, error) {
	return broker.SymbolInfo{Symbol: symbol, PipSize: 0.01, ContractSize: 1, MinLot: 1}, nil
}

func (a *Adapter) GetTick(ctx context.Context, symbol string) (broker.Tick, error) {
	url := fmt.Sprintf("%s/v2/stocks/%s/quotes/latest", a.dataURL, symbol)
	resp, err := a.doRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return broker.Tick{}, err
	}
	var parsed struct {
		Quote struct {
			BidPrice float64 `json:"bp"`
			AskPrice float64 `json:"ap"`
		} `json:"quote"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return broker.Tick{}, fmt.Errorf("alpaca: parse quote: %w", err)
	}
	return broker.Tick{Symbol: symbol, Bid: parsed.Quote.BidPrice, Ask: parsed.Quote.AskPrice}, nil
}

// nativeTimeframe maps bar.Timeframe to Alpaca's bar-interval syntax.
// Alpaca has no native 4-hour bar, so H4 is requested as 1Hour and
// resampled client-side by internal/resample.
func nativeTimeframe(tf bar.Timeframe) (string, bool) {
	switch tf {
	case bar.M1:
		return "1Min", true
	case bar.M5:
		return "5Min", true
	case bar.M15:
		return "15Min", true
	case bar.M30:
		return "30Min", true
	case bar.H1, bar.H4:
		return "1Hour", true
	case bar.D1:
		return "1Day", true
	default:
		return "", false
	}
}

func (a *Adapter) GetBars(ctx context.Context, symbol string, tf bar.Timeframe, count int) ([]bar.Bar, error) {
	native, ok := nativeTimeframe(tf)
	if !ok {
		return nil, fmt.Errorf("alpaca: unsupported timeframe %s", tf)
	}
	fetchCount := count
	if tf == bar.H4 {
		fetchCount = count * 4
	}
	url := fmt.Sprintf("%s/v2/stocks/%s/bars?timeframe=%s&limit=%d", a.dataURL, symbol, native, fetchCount)
	resp, err := a.doRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Bars []struct {
			T string  `json:"t"`
			O float64 `json:"o"`
			H float64 `json:"h"`
			L float64 `json:"l"`
			C float64 `json:"c"`
			V float64 `json:"v"`
		} `json:"bars"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return nil, fmt.Errorf("alpaca: parse bars: %w", err)
	}
	bars := make([]bar.Bar, 0, len(parsed.Bars))
	for _, b := range parsed.Bars {
		t, err := time.Parse(time.RFC3339, b.T)
		if err != nil {
			continue
		}
		bars = append(bars, bar.Bar{StartTime: t, Open: b.O, High: b.H, Low: b.L, Close: b.C, Volume: b.V})
	}
	if tf == bar.H4 {
		bars = resample.Bars(bar.H4, a.anchor, bars)
	}
	return bars, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	side := "buy"
	if req.Side == broker.Sell {
		side = "sell"
	}
	body := map[string]interface{}{
		"symbol":        req.Symbol,
		"qty":           fmt.Sprintf("%g", req.LotSize),
		"side":          side,
		"type":          "market",
		"time_in_force": "day",
		"order_class":   "bracket",
		"take_profit":   map[string]interface{}{"limit_price": req.TakeProfit},
		"stop_loss":     map[string]interface{}{"stop_price": req.StopLoss},
		"client_order_id": req.ClientTag,
	}
	resp, err := a.doRequest(ctx, http.MethodPost, a.baseURL+"/v2/orders", body)
	if err != nil {
		return broker.OrderResult{}, err
	}
	var parsed struct {
		ID           string `json:"id"`
		FilledAvgPrice string `json:"filled_avg_price"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return broker.OrderResult{}, fmt.Errorf("alpaca: parse order: %w", err)
	}
	fill, _ := strconv.ParseFloat(parsed.FilledAvgPrice, 64)
	return broker.OrderResult{Ticket: parsed.ID, FillPrice: fill, FilledTime: time.Now().Unix()}, nil
}

func (a *Adapter) ClosePosition(ctx context.Context, req broker.CloseRequest) (broker.CloseResult, error) {
	url := fmt.Sprintf("%s/v2/positions/%s", a.baseURL, req.Symbol)
	resp, err := a.doRequest(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return broker.CloseResult{}, err
	}
	var parsed struct {
		FilledAvgPrice string `json:"filled_avg_price"`
	}
	_ = json.Unmarshal(resp, &parsed)
	exit, _ := strconv.ParseFloat(parsed.FilledAvgPrice, 64)
	return broker.CloseResult{ExitPrice: exit, ClosedAt: time.Now().Unix()}, nil
}
