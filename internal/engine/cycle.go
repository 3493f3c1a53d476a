package engine

import (
	"context"
	"time"

	"barwatch/internal/bar"
	"barwatch/internal/bias"
	"barwatch/internal/botkind"
	"barwatch/internal/broker"
	"barwatch/internal/ema"
	"barwatch/internal/fib"
	"barwatch/internal/m1state"
	"barwatch/internal/position"
	"barwatch/internal/resample"
	"barwatch/internal/risk"
	"barwatch/internal/sink"
)

// allKinds is the fixed four-bot set of §2.
var allKinds = []botkind.Kind{botkind.PainBuy, botkind.PainSell, botkind.GainBuy, botkind.GainSell}

func kindTag(k botkind.Kind) (pain bool) {
	return k == botkind.PainBuy || k == botkind.PainSell
}

// runSymbol runs the full §4.B–K pipeline for one symbol.
func (e *Engine) runSymbol(ctx context.Context, symbol string, tags tagSet, now time.Time) error {
	st := e.state.get(symbol)
	tradingDay := e.anchor.TradingDay(now)
	if st.haveBias && !st.biasDay.Equal(tradingDay) {
		st.resetForNewTradingDay(tradingDay)
	}

	if err := e.ensureBars(ctx, symbol, st, now); err != nil {
		return err
	}

	m1 := st.bars.m1
	needM1 := e.cfg.Indicators.SnakePeriod * 60
	if len(m1) < needM1 {
		e.emitInsufficient(symbol, tags, "insufficient M1 history")
		return nil
	}

	m5 := resample.Bars(bar.M5, e.anchor, m1)
	m15 := resample.Bars(bar.M15, e.anchor, m1)
	m30 := resample.Bars(bar.M30, e.anchor, m1)
	h1 := resample.Bars(bar.H1, e.anchor, m1)
	h4 := resample.Bars(bar.H4, e.anchor, m1)
	d1 := resample.Bars(bar.D1, e.anchor, m1)

	if len(d1) == 0 {
		e.emitInsufficient(symbol, tags, "no closed D1 candle yet")
		return nil
	}
	if !st.haveBias {
		prevDay := d1[len(d1)-1]
		st.biasVal = bias.Derive(prevDay, e.cfg.DailyBias.EpsilonWickRatio, tradingDay)
		st.biasDay = tradingDay
		st.haveBias = true
	}

	if low, ok := todaysLow(m1, e.anchor, tradingDay); ok && bias.DayStopBreached(st.biasVal, low) {
		st.painSellHalt = true
		st.haltedDay = tradingDay
	}

	readings, ok := e.trendReadings(symbol, map[string][]bar.Bar{
		"H1": h1, "M30": m30, "M15": m15, "M5": m5, "H4": h4,
	})
	if !ok {
		e.emitInsufficient(symbol, tags, "insufficient trend-filter EMA history")
		return nil
	}
	trendBuy := computeTrend(readings, ema.Green, e.cfg.TrendFilter.EqualityIsNotTrend)
	trendSell := computeTrend(readings, ema.Red, e.cfg.TrendFilter.EqualityIsNotTrend)

	e.updateM30Break(symbol, st, m30)
	e.updateM1FSM(symbol, st, m1)

	m15Today := filterByTradingDay(m15, e.anchor, tradingDay)
	structOK, swing, _ := fib.Check(m15Today, h4, e.cfg.Structure.H4Candidates)

	for _, kind := range allKinds {
		pain := kindTag(kind)
		if pain && !tags.pain {
			continue
		}
		if !pain && !tags.gain {
			continue
		}

		trend := trendBuy
		if kind == botkind.PainSell || kind == botkind.GainSell {
			trend = trendSell
		}

		in := botkind.Inputs{
			Bias:               st.biasVal,
			TrendAligned:       trend.Aligned,
			MisalignedTFs:      trend.Misaligned,
			BreakState:         st.m30Break,
			M1Phase:            st.m1FSM.Phase,
			StructureOK:        structOK,
			Swing:              swing,
			Halted:             st.botHalted(kind),
			EqualityIsNotTrend: e.cfg.TrendFilter.EqualityIsNotTrend,
		}
		res := botkind.Evaluate(kind, in)
		e.emitStatus(symbol, kind, res)

		if !res.Ready || e.halted.Load() {
			continue
		}
		if _, open := e.tracker.Get(symbol, kind); open {
			continue
		}
		e.tryEnter(ctx, symbol, kind, st, now)
	}

	e.runExitMonitor(ctx, symbol, m5, now)
	e.syncPositions(ctx, symbol)

	return nil
}

// ensureBars refetches the M1 window from the broker once the cached
// window is older than barFreshness, per §4.L.
func (e *Engine) ensureBars(ctx context.Context, symbol string, st *symbolState, now time.Time) error {
	if st.bars.fresh(now, barFreshness) {
		return nil
	}
	count := e.cfg.Indicators.SnakePeriod*60 + 60
	cctx, cancel := ensureCtx(ctx)
	defer cancel()
	bars, err := e.brk.GetBars(cctx, symbol, bar.M1, count)
	if err != nil {
		return newErr(ErrBrokerTransient, symbol, err)
	}
	st.bars = barCache{m1: bars, fetchedAt: now}
	return nil
}

func todaysLow(m1 []bar.Bar, anchor interface {
	TradingDay(time.Time) time.Time
}, tradingDay time.Time) (float64, bool) {
	var low float64
	found := false
	for _, b := range m1 {
		if !anchor.TradingDay(b.StartTime).Equal(tradingDay) {
			continue
		}
		if !found || b.Low < low {
			low = b.Low
			found = true
		}
	}
	return low, found
}

func filterByTradingDay(bars []bar.Bar, anchor interface {
	TradingDay(time.Time) time.Time
}, tradingDay time.Time) []bar.Bar {
	var out []bar.Bar
	for _, b := range bars {
		if anchor.TradingDay(b.StartTime).Equal(tradingDay) {
			out = append(out, b)
		}
	}
	return out
}

type trendReading = struct {
	Name    string
	Close   float64
	LongEMA float64
}

// trendReadings resolves the latest (close, long EMA) pair for each
// configured trend-filter timeframe (§6's trend_filters.timeframes_to_check).
func (e *Engine) trendReadings(symbol string, tfBars map[string][]bar.Bar) ([]trendReading, bool) {
	out := make([]trendReading, 0, len(e.cfg.TrendFilter.TimeframesToCheck))
	for _, name := range e.cfg.TrendFilter.TimeframesToCheck {
		bars, ok := tfBars[name]
		if !ok || len(bars) == 0 {
			return nil, false
		}
		longEMA, ok := e.emaCalc.Last(symbol, bar.Timeframe(name), e.cfg.Indicators.SnakePeriod, bars)
		if !ok {
			return nil, false
		}
		out = append(out, trendReading{Name: name, Close: bars[len(bars)-1].Close, LongEMA: longEMA})
	}
	return out, true
}

type trendResult = struct {
	Aligned    bool
	Misaligned []string
}

func computeTrend(readings []trendReading, want ema.Color, equalityIsNotTrend bool) trendResult {
	res := trendResult{Aligned: true}
	for _, r := range readings {
		c := ema.SnakeColor(r.Close, r.LongEMA, equalityIsNotTrend)
		if c != want {
			res.Aligned = false
			res.Misaligned = append(res.Misaligned, r.Name)
		}
	}
	return res
}

// updateM30Break folds every M30 bar newer than the last-observed one into
// the per-symbol break latch, indexing each bar with a monotonic per-symbol
// bar count so the recorded break index stays stable even as the fetched
// window slides forward and earlier bars roll off.
func (e *Engine) updateM30Break(symbol string, st *symbolState, m30 []bar.Bar) {
	if len(m30) == 0 {
		return
	}
	closes := closesOf(m30)
	values, valid := ema.Series(closes, e.cfg.Indicators.EMASmoothing, e.cfg.Indicators.SnakePeriod)

	start := 0
	if !st.m30LastTime.IsZero() {
		for i, b := range m30 {
			if b.StartTime.After(st.m30LastTime) {
				start = i
				break
			}
			start = i + 1
		}
	}
	for i := start; i < len(m30); i++ {
		if !valid[i] {
			continue
		}
		st.m30SeqCount++
		st.m30Break.Observe(st.m30SeqCount, m30[i].Close, values[i])
		st.m30LastTime = m30[i].StartTime
	}
}

// updateM1FSM folds every M1 bar newer than the last-observed one through
// the cross-then-touch state machine, with the same monotonic bar count
// as updateM30Break, so the cross-to-touch gap is measured in bars.
func (e *Engine) updateM1FSM(symbol string, st *symbolState, m1 []bar.Bar) {
	if len(m1) < 2 {
		return
	}
	closes := closesOf(m1)
	shortVals, shortValid := ema.Series(closes, e.cfg.Indicators.EMASmoothing, e.cfg.Indicators.PurpleLinePeriod)
	longVals, longValid := ema.Series(closes, e.cfg.Indicators.EMASmoothing, e.cfg.Indicators.SnakePeriod)

	start := 1
	if !st.m1LastTime.IsZero() {
		for i, b := range m1 {
			if b.StartTime.After(st.m1LastTime) {
				start = i
				break
			}
			start = i + 1
		}
		if start < 1 {
			start = 1
		}
	}
	for i := start; i < len(m1); i++ {
		if !shortValid[i] || !shortValid[i-1] || !longValid[i] {
			continue
		}
		st.m1SeqCount++
		o := m1state.Observation{
			Index:        st.m1SeqCount,
			Low:          m1[i].Low,
			High:         m1[i].High,
			Close:        m1[i].Close,
			ShortEMA:     shortVals[i],
			LongEMA:      longVals[i],
			PrevClose:    m1[i-1].Close,
			PrevShortEMA: shortVals[i-1],
		}
		st.m1FSM = m1state.Step(st.m1FSM, o, e.cfg.EntryM1.MaxBarsBetweenCrossAndTouch)
		st.m1LastTime = m1[i].StartTime
	}
}

func closesOf(bars []bar.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// tryEnter runs the §4.J risk gates and, on a full pass, submits the
// §4.K entry intent.
func (e *Engine) tryEnter(ctx context.Context, symbol string, kind botkind.Kind, st *symbolState, now time.Time) {
	cctx, cancel := ensureCtx(ctx)
	defer cancel()

	tick, err := e.brk.GetTick(cctx, symbol)
	if err != nil {
		e.emitError(symbol, newErr(ErrBrokerTransient, symbol, err))
		return
	}
	info, err := e.brk.GetSymbolInfo(cctx, symbol)
	if err != nil {
		e.emitError(symbol, newErr(ErrBrokerTransient, symbol, err))
		return
	}
	acc, err := e.brk.GetAccountInfo(cctx)
	if err != nil {
		e.emitError(symbol, newErr(ErrBrokerTransient, symbol, err))
		return
	}

	spreadPips := tick.Spread() / info.PipSize
	startMin, endMin := parseSession(e.cfg.Session.StartHHMM), parseSession(e.cfg.Session.EndHHMM)
	snap := risk.Snapshot{
		Now: now, Anchor: e.anchor, SpreadPips: spreadPips,
		DailyProfit: st.dailyProfit, DailyLoss: st.dailyLoss, OpenCount: e.tracker.Count(symbol),
		Account: risk.Account{Equity: acc.Equity, FreeMargin: acc.FreeMargin},
	}
	rcfg := risk.Config{
		SessionEnabled: e.cfg.Session.Enabled, SessionStartMin: startMin, SessionEndMin: endMin,
		MaxSpreadPips: e.cfg.Risk.MaxSpreadPips, EnableDailyStop: e.cfg.Risk.EnableDailyStop,
		DailyStopUSD: e.cfg.Risk.DailyStopUSD, EnableDailyTarget: e.cfg.Risk.EnableDailyTarget,
		DailyTargetUSD: e.cfg.Risk.DailyTargetUSD, MaxConcurrent: e.cfg.Risk.MaxConcurrentOrders,
	}
	gates := risk.Evaluate(rcfg, snap)
	if !risk.AllPass(gates) {
		for _, name := range risk.Failed(gates) {
			recordGateFailure(symbol, name)
		}
		return
	}

	price := tick.Ask
	if kind.Side() == "SELL" {
		price = tick.Bid
	}
	intent := position.BuildIntent(symbol, kind, price, e.cfg.Trading.TradeTargetUSD, e.cfg.Trading.LotSize, info.ContractSize)

	clientTag := newTradeID()
	result, err := e.brk.PlaceOrder(cctx, broker.OrderRequest{
		Symbol: symbol, Side: intent.Side, LotSize: intent.LotSize,
		TakeProfit: intent.TakeProfit, StopLoss: intent.StopLoss, ClientTag: clientTag,
	})
	if err != nil {
		e.emitError(symbol, newErr(ErrBrokerRefused, symbol, err))
		return
	}

	e.tracker.Set(position.Open{
		Ticket: result.Ticket, Symbol: symbol, BotKind: kind, Side: intent.Side,
		EntryPrice: result.FillPrice, EntryTime: now, LotSize: intent.LotSize,
		TakeProfit: intent.TakeProfit, StopLoss: intent.StopLoss,
	})
	st.m1FSM = m1state.MarkExecuted(st.m1FSM)

	e.snk.Emit(ctx, sink.Event{
		Kind: sink.TradeExecuted, Symbol: symbol, Timestamp: now,
		Payload: tradeExecutedPayload(result.Ticket, kind, intent, result, now),
	})
}

// runExitMonitor implements §4.K's M5-based early-exit path.
func (e *Engine) runExitMonitor(ctx context.Context, symbol string, m5 []bar.Bar, now time.Time) {
	if len(m5) == 0 {
		return
	}
	last, shortEMA, ok := position.LatestM5ShortEMA(e.emaCalc, symbol, m5, e.cfg.Indicators.PurpleLinePeriod)
	if !ok {
		return
	}
	for _, open := range e.tracker.All() {
		if open.Symbol != symbol {
			continue
		}
		if !position.ShouldExit(open.Side, last.Close, shortEMA) {
			continue
		}
		e.closePosition(ctx, symbol, open, now, "m5_early_exit")
	}
}

func (e *Engine) closePosition(ctx context.Context, symbol string, open position.Open, now time.Time, reason string) {
	cctx, cancel := ensureCtx(ctx)
	defer cancel()

	result, err := e.brk.ClosePosition(cctx, broker.CloseRequest{Ticket: open.Ticket, Symbol: symbol, Reason: reason})
	if err != nil {
		e.emitError(symbol, newErr(ErrBrokerRefused, symbol, err))
		return
	}

	st := e.state.get(symbol)
	st.m1FSM = position.OnClosed(e.tracker, symbol, open.BotKind, st.m1FSM)
	st.recordTradeResult(e.anchor.TradingDay(now), result.Pnl)

	e.snk.Emit(ctx, sink.Event{
		Kind: sink.TradeClosed, Symbol: symbol, Timestamp: now,
		Payload: tradeClosedPayload(open, result, now, reason),
	})
}

// syncPositions reconciles the tracker against the broker's reported open
// positions, purging anything that closed externally (TP, SL, manual).
func (e *Engine) syncPositions(ctx context.Context, symbol string) {
	cctx, cancel := ensureCtx(ctx)
	defer cancel()
	reported, err := e.brk.GetOpenPositions(cctx, symbol)
	if err != nil {
		e.emitError(symbol, newErr(ErrBrokerTransient, symbol, err))
		return
	}
	e.tracker.SyncFromBroker(symbol, reported)
	recordOpenPositionsCount(symbol, e.tracker.Count(symbol))
}

func (e *Engine) emitStatus(symbol string, kind botkind.Kind, res botkind.Result) {
	e.snk.Emit(context.Background(), sink.Event{
		Kind: sink.BotStatus, Symbol: symbol, Timestamp: time.Now(),
		Payload: botStatusPayload(kind, res),
	})
}

func (e *Engine) emitInsufficient(symbol string, tags tagSet, reason string) {
	for _, kind := range allKinds {
		pain := kindTag(kind)
		if pain && !tags.pain {
			continue
		}
		if !pain && !tags.gain {
			continue
		}
		e.emitStatus(symbol, kind, botkind.Result{
			Kind: kind, Ready: false,
			Reasons: []botkind.Reason{{Pass: false, Text: "data", Detail: reason}},
		})
	}
}

// parseSession parses an "HH:MM" wall-clock string into minutes since
// midnight; a string that is not five characters with ':' at index 2
// parses to 0. config.Load rejects a session time that is not HH:MM while
// the session is enabled, so a malformed one never reaches the gate.
func parseSession(hhmm string) int {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return 0
	}
	h := int(hhmm[0]-'0')*10 + int(hhmm[1]-'0')
	m := int(hhmm[3]-'0')*10 + int(hhmm[4]-'0')
	return h*60 + m
}
