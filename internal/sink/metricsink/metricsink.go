// Package metricsink updates internal/metrics on every emitted event,
// adapted from the teacher's UpdateTraderMetrics/RecordTrade shape,
// retargeted from "trader" to "(symbol, bot kind)".
package metricsink

import (
	"context"

	"barwatch/internal/metrics"
	"barwatch/internal/sink"
)

type Sink struct{}

func New() *Sink { return &Sink{} }

func (s *Sink) Emit(ctx context.Context, ev sink.Event) {
	switch ev.Kind {
	case sink.BotStatus:
		if p, ok := ev.Payload.(sink.StatusPayload); ok {
			metrics.SetBotReady(ev.Symbol, p.BotKind, p.Ready)
		}
	case sink.TradeExecuted:
		if p, ok := ev.Payload.(sink.ExecutedPayload); ok {
			metrics.RecordTradeExecuted(ev.Symbol, p.BotKind, p.Side)
		}
	case sink.TradeClosed:
		if p, ok := ev.Payload.(sink.ClosedPayload); ok {
			metrics.RecordTradeClosed(ev.Symbol, p.BotKind, p.Reason, p.Pnl)
		}
	case sink.Error:
		metrics.RecordBrokerError("sink_error")
	}
}
