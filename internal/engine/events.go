package engine

import (
	"time"

	"barwatch/internal/botkind"
	"barwatch/internal/broker"
	"barwatch/internal/metrics"
	"barwatch/internal/position"
	"barwatch/internal/sink"
)

func botStatusPayload(kind botkind.Kind, res botkind.Result) sink.StatusPayload {
	reasons := make([]sink.Reason, len(res.Reasons))
	for i, r := range res.Reasons {
		reasons[i] = sink.Reason{Pass: r.Pass, Text: r.Text, Detail: r.Detail}
	}
	return sink.StatusPayload{BotKind: kind.String(), Ready: res.Ready, Reasons: reasons}
}

func tradeExecutedPayload(tradeID string, kind botkind.Kind, intent position.Intent, result broker.OrderResult, now time.Time) sink.ExecutedPayload {
	return sink.ExecutedPayload{
		TradeID: tradeID, BotKind: kind.String(), Side: string(intent.Side),
		EntryPrice: result.FillPrice, LotSize: intent.LotSize,
		TakeProfit: intent.TakeProfit, StopLoss: intent.StopLoss, EntryTime: now,
	}
}

func tradeClosedPayload(open position.Open, result broker.CloseResult, now time.Time, reason string) sink.ClosedPayload {
	return sink.ClosedPayload{
		TradeID: open.Ticket, BotKind: open.BotKind.String(),
		ExitPrice: result.ExitPrice, ExitTime: now, Pnl: result.Pnl, Reason: reason,
	}
}

func recordGateFailure(symbol, gate string)     { metrics.RecordGateFailure(symbol, gate) }
func observeCycleDuration(seconds float64)      { metrics.ObserveCycleDuration(seconds) }
func recordOpenPositionsCount(symbol string, n int) { metrics.SetOpenPositions(symbol, n) }
