// Package storesink appends executed/closed trades and the latest bot
// status to internal/store's SQLite audit log. This is the sink side of
// the store — the decision core itself never touches it.
package storesink

import (
	"context"
	"encoding/json"

	"barwatch/internal/obslog"
	"barwatch/internal/sink"
	"barwatch/internal/store"
)

type Sink struct {
	store *store.TradeStore
	log   *obslog.Logger
}

func New(st *store.TradeStore, log *obslog.Logger) *Sink {
	return &Sink{store: st, log: log}
}

func (s *Sink) Emit(ctx context.Context, ev sink.Event) {
	switch ev.Kind {
	case sink.TradeExecuted:
		p, ok := ev.Payload.(sink.ExecutedPayload)
		if !ok {
			return
		}
		if err := s.store.RecordEntry(p.TradeID, ev.Symbol, p.BotKind, p.Side, p.EntryPrice, p.LotSize, p.EntryTime); err != nil {
			s.log.Error(err, "storesink: record entry failed")
		}
	case sink.TradeClosed:
		p, ok := ev.Payload.(sink.ClosedPayload)
		if !ok {
			return
		}
		if err := s.store.RecordExit(p.TradeID, p.ExitPrice, p.ExitTime, p.Pnl, p.Reason); err != nil {
			s.log.Error(err, "storesink: record exit failed")
		}
	case sink.BotStatus:
		p, ok := ev.Payload.(sink.StatusPayload)
		if !ok {
			return
		}
		reasonsJSON, err := json.Marshal(p.Reasons)
		if err != nil {
			s.log.Error(err, "storesink: marshal reasons failed")
			return
		}
		if err := s.store.UpsertBotStatus(ev.Symbol, p.BotKind, p.Ready, string(reasonsJSON)); err != nil {
			s.log.Error(err, "storesink: upsert status failed")
		}
	}
}
