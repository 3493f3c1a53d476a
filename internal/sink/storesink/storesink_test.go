package storesink

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"barwatch/internal/obslog"
	"barwatch/internal/sink"
	"barwatch/internal/store"
)

func openTestStore(t *testing.T) *store.TradeStore {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestEmit_TradeExecutedThenClosedRoundTrips(t *testing.T) {
	st := openTestStore(t)
	s := New(st, obslog.Nop())
	now := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	s.Emit(context.Background(), sink.Event{
		Kind: sink.TradeExecuted, Symbol: "EURUSD",
		Payload: sink.ExecutedPayload{TradeID: "sim-1", BotKind: "pain_buy", Side: "BUY", EntryPrice: 1.1, LotSize: 1, EntryTime: now},
	})
	s.Emit(context.Background(), sink.Event{
		Kind: sink.TradeClosed, Symbol: "EURUSD",
		Payload: sink.ClosedPayload{TradeID: "sim-1", BotKind: "pain_buy", ExitPrice: 1.105, ExitTime: now.Add(time.Hour), Pnl: 5, Reason: "m5_early_exit"},
	})

	recs, err := st.RecentTrades("EURUSD", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "sim-1", recs[0].ID)
	require.True(t, recs[0].ExitPrice.Valid)
	require.Equal(t, "m5_early_exit", recs[0].CloseReason.String)
}

func TestEmit_BotStatusUpsertDoesNotError(t *testing.T) {
	// bot_status_log has no public reader (it's a write-only audit path, per
	// internal/store's own doc comment), so this only guards against the
	// upsert itself failing or panicking on a well-formed payload.
	st := openTestStore(t)
	s := New(st, obslog.Nop())

	require.NotPanics(t, func() {
		s.Emit(context.Background(), sink.Event{
			Kind: sink.BotStatus, Symbol: "EURUSD",
			Payload: sink.StatusPayload{BotKind: "gain_sell", Ready: true, Reasons: []sink.Reason{{Pass: true, Text: "bias"}}},
		})
	})
}

func TestEmit_IgnoresMismatchedPayloadShapes(t *testing.T) {
	st := openTestStore(t)
	s := New(st, obslog.Nop())
	require.NotPanics(t, func() {
		s.Emit(context.Background(), sink.Event{Kind: sink.TradeExecuted, Symbol: "EURUSD", Payload: "wrong shape"})
	})
}
