package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *TradeStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trades.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordEntryThenExit_RoundTripsThroughRecentTrades(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordEntry("t1", "EURUSD", "pain_buy", "BUY", 1.1000, 1.0, now))
	require.NoError(t, s.RecordExit("t1", 1.1050, now.Add(time.Hour), 50, "m5_early_exit"))

	recs, err := s.RecentTrades("EURUSD", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "t1", recs[0].ID)
	require.True(t, recs[0].ExitPrice.Valid)
	require.InDelta(t, 1.1050, recs[0].ExitPrice.Float64, 1e-9)
	require.True(t, recs[0].RealizedPnl.Valid)
	require.InDelta(t, 50, recs[0].RealizedPnl.Float64, 1e-9)
}

func TestRecentTrades_FiltersBySymbol(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()
	require.NoError(t, s.RecordEntry("a", "EURUSD", "pain_buy", "BUY", 1.1, 1, now))
	require.NoError(t, s.RecordEntry("b", "GBPUSD", "gain_sell", "SELL", 1.3, 1, now))

	recs, err := s.RecentTrades("GBPUSD", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "b", recs[0].ID)
}

func TestUpsertBotStatus_OverwritesOnConflict(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertBotStatus("EURUSD", "pain_buy", false, `[{"pass":false}]`))
	require.NoError(t, s.UpsertBotStatus("EURUSD", "pain_buy", true, `[]`))

	row := s.db.QueryRow(`SELECT ready, reasons FROM bot_status_log WHERE symbol = ? AND bot_kind = ?`, "EURUSD", "pain_buy")
	var ready int
	var reasons string
	require.NoError(t, row.Scan(&ready, &reasons))
	require.Equal(t, 1, ready)
	require.Equal(t, "[]", reasons)
}
