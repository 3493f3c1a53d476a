package position

import (
	"testing"

	"github.com/stretchr/testify/require"

	"barwatch/internal/bar"
	"barwatch/internal/botkind"
	"barwatch/internal/broker"
	"barwatch/internal/ema"
	"barwatch/internal/m1state"
)

func TestBuildIntent_BuySizesTPAndSL(t *testing.T) {
	// tpDist = 50 / (1 * 100000) = 0.0005
	intent := BuildIntent("EURUSD", botkind.PainBuy, 1.1000, 50, 1, 100000)
	require.Equal(t, broker.Buy, intent.Side)
	require.InDelta(t, 1.1005, intent.TakeProfit, 1e-9)
	require.InDelta(t, 1.0985, intent.StopLoss, 1e-9) // 3x TP distance below
}

func TestBuildIntent_SellSizesTPAndSLOnOppositeSides(t *testing.T) {
	intent := BuildIntent("EURUSD", botkind.PainSell, 1.1000, 50, 1, 100000)
	require.Equal(t, broker.Sell, intent.Side)
	require.InDelta(t, 1.0995, intent.TakeProfit, 1e-9)
	require.InDelta(t, 1.1015, intent.StopLoss, 1e-9)
}

func TestShouldExit(t *testing.T) {
	require.True(t, ShouldExit(broker.Buy, 99, 100))
	require.False(t, ShouldExit(broker.Buy, 101, 100))
	require.True(t, ShouldExit(broker.Sell, 101, 100))
	require.False(t, ShouldExit(broker.Sell, 99, 100))
}

func TestTracker_AtMostOnePerSymbolAndKind(t *testing.T) {
	tr := NewTracker()
	tr.Set(Open{Ticket: "1", Symbol: "EURUSD", BotKind: botkind.PainBuy})
	tr.Set(Open{Ticket: "2", Symbol: "EURUSD", BotKind: botkind.PainBuy}) // overwrites

	o, ok := tr.Get("EURUSD", botkind.PainBuy)
	require.True(t, ok)
	require.Equal(t, "2", o.Ticket)
	require.Equal(t, 1, tr.Count("EURUSD"))
}

func TestTracker_SyncFromBrokerPurgesClosed(t *testing.T) {
	tr := NewTracker()
	tr.Set(Open{Ticket: "1", Symbol: "EURUSD", BotKind: botkind.PainBuy})
	tr.Set(Open{Ticket: "2", Symbol: "EURUSD", BotKind: botkind.PainSell})

	tr.SyncFromBroker("EURUSD", []broker.Position{{Ticket: "1"}})

	_, ok := tr.Get("EURUSD", botkind.PainBuy)
	require.True(t, ok)
	_, ok = tr.Get("EURUSD", botkind.PainSell)
	require.False(t, ok)
}

func TestOnClosed_RemovesAndResetsFSM(t *testing.T) {
	tr := NewTracker()
	tr.Set(Open{Ticket: "1", Symbol: "EURUSD", BotKind: botkind.PainBuy})

	fsm := m1state.State{Phase: m1state.Executed}
	fsm = OnClosed(tr, "EURUSD", botkind.PainBuy, fsm)

	require.Equal(t, m1state.Idle, fsm.Phase)
	_, ok := tr.Get("EURUSD", botkind.PainBuy)
	require.False(t, ok)
}

func TestLatestM5ShortEMA(t *testing.T) {
	calc := ema.NewCalculator(2.0)
	m5 := []bar.Bar{{Close: 10}, {Close: 11}, {Close: 12}}

	last, v, ok := LatestM5ShortEMA(calc, "EURUSD", m5, 3)
	require.True(t, ok)
	require.InDelta(t, 12.0, last.Close, 1e-9)
	require.InDelta(t, 11.0, v, 1e-9)
}
