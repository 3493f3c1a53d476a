package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSetBotReady_RecordsOneOrZero(t *testing.T) {
	SetBotReady("EURUSD", "pain_buy", true)
	require.Equal(t, 1.0, testutil.ToFloat64(botStatus.WithLabelValues("EURUSD", "pain_buy")))

	SetBotReady("EURUSD", "pain_buy", false)
	require.Equal(t, 0.0, testutil.ToFloat64(botStatus.WithLabelValues("EURUSD", "pain_buy")))
}

func TestRecordTradeExecuted_IncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(tradesExecuted.WithLabelValues("EURUSD", "gain_sell", "SELL"))
	RecordTradeExecuted("EURUSD", "gain_sell", "SELL")
	require.Equal(t, before+1, testutil.ToFloat64(tradesExecuted.WithLabelValues("EURUSD", "gain_sell", "SELL")))
}

func TestRecordTradeClosed_IncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(tradesClosed.WithLabelValues("EURUSD", "pain_sell", "m5_early_exit"))
	RecordTradeClosed("EURUSD", "pain_sell", "m5_early_exit", 12.5)
	require.Equal(t, before+1, testutil.ToFloat64(tradesClosed.WithLabelValues("EURUSD", "pain_sell", "m5_early_exit")))
}

func TestSetOpenPositions_SetsGaugeValue(t *testing.T) {
	SetOpenPositions("EURUSD", 3)
	require.Equal(t, 3.0, testutil.ToFloat64(openPositions.WithLabelValues("EURUSD")))
}

func TestRecordGateFailure_IncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(gateFailures.WithLabelValues("EURUSD", "spread"))
	RecordGateFailure("EURUSD", "spread")
	require.Equal(t, before+1, testutil.ToFloat64(gateFailures.WithLabelValues("EURUSD", "spread")))
}

func TestRecordBrokerError_IncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(brokerErrors.WithLabelValues("transient"))
	RecordBrokerError("transient")
	require.Equal(t, before+1, testutil.ToFloat64(brokerErrors.WithLabelValues("transient")))
}
