package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"barwatch/internal/tzday"
)

func baseConfig() Config {
	return Config{
		SessionEnabled: true, SessionStartMin: 8 * 60, SessionEndMin: 17 * 60,
		MaxSpreadPips: 3, EnableDailyStop: true, DailyStopUSD: 300,
		EnableDailyTarget: true, DailyTargetUSD: 500, MaxConcurrent: 4,
	}
}

func baseSnapshot(anchor tzday.Anchor) Snapshot {
	return Snapshot{
		Now:         time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC),
		Anchor:      anchor,
		SpreadPips:  1,
		DailyProfit: 0,
		DailyLoss:   0,
		OpenCount:   0,
		Account:     Account{Equity: 10000, FreeMargin: 5000},
	}
}

func TestEvaluate_AllPassOnHealthyInputs(t *testing.T) {
	anchor, err := tzday.NewAnchor("UTC", 17)
	require.NoError(t, err)

	gates := Evaluate(baseConfig(), baseSnapshot(anchor))
	require.True(t, AllPass(gates))
	require.Empty(t, Failed(gates))
}

func TestEvaluate_SpreadGateFails(t *testing.T) {
	anchor, _ := tzday.NewAnchor("UTC", 17)
	snap := baseSnapshot(anchor)
	snap.SpreadPips = 5
	gates := Evaluate(baseConfig(), snap)
	require.False(t, AllPass(gates))
	require.Contains(t, Failed(gates), "spread")
}

func TestEvaluate_DailyStopGateFails(t *testing.T) {
	anchor, _ := tzday.NewAnchor("UTC", 17)
	snap := baseSnapshot(anchor)
	snap.DailyLoss = 301
	gates := Evaluate(baseConfig(), snap)
	require.Contains(t, Failed(gates), "daily_stop")
}

func TestEvaluate_DailyTargetGateFails(t *testing.T) {
	anchor, _ := tzday.NewAnchor("UTC", 17)
	snap := baseSnapshot(anchor)
	snap.DailyProfit = 500
	gates := Evaluate(baseConfig(), snap)
	require.Contains(t, Failed(gates), "daily_target")
}

func TestEvaluate_ProfitAndLossAccumulateIndependentlyNotNetted(t *testing.T) {
	anchor, _ := tzday.NewAnchor("UTC", 17)
	snap := baseSnapshot(anchor)
	// A day of +50 then -30 must still trip a daily_target of 40: profit
	// and loss never net against each other into a single total of 20.
	snap.DailyProfit = 50
	snap.DailyLoss = 30
	cfg := baseConfig()
	cfg.DailyTargetUSD = 40
	gates := Evaluate(cfg, snap)
	require.Contains(t, Failed(gates), "daily_target")
	require.NotContains(t, Failed(gates), "daily_stop")
}

func TestEvaluate_ConcurrencyGateFails(t *testing.T) {
	anchor, _ := tzday.NewAnchor("UTC", 17)
	snap := baseSnapshot(anchor)
	snap.OpenCount = 4
	gates := Evaluate(baseConfig(), snap)
	require.Contains(t, Failed(gates), "concurrency")
}

func TestEvaluate_AccountHealthGateFails(t *testing.T) {
	anchor, _ := tzday.NewAnchor("UTC", 17)
	snap := baseSnapshot(anchor)
	snap.Account = Account{Equity: 0, FreeMargin: 0}
	gates := Evaluate(baseConfig(), snap)
	require.Contains(t, Failed(gates), "account_equity")
	require.Contains(t, Failed(gates), "account_margin")
}

func TestEvaluate_SessionGateFails(t *testing.T) {
	anchor, _ := tzday.NewAnchor("UTC", 17)
	snap := baseSnapshot(anchor)
	snap.Now = time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC) // before 08:00 session start
	gates := Evaluate(baseConfig(), snap)
	require.Contains(t, Failed(gates), "session_window")
}
