// Package risk implements the §4.J gates: session window, spread, daily
// P/L, concurrency and account health. The field set is grounded on the
// teacher's store.RiskControlConfig (daily target/stop, max concurrent,
// spread) reused here as the gate inputs.
package risk

import (
	"time"

	"barwatch/internal/tzday"
)

// Config is the subset of internal/config.Config the gates need.
type Config struct {
	SessionEnabled   bool
	SessionStartMin  int
	SessionEndMin    int
	MaxSpreadPips    float64
	EnableDailyStop  bool
	DailyStopUSD     float64
	EnableDailyTarget bool
	DailyTargetUSD   float64
	MaxConcurrent    int
}

// Account is the subset of broker-reported account state the health gate
// needs.
type Account struct {
	Equity     float64
	FreeMargin float64
}

// Snapshot is everything a gate check needs about current conditions.
//
// DailyProfit and DailyLoss are separate non-negative running totals for
// the symbol's trading day — they never net against each other, matching
// the ground truth's record_trade_result (a win adds to profit, a
// loss-or-breakeven adds abs(pnl) to loss). A day of +50 then -30 must
// still trip a daily_target of 40, which a single net accumulator would
// miss.
type Snapshot struct {
	Now         time.Time
	Anchor      tzday.Anchor
	SpreadPips  float64
	DailyProfit float64
	DailyLoss   float64
	OpenCount   int
	Account     Account
}

// Gate is one named pass/fail check.
type Gate struct {
	Name string
	Pass bool
}

// Evaluate runs every gate in order and returns the full list; callers
// block the intent if any gate.Pass is false.
func Evaluate(cfg Config, snap Snapshot) []Gate {
	gates := make([]Gate, 0, 7)

	sessionOK := true
	if cfg.SessionEnabled {
		sessionOK = tzday.InSession(snap.Now, snap.Anchor.Zone, cfg.SessionStartMin, cfg.SessionEndMin)
	}
	gates = append(gates, Gate{"session_window", sessionOK})

	gates = append(gates, Gate{"spread", snap.SpreadPips <= cfg.MaxSpreadPips})

	dailyTargetOK := true
	if cfg.EnableDailyTarget {
		dailyTargetOK = snap.DailyProfit < cfg.DailyTargetUSD
	}
	gates = append(gates, Gate{"daily_target", dailyTargetOK})

	dailyStopOK := true
	if cfg.EnableDailyStop {
		dailyStopOK = snap.DailyLoss < cfg.DailyStopUSD
	}
	gates = append(gates, Gate{"daily_stop", dailyStopOK})

	gates = append(gates, Gate{"concurrency", snap.OpenCount < cfg.MaxConcurrent})

	gates = append(gates, Gate{"account_equity", snap.Account.Equity > 0})
	gates = append(gates, Gate{"account_margin", snap.Account.FreeMargin > 0})

	return gates
}

// AllPass reports whether every gate passed.
func AllPass(gates []Gate) bool {
	for _, g := range gates {
		if !g.Pass {
			return false
		}
	}
	return true
}

// Failed returns the names of every failed gate.
func Failed(gates []Gate) []string {
	var out []string
	for _, g := range gates {
		if !g.Pass {
			out = append(out, g.Name)
		}
	}
	return out
}
