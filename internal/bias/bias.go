// Package bias derives the daily directional bias from the previous
// trading day's closed D1 candle.
package bias

import (
	"time"

	"barwatch/internal/bar"
)

type Kind int

const (
	Neutral Kind = iota
	Buy
	Sell
)

func (k Kind) String() string {
	switch k {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NEUTRAL"
	}
}

// Bias is the cached per-(symbol, trading-day) result.
type Bias struct {
	Kind       Kind
	Level50    float64 // only meaningful for Sell
	HasLevel50 bool
	TradingDay time.Time
}

// Derive implements the §4.D bias rule against the prior day's closed D1
// candle. epsilon is the wick-dominance tolerance (spec default 0.05).
func Derive(prevDay bar.Bar, epsilon float64, tradingDay time.Time) Bias {
	body := prevDay.Body()
	upper := prevDay.UpperWick()
	lower := prevDay.LowerWick()

	out := Bias{TradingDay: tradingDay}

	maxWick := upper
	if lower > maxWick {
		maxWick = lower
	}
	if maxWick <= body {
		out.Kind = Neutral
		return out
	}

	switch {
	case lower > upper*(1+epsilon):
		out.Kind = Buy
	case upper > lower*(1+epsilon):
		out.Kind = Sell
		// The source's SELL-day level anchors on the lower wick, not the
		// upper wick that drove the classification; kept as specified.
		out.Level50 = prevDay.Open
		if prevDay.Close < out.Level50 {
			out.Level50 = prevDay.Close
		}
		out.Level50 -= 0.5 * lower
		out.HasLevel50 = true
	default:
		out.Kind = Neutral
	}
	return out
}

// DayStopBreached reports whether today's running low has fallen through a
// SELL-day's level50, which halts PAIN-SELL for the rest of the trading day.
func DayStopBreached(b Bias, todaysLow float64) bool {
	if b.Kind != Sell || !b.HasLevel50 {
		return false
	}
	return todaysLow <= b.Level50
}
