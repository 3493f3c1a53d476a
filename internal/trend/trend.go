// Package trend tests price/long-EMA alignment across H1, M30 and M15.
package trend

import "barwatch/internal/ema"

// Reading is one timeframe's (close, long EMA) pair as of the latest closed
// bar.
type Reading struct {
	Name      string
	Close     float64
	LongEMA   float64
}

// Result reports whether all supplied readings agree with want, and which
// ones didn't.
type Result struct {
	Aligned     bool
	Misaligned  []string
}

// Check evaluates alignment of every reading against the required color.
func Check(readings []Reading, want ema.Color, equalityIsNotTrend bool) Result {
	res := Result{Aligned: true}
	for _, r := range readings {
		c := ema.SnakeColor(r.Close, r.LongEMA, equalityIsNotTrend)
		if c != want {
			res.Aligned = false
			res.Misaligned = append(res.Misaligned, r.Name)
		}
	}
	return res
}
