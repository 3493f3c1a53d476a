// Package ema computes SMA-seeded exponential moving averages, mirroring
// the teacher's hand-rolled calculateEMA (no pack dependency is a TA
// library), plus a per-(symbol,timeframe,period) cache that invalidates on
// series-length change, matching the orchestrator's cache-and-reuse style.
package ema

import "barwatch/internal/bar"

// Series computes the EMA for closes with the given smoothing s and period
// p. Entries before index p-1 are not meaningful (seed window); the bool
// slice out reports which entries are valid.
func Series(closes []float64, s float64, p int) (values []float64, valid []bool) {
	n := len(closes)
	values = make([]float64, n)
	valid = make([]bool, n)
	if p <= 0 || n < p {
		return values, valid
	}

	var seedSum float64
	for i := 0; i < p; i++ {
		seedSum += closes[i]
	}
	values[p-1] = seedSum / float64(p)
	valid[p-1] = true

	k := s / (float64(p) + 1)
	for i := p; i < n; i++ {
		values[i] = closes[i]*k + values[i-1]*(1-k)
		valid[i] = true
	}
	return values, valid
}

// Last returns the most recent valid EMA value and true, or (0, false) when
// the series hasn't accumulated p points yet.
func Last(closes []float64, s float64, p int) (float64, bool) {
	values, valid := Series(closes, s, p)
	if len(values) == 0 || !valid[len(valid)-1] {
		return 0, false
	}
	return values[len(values)-1], true
}

// cacheKey identifies one cached series.
type cacheKey struct {
	symbol string
	tf     bar.Timeframe
	period int
}

type cacheEntry struct {
	length int // length of the close slice the cached series was built from
	values []float64
	valid  []bool
}

// Calculator caches EMA series per (symbol, timeframe, period) and
// recomputes only when the underlying bar count changes or parameters are
// reconfigured, so a long-running engine doesn't recompute the full history
// every tick.
type Calculator struct {
	smoothing float64
	cache     map[cacheKey]cacheEntry
}

// NewCalculator builds a Calculator with the given EMA smoothing constant
// (spec default 2.0).
func NewCalculator(smoothing float64) *Calculator {
	return &Calculator{smoothing: smoothing, cache: make(map[cacheKey]cacheEntry)}
}

// SetSmoothing atomically invalidates the cache and updates the smoothing
// constant, per the spec's "runtime-changeable knobs invalidate the cache"
// contract.
func (c *Calculator) SetSmoothing(s float64) {
	c.smoothing = s
	c.cache = make(map[cacheKey]cacheEntry)
}

// Last returns the most recent EMA value for (symbol, tf, period) given the
// current closed-bar series, reusing the cached series when the bar count
// hasn't grown.
func (c *Calculator) Last(symbol string, tf bar.Timeframe, period int, bars []bar.Bar) (float64, bool) {
	key := cacheKey{symbol: symbol, tf: tf, period: period}
	closes := closesOf(bars)

	if entry, ok := c.cache[key]; ok && entry.length == len(closes) {
		if len(entry.valid) == 0 || !entry.valid[len(entry.valid)-1] {
			return 0, false
		}
		return entry.values[len(entry.values)-1], true
	}

	values, valid := Series(closes, c.smoothing, period)
	c.cache[key] = cacheEntry{length: len(closes), values: values, valid: valid}
	if len(valid) == 0 || !valid[len(valid)-1] {
		return 0, false
	}
	return values[len(values)-1], true
}

func closesOf(bars []bar.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// SnakeColor classifies the latest close against the long EMA. An exact tie
// is NEUTRAL when equalityIsNotTrend is true (the config default) and GREEN
// when it is false.
type Color int

const (
	Neutral Color = iota
	Green
	Red
)

func SnakeColor(close, longEMA float64, equalityIsNotTrend bool) Color {
	switch {
	case close > longEMA:
		return Green
	case close < longEMA:
		return Red
	case equalityIsNotTrend:
		return Neutral
	default:
		return Green
	}
}
