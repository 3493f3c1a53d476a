// Package bar defines the OHLC bar type shared by every timeframe in the
// pipeline and the fixed set of timeframes the engine resamples to.
package bar

import "time"

// Bar is an immutable closed OHLC candle. StartTime is the bar's left edge
// in the engine's configured timezone; a Bar is never mutated after it is
// published by the resampler.
type Bar struct {
	StartTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Timeframe is one of the seven fixed resampling targets.
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	M30 Timeframe = "M30"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
)

// Minutes returns the duration of tf in minutes, and false for an unknown
// timeframe.
func (tf Timeframe) Minutes() (int, bool) {
	switch tf {
	case M1:
		return 1, true
	case M5:
		return 5, true
	case M15:
		return 15, true
	case M30:
		return 30, true
	case H1:
		return 60, true
	case H4:
		return 240, true
	case D1:
		return 1440, true
	default:
		return 0, false
	}
}

// Duration is Minutes expressed as a time.Duration; it panics on an unknown
// timeframe since callers only ever pass one of the constants above.
func (tf Timeframe) Duration() time.Duration {
	m, ok := tf.Minutes()
	if !ok {
		panic("bar: unknown timeframe " + string(tf))
	}
	return time.Duration(m) * time.Minute
}

// EndTime returns the bar's right edge, i.e. the open time of the next bar
// on the same timeframe.
func (b Bar) EndTime(tf Timeframe) time.Time {
	return b.StartTime.Add(tf.Duration())
}

// Body and wick helpers used by the daily-bias and structure checks.
func (b Bar) Body() float64 {
	d := b.Close - b.Open
	if d < 0 {
		return -d
	}
	return d
}

func (b Bar) UpperWick() float64 {
	top := b.Open
	if b.Close > top {
		top = b.Close
	}
	return b.High - top
}

func (b Bar) LowerWick() float64 {
	bottom := b.Open
	if b.Close < bottom {
		bottom = b.Close
	}
	return bottom - b.Low
}
