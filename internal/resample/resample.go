// Package resample aggregates closed M1 bars into the higher timeframes the
// engine trades on, following the bucket-by-minutes-of-day pattern the
// teacher's market data layer used for its own intraday series.
package resample

import (
	"time"

	"barwatch/internal/bar"
	"barwatch/internal/tzday"
)

// Resampler accumulates M1 bars and emits closed bars for a single target
// timeframe. One Resampler instance per (symbol, timeframe).
type Resampler struct {
	tf     bar.Timeframe
	anchor tzday.Anchor

	have        bool
	bucketStart time.Time
	acc         bar.Bar
}

// New builds a Resampler targeting tf, using anchor for D1 bucketing.
func New(tf bar.Timeframe, anchor tzday.Anchor) *Resampler {
	return &Resampler{tf: tf, anchor: anchor}
}

// bucketStartFor returns the left edge of the bucket t belongs to.
func (r *Resampler) bucketStartFor(t time.Time) time.Time {
	if r.tf == bar.D1 {
		day := r.anchor.TradingDay(t)
		return time.Date(day.Year(), day.Month(), day.Day(), r.anchor.CloseHour, 0, 0, 0, r.anchor.Zone)
	}
	mins, _ := r.tf.Minutes()
	local := t.In(r.anchor.Zone)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.anchor.Zone)
	minuteOfDay := local.Hour()*60 + local.Minute()
	bucketIdx := minuteOfDay / mins
	return midnight.Add(time.Duration(bucketIdx*mins) * time.Minute)
}

// Push feeds one closed M1 bar in. It returns the newly closed higher bar
// and true when pushing m advances past the current bucket's right edge;
// the bucket containing m itself is not emitted yet (it isn't closed).
func (r *Resampler) Push(m bar.Bar) (bar.Bar, bool) {
	bs := r.bucketStartFor(m.StartTime)

	if !r.have {
		r.startBucket(bs, m)
		return bar.Bar{}, false
	}

	if bs.Equal(r.bucketStart) {
		r.extend(m)
		return bar.Bar{}, false
	}

	// m belongs to a new bucket: the previous bucket is now closed.
	closed := r.acc
	r.startBucket(bs, m)
	return closed, true
}

func (r *Resampler) startBucket(bs time.Time, m bar.Bar) {
	r.have = true
	r.bucketStart = bs
	r.acc = bar.Bar{
		StartTime: bs,
		Open:      m.Open,
		High:      m.High,
		Low:       m.Low,
		Close:     m.Close,
		Volume:    m.Volume,
	}
}

func (r *Resampler) extend(m bar.Bar) {
	if m.High > r.acc.High {
		r.acc.High = m.High
	}
	if m.Low < r.acc.Low {
		r.acc.Low = m.Low
	}
	r.acc.Close = m.Close
	r.acc.Volume += m.Volume
}

// Bars resamples a full, ordered, strictly-increasing slice of closed M1
// bars into the target timeframe in one pass. Only fully closed buckets are
// returned — the final, still-forming bucket is dropped, matching Push's
// closure contract.
func Bars(tf bar.Timeframe, anchor tzday.Anchor, m1 []bar.Bar) []bar.Bar {
	if tf == bar.M1 {
		out := make([]bar.Bar, len(m1))
		copy(out, m1)
		return out
	}
	r := New(tf, anchor)
	var out []bar.Bar
	for _, b := range m1 {
		if closed, ok := r.Push(b); ok {
			out = append(out, closed)
		}
	}
	return out
}
