// Package fib validates the structural precondition GAIN bots require: the
// day's M15 swing midpoint must fall inside the [low, high] range of the
// largest-bodied recent H4 candle.
package fib

import "barwatch/internal/bar"

// Swing holds today's M15 extrema and the derived 50% level.
type Swing struct {
	Low, High float64
	Level50   float64
}

// ComputeSwing derives the swing from today's closed M15 bars.
func ComputeSwing(m15Today []bar.Bar) (Swing, bool) {
	if len(m15Today) == 0 {
		return Swing{}, false
	}
	low, high := m15Today[0].Low, m15Today[0].High
	for _, b := range m15Today[1:] {
		if b.Low < low {
			low = b.Low
		}
		if b.High > high {
			high = b.High
		}
	}
	return Swing{Low: low, High: high, Level50: low + 0.5*(high-low)}, true
}

// LargestBody selects, among the last n closed H4 bars, the one with the
// largest |close-open| body.
func LargestBody(h4Recent []bar.Bar, n int) (bar.Bar, bool) {
	if len(h4Recent) == 0 {
		return bar.Bar{}, false
	}
	start := 0
	if len(h4Recent) > n {
		start = len(h4Recent) - n
	}
	window := h4Recent[start:]
	best := window[0]
	for _, b := range window[1:] {
		if b.Body() > best.Body() {
			best = b
		}
	}
	return best, true
}

// Valid reports whether level50 falls inside candidate's [low, high] range.
func Valid(candidate bar.Bar, level50 float64) bool {
	return candidate.Low <= level50 && level50 <= candidate.High
}

// Check runs the full structure check for one side: swing from M15-today,
// candidate from the last n H4 bars.
func Check(m15Today []bar.Bar, h4Recent []bar.Bar, n int) (ok bool, swing Swing, candidate bar.Bar) {
	swing, sok := ComputeSwing(m15Today)
	if !sok {
		return false, Swing{}, bar.Bar{}
	}
	candidate, cok := LargestBody(h4Recent, n)
	if !cok {
		return false, swing, bar.Bar{}
	}
	return Valid(candidate, swing.Level50), swing, candidate
}
