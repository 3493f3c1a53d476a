// Package m1state implements the M1 cross-then-touch entry trigger as a
// state machine over a closed set of phases, per spec §4.G.
package m1state

type Phase int

const (
	Idle Phase = iota
	CrossedUp
	CrossedDown
	ReadyBuy
	ReadySell
	Executed
)

func (p Phase) String() string {
	switch p {
	case CrossedUp:
		return "CROSSED_UP"
	case CrossedDown:
		return "CROSSED_DOWN"
	case ReadyBuy:
		return "READY_BUY"
	case ReadySell:
		return "READY_SELL"
	case Executed:
		return "EXECUTED"
	default:
		return "IDLE"
	}
}

// State is the per-symbol M1 entry-state record. CrossIndex is a plain
// field present in every phase: it is set on the cross, kept through
// READY_* and EXECUTED, and zero in IDLE.
type State struct {
	Phase      Phase
	CrossIndex int
}

// Closed bar observation fed to Step.
type Observation struct {
	Index        int
	Low, High    float64
	Close        float64
	ShortEMA     float64
	LongEMA      float64
	PrevClose    float64
	PrevShortEMA float64
}

// Step advances s given one new closed M1 bar, with maxGap bounding the
// distance between the cross and the touch.
func Step(s State, o Observation, maxGap int) State {
	switch s.Phase {
	case Idle:
		if crossedUp(o) {
			return State{Phase: CrossedUp, CrossIndex: o.Index}
		}
		if crossedDown(o) {
			return State{Phase: CrossedDown, CrossIndex: o.Index}
		}
		return s

	case CrossedUp:
		if o.Index-s.CrossIndex > maxGap {
			return State{Phase: Idle}
		}
		if touches(o) {
			if o.Close >= o.ShortEMA && o.Close >= o.LongEMA {
				return State{Phase: ReadyBuy, CrossIndex: s.CrossIndex}
			}
			return State{Phase: Idle}
		}
		if o.Close < o.ShortEMA {
			return State{Phase: Idle}
		}
		return s

	case CrossedDown:
		if o.Index-s.CrossIndex > maxGap {
			return State{Phase: Idle}
		}
		if touches(o) {
			if o.Close <= o.ShortEMA && o.Close < o.LongEMA {
				return State{Phase: ReadySell, CrossIndex: s.CrossIndex}
			}
			return State{Phase: Idle}
		}
		if o.Close > o.ShortEMA {
			return State{Phase: Idle}
		}
		return s

	case ReadyBuy, ReadySell:
		return s // only MarkExecuted/Reset advance out of READY_*

	case Executed:
		return s // only Reset advances out of EXECUTED

	default:
		return s
	}
}

func crossedUp(o Observation) bool {
	return o.PrevClose < o.PrevShortEMA && o.Close > o.ShortEMA
}

func crossedDown(o Observation) bool {
	return o.PrevClose > o.PrevShortEMA && o.Close < o.ShortEMA
}

func touches(o Observation) bool {
	return o.Low <= o.ShortEMA && o.ShortEMA <= o.High
}

// MarkExecuted transitions a READY_* state to EXECUTED; it is a no-op from
// any other phase.
func MarkExecuted(s State) State {
	if s.Phase == ReadyBuy || s.Phase == ReadySell {
		return State{Phase: Executed, CrossIndex: s.CrossIndex}
	}
	return s
}

// Reset returns s to IDLE unconditionally, used on position close or
// trading-day rollover.
func Reset(State) State {
	return State{Phase: Idle}
}
