package m1state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func obs(idx int, low, high, close, shortEMA, longEMA, prevClose, prevShortEMA float64) Observation {
	return Observation{
		Index: idx, Low: low, High: high, Close: close,
		ShortEMA: shortEMA, LongEMA: longEMA,
		PrevClose: prevClose, PrevShortEMA: prevShortEMA,
	}
}

func TestStep_CrossUpThenTouchThenReadyBuy(t *testing.T) {
	s := State{Phase: Idle}

	// bar 1: close crosses above short EMA
	s = Step(s, obs(1, 9, 11, 10.5, 10, 5, 9.5, 10), 20)
	require.Equal(t, CrossedUp, s.Phase)

	// bar 2: pulls back and touches the short EMA, closes above BOTH EMAs
	s = Step(s, obs(2, 9.5, 10.2, 10.1, 10, 9, 10.5, 10), 20)
	require.Equal(t, ReadyBuy, s.Phase)
}

func TestStep_TouchButBelowLongEMA_StaysIdle(t *testing.T) {
	s := State{Phase: CrossedUp, CrossIndex: 1}

	// Touches the short EMA but closes below the long EMA: invariant 4 fails.
	s = Step(s, obs(2, 9.5, 10.2, 10.1, 10, 10.5, 10.5, 10), 20)
	require.Equal(t, Idle, s.Phase)
}

func TestStep_CrossDownThenTouchThenReadySell(t *testing.T) {
	s := State{Phase: Idle}

	s = Step(s, obs(1, 9, 11, 9.5, 10, 15, 10.5, 10), 20)
	require.Equal(t, CrossedDown, s.Phase)

	// touches short EMA, closes at/below short EMA AND below long EMA
	s = Step(s, obs(2, 9.8, 10.5, 9.9, 10, 15, 9.5, 10), 20)
	require.Equal(t, ReadySell, s.Phase)
}

func TestStep_PrevCloseExactlyAtPrevShortEMA_DoesNotRegisterCrossUp(t *testing.T) {
	s := State{Phase: Idle}
	// prevClose == prevShortEMA: the spec requires a strict prior-side
	// inequality, so this must NOT be read as a cross even though close
	// is now above the short EMA.
	s = Step(s, obs(1, 9, 11, 10.5, 10, 5, 10, 10), 20)
	require.Equal(t, Idle, s.Phase)
}

func TestStep_PrevCloseExactlyAtPrevShortEMA_DoesNotRegisterCrossDown(t *testing.T) {
	s := State{Phase: Idle}
	s = Step(s, obs(1, 9, 11, 9.5, 10, 15, 10, 10), 20)
	require.Equal(t, Idle, s.Phase)
}

func TestStep_GapExceeded_ResetsToIdle(t *testing.T) {
	s := State{Phase: CrossedUp, CrossIndex: 1}
	s = Step(s, obs(30, 9, 11, 10.1, 10, 9, 10, 10), 20)
	require.Equal(t, Idle, s.Phase)
}

func TestStep_FallsThroughBeforeTouch_ResetsToIdle(t *testing.T) {
	s := State{Phase: CrossedUp, CrossIndex: 1}
	// no touch (low/high don't straddle ShortEMA) and close has fallen
	// back below the (now current) short EMA
	s = Step(s, obs(2, 9.8, 9.9, 9.85, 10, 9, 10.2, 10), 20)
	require.Equal(t, Idle, s.Phase)
}

func TestMarkExecutedAndReset(t *testing.T) {
	s := State{Phase: ReadyBuy, CrossIndex: 5}
	s = MarkExecuted(s)
	require.Equal(t, Executed, s.Phase)

	// no-op from a non-READY phase
	idle := MarkExecuted(State{Phase: Idle})
	require.Equal(t, Idle, idle.Phase)

	s = Reset(s)
	require.Equal(t, Idle, s.Phase)
}
