package ema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"barwatch/internal/bar"
)

func TestSeries_SeedsAtPeriodMinusOne(t *testing.T) {
	closes := []float64{10, 11, 12, 13}
	values, valid := Series(closes, 2.0, 3)

	require.False(t, valid[0])
	require.False(t, valid[1])
	require.True(t, valid[2])
	require.InDelta(t, 11.0, values[2], 1e-9) // SMA seed of {10,11,12}

	// k = 2/(3+1) = 0.5
	// value[3] = 13*0.5 + 11*0.5 = 12
	require.True(t, valid[3])
	require.InDelta(t, 12.0, values[3], 1e-9)
}

func TestSeries_InsufficientHistory(t *testing.T) {
	values, valid := Series([]float64{1, 2}, 2.0, 5)
	require.Len(t, values, 2)
	require.False(t, valid[0])
	require.False(t, valid[1])
}

func TestLast_MirrorsSeries(t *testing.T) {
	v, ok := Last([]float64{10, 11, 12, 13}, 2.0, 3)
	require.True(t, ok)
	require.InDelta(t, 12.0, v, 1e-9)

	_, ok = Last([]float64{1}, 2.0, 3)
	require.False(t, ok)
}

func TestCalculator_CachesUntilBarCountChanges(t *testing.T) {
	calc := NewCalculator(2.0)
	bars := []bar.Bar{{Close: 10}, {Close: 11}, {Close: 12}}

	v1, ok := calc.Last("EURUSD", bar.M1, 3, bars)
	require.True(t, ok)
	require.InDelta(t, 11.0, v1, 1e-9)

	// Same bar count: cache hit, same value even if we pass a different slice.
	v2, ok := calc.Last("EURUSD", bar.M1, 3, []bar.Bar{{Close: 99}, {Close: 99}, {Close: 99}})
	require.True(t, ok)
	require.InDelta(t, v1, v2, 1e-9)

	// Bar count grows: cache must recompute.
	bars = append(bars, bar.Bar{Close: 13})
	v3, ok := calc.Last("EURUSD", bar.M1, 3, bars)
	require.True(t, ok)
	require.InDelta(t, 12.0, v3, 1e-9)
}

func TestCalculator_SetSmoothingInvalidatesCache(t *testing.T) {
	calc := NewCalculator(2.0)
	bars := []bar.Bar{{Close: 10}, {Close: 11}, {Close: 12}, {Close: 13}}
	v1, _ := calc.Last("EURUSD", bar.M1, 3, bars)

	calc.SetSmoothing(1.0)
	v2, _ := calc.Last("EURUSD", bar.M1, 3, bars)
	require.NotEqual(t, v1, v2)
}

func TestSnakeColor(t *testing.T) {
	require.Equal(t, Green, SnakeColor(101, 100, false))
	require.Equal(t, Red, SnakeColor(99, 100, false))
	require.Equal(t, Green, SnakeColor(100, 100, false))
	require.Equal(t, Neutral, SnakeColor(100, 100, true))
}
