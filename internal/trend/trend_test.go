package trend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"barwatch/internal/ema"
)

func TestCheck_AllAlignedGreen(t *testing.T) {
	readings := []Reading{
		{Name: "H1", Close: 110, LongEMA: 100},
		{Name: "M30", Close: 105, LongEMA: 100},
		{Name: "M15", Close: 101, LongEMA: 100},
	}
	res := Check(readings, ema.Green, false)
	require.True(t, res.Aligned)
	require.Empty(t, res.Misaligned)
}

func TestCheck_ReportsEachMisalignedTimeframe(t *testing.T) {
	readings := []Reading{
		{Name: "H1", Close: 110, LongEMA: 100},
		{Name: "M30", Close: 90, LongEMA: 100},
		{Name: "M15", Close: 80, LongEMA: 100},
	}
	res := Check(readings, ema.Green, false)
	require.False(t, res.Aligned)
	require.Equal(t, []string{"M30", "M15"}, res.Misaligned)
}

func TestCheck_EqualityIsNotTrendTreatsTieAsMisaligned(t *testing.T) {
	readings := []Reading{{Name: "M30", Close: 100, LongEMA: 100}}

	res := Check(readings, ema.Green, true)
	require.False(t, res.Aligned)

	res = Check(readings, ema.Neutral, true)
	require.True(t, res.Aligned)
}
