package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"barwatch/internal/bar"
	"barwatch/internal/broker"
	"barwatch/internal/broker/sim"
	"barwatch/internal/config"
	"barwatch/internal/obslog"
	"barwatch/internal/sink"
)

// recordingSink captures every emitted event for assertions, standing in
// for the real sink.Multi fan-out.
type recordingSink struct {
	mu     sync.Mutex
	events []sink.Event
}

func (s *recordingSink) Emit(ctx context.Context, ev sink.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) statusPayloads() []sink.StatusPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sink.StatusPayload
	for _, ev := range s.events {
		if ev.Kind == sink.BotStatus {
			out = append(out, ev.Payload.(sink.StatusPayload))
		}
	}
	return out
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Environment = config.EnvironmentConfig{Timezone: "UTC", DailyCloseHour: 0}
	cfg.Indicators = config.IndicatorsConfig{SnakePeriod: 5, PurpleLinePeriod: 2, EMASmoothing: 2.0}
	cfg.TrendFilter = config.TrendFilterConfig{TimeframesToCheck: []string{"M30"}, EqualityIsNotTrend: false}
	cfg.EntryM1 = config.EntryM1Config{MaxBarsBetweenCrossAndTouch: 5}
	cfg.Structure = config.StructureConfig{H4Candidates: 1}
	cfg.Session = config.SessionConfig{Enabled: false}
	cfg.Symbols = config.SymbolsConfig{Pain: []string{"EURUSD"}, Gain: []string{"EURUSD"}}
	return &cfg
}

// flatM1Bars builds n consecutive one-minute bars starting at t0, all with
// the same OHLC so every derived indicator is well-defined but directionless.
func flatM1Bars(t0 time.Time, n int, price float64) []bar.Bar {
	out := make([]bar.Bar, n)
	for i := 0; i < n; i++ {
		out[i] = bar.Bar{
			StartTime: t0.Add(time.Duration(i) * time.Minute),
			Open:      price, High: price, Low: price, Close: price,
		}
	}
	return out
}

func TestRunCycle_EmitsInsufficientStatusWhenM1HistoryIsShort(t *testing.T) {
	cfg := testConfig() // needs SnakePeriod*60 = 300 M1 bars
	brk := sim.New()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	brk.SetBars("EURUSD", bar.M1, flatM1Bars(t0, 10, 1.1000))

	snk := &recordingSink{}
	eng, err := New(cfg, brk, snk, obslog.Nop())
	require.NoError(t, err)

	require.NoError(t, eng.runCycle(context.Background()))

	statuses := snk.statusPayloads()
	require.Len(t, statuses, 4) // all four bots tagged (symbol is both pain and gain)
	for _, s := range statuses {
		require.False(t, s.Ready)
		require.Len(t, s.Reasons, 1)
		require.Equal(t, "insufficient M1 history", s.Reasons[0].Detail)
	}
}

func TestRunCycle_EmitsInsufficientStatusWhenNoClosedDailyCandle(t *testing.T) {
	cfg := testConfig() // needs 300 M1 bars, but D1 needs 1440 minutes closed
	brk := sim.New()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	brk.SetBars("EURUSD", bar.M1, flatM1Bars(t0, 300, 1.1000))

	snk := &recordingSink{}
	eng, err := New(cfg, brk, snk, obslog.Nop())
	require.NoError(t, err)

	require.NoError(t, eng.runCycle(context.Background()))

	statuses := snk.statusPayloads()
	require.Len(t, statuses, 4)
	for _, s := range statuses {
		require.False(t, s.Ready)
		require.Equal(t, "no closed D1 candle yet", s.Reasons[0].Detail)
	}
}

func TestHaltAndResume_ToggleTheCooperativeFlag(t *testing.T) {
	cfg := testConfig()
	eng, err := New(cfg, sim.New(), &recordingSink{}, obslog.Nop())
	require.NoError(t, err)

	require.False(t, eng.halted.Load())
	eng.Halt()
	require.True(t, eng.halted.Load())
	eng.Resume()
	require.False(t, eng.halted.Load())
}

func TestRunCycle_RunsOnlyPainBotsForPainOnlySymbol(t *testing.T) {
	cfg := testConfig()
	cfg.Symbols = config.SymbolsConfig{Pain: []string{"EURUSD"}, Gain: []string{}}
	brk := sim.New()

	snk := &recordingSink{}
	eng, err := New(cfg, brk, snk, obslog.Nop())
	require.NoError(t, err)
	require.Equal(t, []string{"EURUSD"}, eng.allSymbols())

	require.NoError(t, eng.runCycle(context.Background()))
	statuses := snk.statusPayloads()
	// Only the two pain bots are tagged for EURUSD; no bars at all means
	// the "insufficient M1 history" path fires for each.
	require.Len(t, statuses, 2)
}

func TestTryEnter_SkippedWhenTickUnavailable(t *testing.T) {
	// Regression guard: tryEnter must bail out via emitError, never panic,
	// when the broker can't answer GetTick for a symbol with no tick set.
	cfg := testConfig()
	brk := sim.New()
	snk := &recordingSink{}
	eng, err := New(cfg, brk, snk, obslog.Nop())
	require.NoError(t, err)

	st := eng.state.get("EURUSD")
	require.NotPanics(t, func() {
		eng.tryEnter(context.Background(), "EURUSD", 0, st, time.Now())
	})
}

var _ broker.Broker = (*sim.Adapter)(nil)
