package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"barwatch/internal/broker"
	"barwatch/internal/config"
	"barwatch/internal/ema"
	"barwatch/internal/obslog"
	"barwatch/internal/position"
	"barwatch/internal/sink"
	"barwatch/internal/tzday"
)

// barFreshness is the per-request window of §4.L before the M1 window is
// refetched from the broker.
const barFreshness = 60 * time.Second

// cycleTimeout bounds every broker call made within one symbol's slice of
// a cycle, per §5's "broker read/write operations have a bounded timeout".
const cycleTimeout = 10 * time.Second

// Engine is the orchestrator of §4.L: it owns EngineState, runs one
// pipeline cycle per tick across every configured symbol, and is the sole
// caller of the broker and sink interfaces.
type Engine struct {
	cfg    *config.Config
	brk    broker.Broker
	snk    sink.Sink
	log    *obslog.Logger
	anchor tzday.Anchor

	emaCalc *ema.Calculator
	state   *EngineState
	tracker *position.Tracker

	painSymbols map[string]bool
	gainSymbols map[string]bool

	halted atomic.Bool // set by the control surface's POST /control/halt
}

// New builds an Engine from a loaded config and a connected broker. It
// does not fetch anything itself — the first Run cycle rehydrates state
// from bar history and broker-reported positions, per §3's Non-goals.
func New(cfg *config.Config, brk broker.Broker, snk sink.Sink, log *obslog.Logger) (*Engine, error) {
	anchor, err := tzday.NewAnchor(cfg.Environment.Timezone, cfg.Environment.DailyCloseHour)
	if err != nil {
		return nil, newErr(ErrConfigInvalid, "", err)
	}

	e := &Engine{
		cfg:         cfg,
		brk:         brk,
		snk:         snk,
		log:         log,
		anchor:      anchor,
		emaCalc:     ema.NewCalculator(cfg.Indicators.EMASmoothing),
		state:       newEngineState(),
		tracker:     position.NewTracker(),
		painSymbols: toSet(cfg.Symbols.Pain),
		gainSymbols: toSet(cfg.Symbols.Gain),
	}
	return e, nil
}

func toSet(symbols []string) map[string]bool {
	m := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		m[s] = true
	}
	return m
}

// allSymbols returns the union of the pain and gain sets, the set the
// orchestrator iterates every cycle.
func (e *Engine) allSymbols() []string {
	seen := make(map[string]bool, len(e.painSymbols)+len(e.gainSymbols))
	var out []string
	for s := range e.painSymbols {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for s := range e.gainSymbols {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Halt pauses entry intents: the orchestrator keeps cycling (so the exit
// monitor and external sync keep running on existing positions) but no
// ready bot opens a new one. Wired to POST /control/halt.
func (e *Engine) Halt() { e.halted.Store(true) }

// Resume clears Halt. Wired to POST /control/resume.
func (e *Engine) Resume() { e.halted.Store(false) }

// Run drives the ~2s cycle ticker until ctx is cancelled or a
// broker-fatal error is observed, per §5's two terminal signals. On
// either, the in-flight symbol finishes, then Run returns.
func (e *Engine) Run(ctx context.Context, tickInterval time.Duration) error {
	if tickInterval <= 0 {
		tickInterval = 2 * time.Second
	}

	e.log.Infof("engine: starting, %d pain symbol(s), %d gain symbol(s)", len(e.painSymbols), len(e.gainSymbols))

	if err := e.runCycle(ctx); err != nil {
		var fatal *Error
		if asFatal(err, &fatal) {
			return fatal
		}
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine: shutdown signal received, stopping")
			return nil
		case <-ticker.C:
			if err := e.runCycle(ctx); err != nil {
				var fatal *Error
				if asFatal(err, &fatal) {
					e.log.Errorf(fatal, "engine: fatal broker error, stopping")
					return fatal
				}
			}
		}
	}
}

func asFatal(err error, target **Error) bool {
	ee, ok := err.(*Error)
	if !ok || ee.Kind != ErrBrokerFatal {
		return false
	}
	*target = ee
	return true
}

// runCycle runs one pipeline cycle across every configured symbol, fully
// ordered within a symbol (B→C→D/E/F/G/H→I→J→K→exit) but in an
// implementation-defined, stable-within-cycle order across symbols.
func (e *Engine) runCycle(ctx context.Context) error {
	start := time.Now()
	for _, symbol := range e.allSymbols() {
		tags := tagSet{pain: e.painSymbols[symbol], gain: e.gainSymbols[symbol]}
		if err := e.runSymbol(ctx, symbol, tags, start); err != nil {
			var ee *Error
			if asFatal(err, &ee) {
				return ee
			}
			// Broker-transient and invariant errors are recoverable:
			// the symbol is skipped this cycle and retried next.
			e.emitError(symbol, err)
		}
	}
	observeCycleDuration(time.Since(start).Seconds())
	return nil
}

// tagSet records which symbol-kind tags (§4.I) a symbol carries; a symbol
// may be tagged pain, gain, or both.
type tagSet struct {
	pain bool
	gain bool
}

func (e *Engine) emitError(symbol string, err error) {
	e.snk.Emit(context.Background(), sink.Event{
		Kind: sink.Error, Symbol: symbol, Timestamp: time.Now(),
		Payload: err.Error(),
	})
}

func newTradeID() string { return uuid.NewString() }

func ensureCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, cycleTimeout)
}
