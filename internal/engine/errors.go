// Package engine owns EngineState and the per-cycle orchestrator described
// in §4.L: it is the only place the bar/EMA/bot-state maps live, and the
// only caller of internal/broker and internal/sink.
package engine

import "fmt"

// ErrKind is the closed set of error categories from §7. The hot path
// exchanges these instead of free-form strings, per the design notes' "sum
// types for results" guidance.
type ErrKind int

const (
	// ErrDataInsufficiency covers missing bars, missing D1, or an
	// unseeded EMA; the evaluator resolves it to a non-ready bot, it
	// never propagates.
	ErrDataInsufficiency ErrKind = iota
	// ErrBrokerTransient is a timeout, read failure, or null tick: the
	// symbol is skipped this cycle and retried next cycle.
	ErrBrokerTransient
	// ErrBrokerRefused is an order rejection or unknown retcode: the bot
	// is treated as non-ready this tick, no retry within the cycle.
	ErrBrokerRefused
	// ErrBrokerFatal is an auth failure or adapter unavailability: the
	// orchestrator stops.
	ErrBrokerFatal
	// ErrConfigInvalid is a missing field or bad value, checked at
	// bootstrap.
	ErrConfigInvalid
	// ErrInternalInvariant marks a state machine reaching an undefined
	// branch or a non-monotonic bar time; the relevant symbol's state is
	// reset and the cycle continues.
	ErrInternalInvariant
)

func (k ErrKind) String() string {
	switch k {
	case ErrDataInsufficiency:
		return "data_insufficiency"
	case ErrBrokerTransient:
		return "broker_transient"
	case ErrBrokerRefused:
		return "broker_refused"
	case ErrBrokerFatal:
		return "broker_fatal"
	case ErrConfigInvalid:
		return "config_invalid"
	case ErrInternalInvariant:
		return "internal_invariant"
	default:
		return "unknown"
	}
}

// Error pairs an ErrKind with the underlying cause and the symbol it was
// raised for, the typed (value, error) boundary contract of §9.
type Error struct {
	Kind   ErrKind
	Symbol string
	Cause  error
}

func (e *Error) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("engine: %s[%s]: %v", e.Kind, e.Symbol, e.Cause)
	}
	return fmt.Sprintf("engine: %s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind ErrKind, symbol string, cause error) *Error {
	return &Error{Kind: kind, Symbol: symbol, Cause: cause}
}
