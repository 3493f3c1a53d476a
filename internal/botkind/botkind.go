// Package botkind combines the daily bias, trend filter, break detector,
// M1 trigger and structure check into the four-bot predicate table of
// §4.I. Bot kind is a closed tagged enum, not a hierarchy of types, per the
// design notes on encoding closed sets.
package botkind

import (
	"strings"

	"barwatch/internal/bias"
	"barwatch/internal/ema"
	"barwatch/internal/fib"
	"barwatch/internal/m1state"
	"barwatch/internal/m30break"
)

type Kind int

const (
	PainBuy Kind = iota
	PainSell
	GainBuy
	GainSell
)

func (k Kind) String() string {
	switch k {
	case PainBuy:
		return "PAIN-BUY"
	case PainSell:
		return "PAIN-SELL"
	case GainBuy:
		return "GAIN-BUY"
	case GainSell:
		return "GAIN-SELL"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) Side() string {
	if k == PainBuy || k == GainBuy {
		return "BUY"
	}
	return "SELL"
}

// Reason is one line of the evaluation trace, consumed by the sink for
// bot_status events; the engine itself only reads Ready.
type Reason struct {
	Pass   bool
	Text   string
	Detail string
}

// Inputs bundles every precomputed signal a bot kind's predicate consumes.
type Inputs struct {
	Bias               bias.Bias
	TrendAligned       bool
	MisalignedTFs      []string
	BreakState         m30break.State
	M1Phase            m1state.Phase
	StructureOK        bool
	Swing              fib.Swing
	Halted             bool
	EqualityIsNotTrend bool
}

// Result is the per-bot-kind evaluation outcome for one tick.
type Result struct {
	Kind    Kind
	Ready   bool
	Reasons []Reason
}

// Evaluate runs the §4.I predicate table for kind.
func Evaluate(kind Kind, in Inputs) Result {
	var reasons []Reason
	ready := true

	check := func(pass bool, text, detail string) {
		reasons = append(reasons, Reason{Pass: pass, Text: text, Detail: detail})
		if !pass {
			ready = false
		}
	}

	wantBias := bias.Buy
	wantColor := ema.Green
	if kind == PainSell || kind == GainSell {
		wantBias = bias.Sell
		wantColor = ema.Red
	}

	check(in.Bias.Kind == wantBias, "daily bias", in.Bias.Kind.String())
	check(in.TrendAligned, "trend alignment", strings.Join(in.MisalignedTFs, ","))
	_ = wantColor

	switch kind {
	case PainBuy:
		check(in.BreakState.PainBuyReady(), "m30 break up", "")
		check(in.M1Phase == m1state.ReadyBuy, "m1 ready buy", in.M1Phase.String())
	case PainSell:
		check(!in.Halted, "not halted", "")
		check(in.BreakState.PainSellReady(), "m30 break down", "")
		check(in.M1Phase == m1state.ReadySell, "m1 ready sell", in.M1Phase.String())
	case GainBuy:
		check(in.StructureOK, "structure valid", "")
		check(in.M1Phase == m1state.ReadyBuy, "m1 ready buy", in.M1Phase.String())
	case GainSell:
		check(in.StructureOK, "structure valid", "")
		check(in.M1Phase == m1state.ReadySell, "m1 ready sell", in.M1Phase.String())
	}

	return Result{Kind: kind, Ready: ready, Reasons: reasons}
}

// PainKinds and GainKinds partition the four bots by which symbol tag
// ("pain" vs "gain") they run against.
var PainKinds = []Kind{PainBuy, PainSell}
var GainKinds = []Kind{GainBuy, GainSell}
