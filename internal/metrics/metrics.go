// Package metrics exposes Prometheus gauges/counters for the running
// engine, adapted from the teacher's metrics.go: a custom registry,
// promauto-registered vectors namespaced "barwatch", and update helpers
// guarded by a package-level mutex even though the prometheus client is
// itself already thread-safe.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "barwatch"

// Registry is this process's custom Prometheus registry, kept separate
// from the global default registry the same way the teacher does.
var Registry = prometheus.NewRegistry()

var mu sync.RWMutex

var (
	botStatus = promauto.With(Registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "bot", Name: "ready",
		Help: "1 if the bot is currently ready to enter, else 0.",
	}, []string{"symbol", "bot_kind"})

	tradesExecuted = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "trade", Name: "executed_total",
		Help: "Count of entries placed.",
	}, []string{"symbol", "bot_kind", "side"})

	tradesClosed = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "trade", Name: "closed_total",
		Help: "Count of positions closed.",
	}, []string{"symbol", "bot_kind", "reason"})

	realizedPnl = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "trade", Name: "realized_pnl_usd",
		Help:    "Realized P/L per closed trade.",
		Buckets: prometheus.LinearBuckets(-500, 50, 21),
	}, []string{"symbol", "bot_kind"})

	openPositions = promauto.With(Registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "position", Name: "open",
		Help: "Currently open positions per symbol.",
	}, []string{"symbol"})

	gateFailures = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "risk", Name: "gate_failed_total",
		Help: "Count of failed risk gates by name.",
	}, []string{"symbol", "gate"})

	cycleDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "engine", Name: "cycle_duration_seconds",
		Help:    "Wall time of one orchestrator cycle across all symbols.",
		Buckets: prometheus.DefBuckets,
	})

	brokerErrors = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "broker", Name: "errors_total",
		Help: "Count of broker adapter errors by kind.",
	}, []string{"kind"})
)

// Init registers the standard Go/process collectors against Registry, the
// same bootstrap step the teacher's metrics.Init performs.
func Init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

func SetBotReady(symbol, botKind string, ready bool) {
	mu.Lock()
	defer mu.Unlock()
	v := 0.0
	if ready {
		v = 1.0
	}
	botStatus.WithLabelValues(symbol, botKind).Set(v)
}

func RecordTradeExecuted(symbol, botKind, side string) {
	mu.Lock()
	defer mu.Unlock()
	tradesExecuted.WithLabelValues(symbol, botKind, side).Inc()
}

func RecordTradeClosed(symbol, botKind, reason string, pnl float64) {
	mu.Lock()
	defer mu.Unlock()
	tradesClosed.WithLabelValues(symbol, botKind, reason).Inc()
	realizedPnl.WithLabelValues(symbol, botKind).Observe(pnl)
}

func SetOpenPositions(symbol string, count int) {
	mu.Lock()
	defer mu.Unlock()
	openPositions.WithLabelValues(symbol).Set(float64(count))
}

func RecordGateFailure(symbol, gate string) {
	mu.Lock()
	defer mu.Unlock()
	gateFailures.WithLabelValues(symbol, gate).Inc()
}

func ObserveCycleDuration(seconds float64) {
	mu.Lock()
	defer mu.Unlock()
	cycleDuration.Observe(seconds)
}

func RecordBrokerError(kind string) {
	mu.Lock()
	defer mu.Unlock()
	brokerErrors.WithLabelValues(kind).Inc()
}
