// Command barwatch is the process entrypoint: it loads configuration,
// wires the broker adapter and event sinks, and runs the orchestrator
// until a shutdown signal or a fatal broker error.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"barwatch/internal/auth"
	"barwatch/internal/broker"
	"barwatch/internal/broker/alpaca"
	"barwatch/internal/broker/binancefutures"
	"barwatch/internal/broker/sim"
	"barwatch/internal/config"
	"barwatch/internal/engine"
	"barwatch/internal/metrics"
	"barwatch/internal/obslog"
	"barwatch/internal/sink"
	"barwatch/internal/sink/httpsink"
	"barwatch/internal/sink/logsink"
	"barwatch/internal/sink/metricsink"
	"barwatch/internal/sink/storesink"
	"barwatch/internal/store"
	"barwatch/internal/tzday"
)

func main() {
	configPath := flag.String("config", "", "path to the JSON config file (defaults applied when empty)")
	tickInterval := flag.Duration("tick", 2*time.Second, "orchestrator cycle interval")
	logLevel := flag.String("log-level", "info", "zerolog level: debug, info, warn, error")
	flag.Parse()

	log := obslog.New(os.Stderr, parseLevel(*logLevel))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Errorf(err, "barwatch: config load failed")
		os.Exit(1)
	}

	anchor, err := tzday.NewAnchor(cfg.Environment.Timezone, cfg.Environment.DailyCloseHour)
	if err != nil {
		log.Errorf(err, "barwatch: invalid environment config")
		os.Exit(1)
	}

	brk := buildBroker(cfg, anchor)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := brk.Connect(ctx); err != nil {
		log.Errorf(err, "barwatch: broker connect failed")
		os.Exit(1)
	}

	tradeStore, err := store.Open(cfg.Store.SQLitePath)
	if err != nil {
		log.Errorf(err, "barwatch: store open failed")
		os.Exit(1)
	}
	defer tradeStore.Close()

	metrics.Init()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	var guard *auth.Guard
	if cfg.Control.OperatorSecret != "" {
		guard, err = auth.NewGuard(cfg.Control.SigningKey, cfg.Control.OperatorSecret, cfg.Control.TOTPSecret)
		if err != nil {
			log.Errorf(err, "barwatch: auth guard construction failed")
			os.Exit(1)
		}
	} else {
		log.Warn("barwatch: no control.operator_secret configured, control endpoints are unauthenticated")
	}

	httpSink := httpsink.New(router, log, guard)

	multi := sink.Multi{Sinks: []sink.Sink{
		logsink.New(log),
		metricsink.New(),
		storesink.New(tradeStore, log),
		httpSink,
	}}

	eng, err := engine.New(cfg, brk, multi, log)
	if err != nil {
		log.Errorf(err, "barwatch: engine construction failed")
		os.Exit(1)
	}
	httpSink.SetControlHooks(eng.Halt, eng.Resume)

	srv := startHTTPServer(router, cfg.Control.BindAddr, log)

	log.Infof("barwatch: listening on %s", cfg.Control.BindAddr)
	runErr := eng.Run(ctx, *tickInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.shutdown(shutdownCtx); err != nil {
		log.Error(err, "barwatch: http server shutdown error")
	}

	if runErr != nil {
		log.Errorf(runErr, "barwatch: engine stopped with error")
		os.Exit(1)
	}
	log.Info("barwatch: shutdown complete")
}

// httpServer wraps http.Server for graceful shutdown from main's deferred
// cleanup, run on its own goroutine so it never blocks the engine loop.
type httpServer struct {
	srv *http.Server
}

func startHTTPServer(router http.Handler, addr string, log *obslog.Logger) *httpServer {
	s := &http.Server{Addr: addr, Handler: router}
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf(err, "barwatch: http server error")
		}
	}()
	return &httpServer{srv: s}
}

func (h *httpServer) shutdown(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}

func buildBroker(cfg *config.Config, anchor tzday.Anchor) broker.Broker {
	switch cfg.Exchange.Kind {
	case "binancefutures":
		return binancefutures.New(cfg.Exchange.APIKey, cfg.Exchange.SecretKey)
	case "alpaca":
		return alpaca.New(cfg.Exchange.APIKey, cfg.Exchange.SecretKey, cfg.Exchange.Paper, anchor)
	default:
		return sim.New()
	}
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
