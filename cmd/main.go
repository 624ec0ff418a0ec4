package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinm/internal/adapters/config"
	"coinm/internal/adapters/errors/noop"
	"coinm/internal/adapters/errors/sentry"
	"coinm/internal/adapters/exchangefactory"
	"coinm/internal/metrics"
	"coinm/pkg/errors"
	"coinm/pkg/logger"
)

const usage = `usage: coinm [flags] <command> [args]

commands:
  ping                              check connectivity
  time                              server time and local clock offset
  info [symbol]                     exchange info, or one symbol's rules
  balance                           account balances
  positions                         open positions
  open-orders [symbol]              open orders
  batch <file.json>                 place up to 5 orders from a JSON array
  cancel-batch <symbol> <id>...     cancel orders by exchange or client order id
  listen                            stream user data events until interrupted
  journal <client-order-id>         journal history of one order (postgres)
  rejections [limit]                recent rejected batch elements (postgres)
  events [topic]                    tail journal and user data topics (kafka)

flags:
`

func main() {
	hedge := flag.Bool("hedge", false, "account runs in dual side position mode")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.Get()
	log.Debugf("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		startMetricsServer(ctx, cfg.Metrics.Addr, log)
	}

	code := run(ctx, cfg, *hedge, flag.Args(), log)

	flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := errorTracker.Flush(flushCtx); err != nil {
		log.Warnf("Failed to flush error tracker: %v", err)
	}

	if code != 0 {
		logger.Sync()
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg *config.Config, hedge bool, args []string, log *logger.Logger) int {
	stack, err := exchangefactory.Build(ctx, cfg, exchangefactory.WithHedgeMode(hedge))
	if err != nil {
		log.Errorf("Failed to build client: %v", err)
		return 1
	}
	defer func() {
		if err := stack.Close(); err != nil {
			log.Warnf("Failed to close resources: %v", err)
		}
	}()

	if stack.Transport != nil {
		if _, err := stack.Transport.SyncTime(ctx); err != nil {
			log.Warnf("Initial server time sync failed: %v", err)
		}
	}
	stack.StartTimeSync(ctx)

	cmd := &commands{stack: stack, cfg: cfg, out: os.Stdout, log: log}
	if err := cmd.dispatch(ctx, args[0], args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		log.ErrorWithContext(ctx, err, map[string]string{"command": args[0]})
		log.Errorf("%s failed: %v", args[0], err)
		return 1
	}
	return 0
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Debug("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

func startMetricsServer(ctx context.Context, addr string, log *logger.Logger) {
	metrics.Init()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warnf("Metrics server stopped: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("Metrics served on %s/metrics", addr)
}
