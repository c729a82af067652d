package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/songzhibin97/coinwatch/internal/alerts"
	"github.com/songzhibin97/coinwatch/internal/configs"
	"github.com/songzhibin97/coinwatch/internal/data"
	"github.com/songzhibin97/coinwatch/internal/data/cache"
	"github.com/songzhibin97/coinwatch/internal/data/fetcher"
	"github.com/songzhibin97/coinwatch/internal/data/market"
	"github.com/songzhibin97/coinwatch/internal/data/mockdata"
	"github.com/songzhibin97/coinwatch/internal/portfolio"
	"github.com/songzhibin97/coinwatch/internal/scheduler"
	"github.com/songzhibin97/coinwatch/internal/server"
	"github.com/songzhibin97/coinwatch/internal/status"
	"github.com/songzhibin97/coinwatch/internal/storage"
	"github.com/songzhibin97/coinwatch/internal/utils/request"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults apply when empty)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := configs.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("coinwatch exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *configs.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	intervals := cfg.Intervals()
	clk := clock.New()

	var store data.DocumentStore
	if cfg.StoragePath == "" {
		logger.Warn("no storage path configured, alerts and holdings will not survive a restart")
		store = storage.NewMemoryStore()
	} else {
		dbStore, err := storage.Open(cfg.StoragePath)
		if err != nil {
			return err
		}
		defer dbStore.Close()
		store = dbStore
	}

	statusSignal := status.NewSignal()
	statusSignal.Subscribe(func(src status.Source) {
		logger.Info("data source changed", "source", src)
	})

	fetchCache := cache.New(clk, intervals.CacheTTL)
	resilient := fetcher.New(fetcher.Config{
		HTTP:      request.New(10 * time.Second),
		Cache:     fetchCache,
		Mock:      mockdata.New(),
		Status:    statusSignal,
		Proxies:   cfg.CORSProxies,
		RateLimit: cfg.RateLimit,
		Logger:    logger,
	})

	client := market.NewClient(market.Config{
		MarketURL:    cfg.MarketURL,
		NewsURL:      cfg.NewsURL,
		FearGreedURL: cfg.FearGreedURL,
	}, resilient)

	alertEngine := alerts.NewEngine(ctx, alerts.Config{
		Prices:   client,
		Store:    store,
		Notifier: alerts.DesktopNotifier{},
		Clock:    clk,
		Logger:   logger,
		Currency: cfg.Currency,
		Interval: intervals.AlertCheckEvery,
	})

	ledger := portfolio.NewLedger(ctx, portfolio.Config{
		Prices:   client,
		Store:    store,
		Clock:    clk,
		Logger:   logger,
		Currency: cfg.Currency,
	})

	hub := server.NewHub(logger)
	go hub.Run(ctx.Done())

	sched := scheduler.New(clk, logger)
	sched.Add("cache-sweep", intervals.CacheSweepEvery, func(ctx context.Context) {
		if removed := fetchCache.Sweep(intervals.CacheMaxAge); removed > 0 {
			logger.Debug("cache swept", "removed", removed)
		}
	})
	sched.Add("alert-check", alertEngine.Interval(), func(ctx context.Context) {
		if err := alertEngine.Evaluate(ctx); err != nil {
			logger.Error("alert evaluation failed", "error", err)
		}
	})
	sched.Add("live-ticker", intervals.TickerRefresh, func(ctx context.Context) {
		quotes, err := client.SimplePrices(ctx, cfg.TickerCoins, cfg.Currency)
		if err != nil {
			logger.Error("ticker refresh failed", "error", err)
			return
		}
		hub.BroadcastTicker(quotes)
	})
	sched.Add("overview-refresh", intervals.OverviewRefresh, func(ctx context.Context) {
		if _, err := client.GlobalData(ctx); err != nil {
			logger.Warn("overview refresh failed", "error", err)
		}
		if _, err := client.TopCoins(ctx, cfg.TopCoinsLimit, cfg.Currency); err != nil {
			logger.Warn("table refresh failed", "error", err)
		}
	})
	sched.Add("portfolio-refresh", intervals.PortfolioRefresh, func(ctx context.Context) {
		if _, err := ledger.Valuate(ctx); err != nil {
			logger.Warn("portfolio valuation failed", "error", err)
		}
	})

	// One immediate pass before the timers take over
	if err := alertEngine.Evaluate(ctx); err != nil {
		logger.Error("initial alert evaluation failed", "error", err)
	}

	sched.Start(ctx)
	defer sched.Stop()

	srv := server.New(server.Config{
		Market:        client,
		Alerts:        alertEngine,
		Portfolio:     ledger,
		Scheduler:     sched,
		Status:        statusSignal,
		Hub:           hub,
		Logger:        logger,
		Currency:      cfg.Currency,
		TopCoinsLimit: cfg.TopCoinsLimit,
		NewsLimit:     cfg.NewsLimit,
	})

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("coinwatch listening", "addr", cfg.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
