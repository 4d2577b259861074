// Command balances-watcher runs the live token-balance streaming service:
// wiring, signal handling and graceful shutdown, with a primary HTTP
// listener and a second metrics-only listener.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/limitofzero/balances-watcher/internal/balances"
	"github.com/limitofzero/balances-watcher/internal/chain"
	"github.com/limitofzero/balances-watcher/internal/config"
	"github.com/limitofzero/balances-watcher/internal/domain"
	"github.com/limitofzero/balances-watcher/internal/httpapi"
	"github.com/limitofzero/balances-watcher/internal/logging"
	"github.com/limitofzero/balances-watcher/internal/session"
	"github.com/limitofzero/balances-watcher/internal/telemetry"
	"github.com/limitofzero/balances-watcher/internal/tokenlist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsRegistry := telemetry.NewRegistry()
	registry := chain.BuildRegistry(ctx, cfg.Chain, logger)

	multicallAddr, err := domain.ParseAddress(cfg.Chain.MulticallAddress)
	if err != nil {
		logger.Fatal("invalid MULTICALL_ADDRESS", zap.Error(err))
	}

	manager := session.NewManager(cfg.Chain.SessionTTL, logger)
	manager.OnEvict(func(key domain.SubscriptionKey) {
		metricsRegistry.Sessions.Active.Set(float64(manager.SessionCount()))
		metricsRegistry.Sessions.WatchedChain.DeleteLabelValues(key.Network.String(), key.Owner.String())
	})

	state := &httpapi.State{
		Manager:               manager,
		Fetcher:               tokenlist.NewFetcher(logger),
		Chains:                registry,
		Reader:                balances.NewReader(logger),
		Logger:                logger,
		Metrics:               metricsRegistry,
		MulticallAddress:      multicallAddr,
		MaxWatchedTokensLimit: cfg.Chain.MaxWatchedTokensLimit,
		SnapshotInterval:      cfg.Chain.SnapshotInterval,
	}

	go manager.Run(ctx)

	router := httpapi.NewRouter(state, cfg.Server.AllowedOrigins)
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPBind,
		Handler: router,
	}

	metricsErrCh := make(chan error, 1)
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Endpoint, metricsRegistry.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
		go func() {
			logger.Info("metrics server starting", zap.String("addr", cfg.Metrics.ListenAddr))
			metricsErrCh <- metricsServer.ListenAndServe()
		}()
	}

	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPBind))
		httpErrCh <- httpServer.ListenAndServe()
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-httpErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
			exitCode = 1
		}
		stop()
	case err := <-metricsErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
			exitCode = 1
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown error", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
	if exitCode != 0 {
		logger.Sync() //nolint:errcheck
		os.Exit(exitCode)
	}
}
