// ammd — a logarithmic market scoring rule (LMSR) automated market maker
// daemon for binary prediction markets.
//
// Architecture:
//
//	main.go              — entry point: loads config, opens the store, serves the API
//	engine/engine.go     — hosting runtime: per-market locking, persistence, event stream
//	engine/executor.go   — pure trade operations: slippage-bounded buys and sells
//	engine/settle.go     — resolution, redemption, and settlement
//	lmsr/lmsr.go         — the cost function, marginal prices, and max-loss bound
//	market/market.go     — market record, status machine, invariant validation
//	store/store.go       — versioned JSON file persistence for markets and positions
//	api/                 — HTTP handlers plus a WebSocket hub streaming engine events
//	fixed/               — deterministic fixed-point arithmetic (9 fractional digits)
//
// How it prices:
//
//	The daemon quotes every trade off the LMSR cost function
//	C(q) = b·ln(e^(qA/b) + e^(qB/b)). A trade of Δ shares costs
//	C(q') − C(q); instantaneous prices are the softmax of q/b and always
//	sum to one. The liquidity parameter b caps the operator's worst-case
//	loss at b·ln 2, which the reserve tracks exactly.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lmsr-amm/internal/api"
	"lmsr-amm/internal/config"
	"lmsr-amm/internal/engine"
	"lmsr-amm/internal/store"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("AMM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		logger.Error("failed to open store", "error", err, "dir", cfg.Store.DataDir)
		os.Exit(1)
	}

	eng := engine.New(*cfg, st, engine.SystemClock(), logger)

	apiServer := api.NewServer(cfg.Server, eng, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("market maker daemon started",
		"url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
		"data_dir", cfg.Store.DataDir,
		"default_liquidity", cfg.Market.DefaultLiquidity,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if err := apiServer.Stop(); err != nil {
		logger.Error("failed to stop api server", "error", err)
	}
	if err := st.Close(); err != nil {
		logger.Error("failed to close store", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
