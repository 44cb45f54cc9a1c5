// Day Trader matching engine — a multi-user stock trading backend
// matching market buys against resting limit sells.
//
// Architecture:
//
//	main.go             — entry point: loads config, wires ports, waits for SIGINT/SIGTERM
//	engine/engine.go    — order intake: limit sells, cancels, best-price quotes
//	engine/match.go     — matching: market buys, queued-buy re-matching, fills
//	book/book.go        — per-stock order book: btree of asks + FIFO queue of starved buys
//	wallet/ledger.go    — user money balances
//	portfolio/store.go  — user share holdings with sell-side reservation
//	journal/journal.go  — stock/wallet transaction history, JSON file snapshots
//	catalog/catalog.go  — stock id/name registry
//	api/server.go       — HTTP + WebSocket façade with JWT auth
//
// Matching rules:
//
//	Buys are MARKET orders, sells are LIMIT orders. Asks rest in
//	price-time priority; a market buy sweeps the cheapest asks it can
//	afford and any unfilled remainder queues until new liquidity
//	arrives. Fills execute at the resting ask price and every fill
//	moves money and shares atomically.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daytrader/internal/api"
	"daytrader/internal/book"
	"daytrader/internal/catalog"
	"daytrader/internal/config"
	"daytrader/internal/engine"
	"daytrader/internal/journal"
	"daytrader/internal/portfolio"
	"daytrader/internal/wallet"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("DAYTRADER_CONFIG"); p != "" {
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

	ledger := wallet.NewMemoryLedger()
	holdings := portfolio.NewMemoryStore()
	j := journal.NewMemoryJournal()
	cat := catalog.NewMemoryCatalog()

	// Restore journaled history; queued buys and resting sells are not
	// persisted, so the book starts empty.
	var fileStore *journal.FileStore
	if cfg.Journal.Persist {
		fileStore, err = journal.OpenFileStore(cfg.Journal.DataDir)
		if err != nil {
			logger.Error("failed to open journal store", "error", err)
			os.Exit(1)
		}
		snap, err := fileStore.Load()
		if err != nil {
			logger.Error("failed to load journal snapshot", "error", err)
			os.Exit(1)
		}
		if snap != nil {
			j.Restore(*snap)
			logger.Info("journal restored",
				"stock_txs", len(snap.StockTxs),
				"wallet_txs", len(snap.WalletTxs),
			)
		}
	}

	eng := engine.New(book.New(), ledger, holdings, j, cat, logger)
	server := api.NewServer(*cfg, eng, ledger, holdings, j, cat, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("matching engine started",
		"port", cfg.Server.Port,
		"persist", cfg.Journal.Persist,
		"metrics", cfg.Metrics.Enabled,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("failed to stop api server", "error", err)
	}

	if fileStore != nil {
		if err := fileStore.Save(j.Snapshot()); err != nil {
			logger.Error("failed to save journal snapshot", "error", err)
		} else {
			logger.Info("journal snapshot saved", "dir", cfg.Journal.DataDir)
		}
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
