package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"daytrader/internal/catalog"
	"daytrader/internal/config"
	"daytrader/internal/engine"
	"daytrader/internal/journal"
	"daytrader/internal/portfolio"
	"daytrader/internal/wallet"
)

// Server runs the HTTP/WebSocket API for the matching engine.
type Server struct {
	engine   *engine.Engine
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer wires the routes and returns a server ready to Start.
func NewServer(
	cfg config.Config,
	eng *engine.Engine,
	ledger wallet.Ledger,
	holdings portfolio.Store,
	j journal.Journal,
	cat catalog.Catalog,
	logger *slog.Logger,
) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(eng, ledger, holdings, j, cat, hub, []byte(cfg.Auth.JWTSecret), logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.HandleFunc("POST /placeStockOrder", handlers.requireAuth(handlers.rateLimit(handlers.HandlePlaceOrder)))
	mux.HandleFunc("POST /cancelStockTransaction", handlers.requireAuth(handlers.rateLimit(handlers.HandleCancel)))
	mux.HandleFunc("GET /getStockPrices", handlers.requireAuth(handlers.HandleStockPrices))
	mux.HandleFunc("GET /getStockTransactions", handlers.requireAuth(handlers.HandleStockTransactions))
	mux.HandleFunc("GET /getWalletTransactions", handlers.requireAuth(handlers.HandleWalletTransactions))
	mux.HandleFunc("POST /createStock", handlers.requireAuth(handlers.HandleCreateStock))
	mux.HandleFunc("POST /addStockToUser", handlers.requireAuth(handlers.HandleAddStock))
	mux.HandleFunc("GET /getStockPortfolio", handlers.requireAuth(handlers.HandlePortfolio))
	mux.HandleFunc("POST /addMoneyToWallet", handlers.requireAuth(handlers.HandleAddMoney))
	mux.HandleFunc("GET /getWalletBalance", handlers.requireAuth(handlers.HandleWalletBalance))
	mux.HandleFunc("POST /matchOrders", handlers.requireAuth(handlers.rateLimit(handlers.HandleMatchOrders)))
	mux.HandleFunc("GET /ws", handlers.HandleWebSocket)

	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		engine:   eng,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

// Start runs the hub, the price-update consumer, and the HTTP listener.
// It blocks until the listener stops.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.consumePriceUpdates()

	s.logger.Info("api server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping api server")
	return s.server.Shutdown(ctx)
}

// consumePriceUpdates forwards engine best-price snapshots to the hub.
func (s *Server) consumePriceUpdates() {
	for quotes := range s.engine.PriceUpdates() {
		s.hub.BroadcastPrices(quotes)
	}
}
