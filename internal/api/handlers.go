package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"daytrader/internal/catalog"
	"daytrader/internal/engine"
	"daytrader/internal/journal"
	"daytrader/internal/portfolio"
	"daytrader/internal/wallet"
	"daytrader/pkg/types"
)

// Per-user budget for mutating endpoints: bursts up to 50 requests,
// sustained 25 per second.
const (
	orderBurst = 50
	orderRate  = 25
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Services sit behind the gateway on a private network.
		return true
	},
}

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	engine   *engine.Engine
	ledger   wallet.Ledger
	holdings portfolio.Store
	journal  journal.Journal
	catalog  catalog.Catalog
	hub      *Hub
	secret   []byte
	limiter  *RateLimiter
	logger   *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(eng *engine.Engine, ledger wallet.Ledger, holdings portfolio.Store, j journal.Journal, cat catalog.Catalog, hub *Hub, secret []byte, logger *slog.Logger) *Handlers {
	return &Handlers{
		engine:   eng,
		ledger:   ledger,
		holdings: holdings,
		journal:  j,
		catalog:  cat,
		hub:      hub,
		secret:   secret,
		limiter:  NewRateLimiter(orderBurst, orderRate),
		logger:   logger.With("component", "api-handlers"),
	}
}

// decodeStrict decodes a JSON body, refusing unknown fields so malformed
// client payloads fail loudly instead of being silently ignored.
func decodeStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// engineStatus maps an engine error to an HTTP status code.
func engineStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, engine.ErrUnknownStock):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidOrder),
		errors.Is(err, engine.ErrInsufficientStock),
		errors.Is(err, engine.ErrPortfolioUpdate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleHealth returns a simple liveness response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandlePlaceOrder accepts a new order. Market buys and limit sells only;
// anything else is rejected before it reaches the engine.
func (h *Handlers) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	var req placeOrderRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed order payload")
		return
	}
	if req.StockID == nil || req.IsBuy == nil || req.OrderType == nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "stock_id, is_buy, order_type and quantity are required")
		return
	}
	if *req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be a positive integer")
		return
	}

	switch {
	case *req.IsBuy && types.OrderType(*req.OrderType) != types.OrderTypeMarket:
		writeError(w, http.StatusBadRequest, "buy orders must be MARKET")
		return
	case !*req.IsBuy && types.OrderType(*req.OrderType) != types.OrderTypeLimit:
		writeError(w, http.StatusBadRequest, "sell orders must be LIMIT")
		return
	case !*req.IsBuy && (req.Price == nil || *req.Price <= 0):
		writeError(w, http.StatusBadRequest, "sell orders require price > 0")
		return
	}

	if *req.IsBuy {
		res, err := h.engine.PlaceBuy(r.Context(), claims.UserID, *req.StockID, *req.Quantity)
		if err != nil {
			writeError(w, engineStatus(err), err.Error())
			return
		}
		trades := res.Trades
		if trades == nil {
			trades = []types.TradeDetail{}
		}
		writeJSON(w, http.StatusOK, placeOrderResponse{
			Success:      true,
			OrderStatus:  res.OrderStatus,
			TradeDetails: trades,
			StockTxID:    res.StockTxID,
		})
		return
	}

	res, err := h.engine.PlaceSell(r.Context(), claims.UserID, *req.StockID, *req.Price, *req.Quantity)
	if err != nil {
		writeError(w, engineStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, placeOrderResponse{
		Success:      true,
		OrderStatus:  res.OrderStatus,
		TradeDetails: []types.TradeDetail{},
		StockTxID:    res.StockTxID,
	})
}

// HandleCancel cancels a resting transaction owned by the caller.
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	var req cancelRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed cancel payload")
		return
	}
	if req.StockTxID == nil || *req.StockTxID == "" {
		writeError(w, http.StatusBadRequest, "stock_tx_id is required")
		return
	}

	if err := h.engine.Cancel(r.Context(), claims.UserID, *req.StockTxID); err != nil {
		writeError(w, engineStatus(err), err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// HandleStockPrices returns the best ask per stock, sorted by name.
func (h *Handlers) HandleStockPrices(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.engine.BestPrices(r.Context()))
}

// HandleStockTransactions returns the caller's order history.
func (h *Handlers) HandleStockTransactions(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	txs, err := h.journal.StockTxsByUser(claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "journal unavailable")
		return
	}
	if txs == nil {
		txs = []types.StockTransaction{}
	}
	writeSuccess(w, http.StatusOK, txs)
}

// HandleWalletTransactions returns the caller's money movements.
func (h *Handlers) HandleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	txs, err := h.journal.WalletTxsByUser(claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "journal unavailable")
		return
	}
	if txs == nil {
		txs = []types.WalletTransaction{}
	}
	writeSuccess(w, http.StatusOK, txs)
}

// HandleCreateStock registers a new stock name in the catalog.
func (h *Handlers) HandleCreateStock(w http.ResponseWriter, r *http.Request) {
	var req createStockRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	if req.StockName == nil || *req.StockName == "" {
		writeError(w, http.StatusBadRequest, "stock_name is required")
		return
	}

	id, err := h.catalog.Create(*req.StockName)
	if err != nil {
		if errors.Is(err, catalog.ErrDuplicateName) {
			writeError(w, http.StatusBadRequest, "stock name already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	writeSuccess(w, http.StatusCreated, createStockResponse{StockID: id})
}

// HandleAddStock seeds the caller's portfolio with shares of an existing
// stock.
func (h *Handlers) HandleAddStock(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	var req addStockRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	if req.StockID == nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "stock_id and quantity are required")
		return
	}
	if *req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be a positive integer")
		return
	}
	if !h.catalog.Exists(*req.StockID) {
		writeError(w, http.StatusNotFound, "unknown stock")
		return
	}

	ok, err := h.holdings.ApplyDelta(claims.UserID, *req.StockID, *req.Quantity, h.catalog.NameFor(*req.StockID))
	if err != nil || !ok {
		writeError(w, http.StatusInternalServerError, "portfolio unavailable")
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// HandlePortfolio returns the caller's holdings, stock name descending.
func (h *Handlers) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	entries, err := h.holdings.Entries(claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "portfolio unavailable")
		return
	}
	if entries == nil {
		entries = []types.PortfolioEntry{}
	}
	writeSuccess(w, http.StatusOK, entries)
}

// HandleAddMoney deposits funds into the caller's wallet.
func (h *Handlers) HandleAddMoney(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	var req addMoneyRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	if req.Amount == nil || *req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive integer")
		return
	}

	if err := h.ledger.Add(claims.UserID, *req.Amount); err != nil {
		writeError(w, http.StatusInternalServerError, "wallet unavailable")
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// HandleWalletBalance returns the caller's balance.
func (h *Handlers) HandleWalletBalance(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	bal, err := h.ledger.Balance(claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "wallet unavailable")
		return
	}
	writeSuccess(w, http.StatusOK, walletBalanceResponse{Balance: bal})
}

// HandleMatchOrders re-runs matching for every stock with queued market
// buys and reports the trades it executed.
func (h *Handlers) HandleMatchOrders(w http.ResponseWriter, r *http.Request) {
	trades, err := h.engine.MatchQueued(r.Context())
	if err != nil {
		writeError(w, engineStatus(err), err.Error())
		return
	}
	if trades == nil {
		trades = []types.TradeDetail{}
	}
	writeSuccess(w, http.StatusOK, trades)
}

// HandleWebSocket upgrades the connection and registers a price-stream
// client. The current best prices are sent immediately so the client does
// not wait for the next fill.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn)

	data, err := json.Marshal(NewPriceEvent(h.engine.BestPrices(r.Context())))
	if err != nil {
		h.logger.Error("failed to marshal initial prices", "error", err)
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial prices to client")
	}
}
