// Package engine implements the matching engine core.
//
// It mediates every update to the four ports (wallet ledger, portfolio
// store, transaction journal, stock catalog) and owns the order book:
//
//  1. PlaceSell reserves the seller's shares and rests a limit sell.
//  2. PlaceBuy walks the sell side under the stock lock, executing partial
//     fills until filled, out of liquidity, or out of money; the residual
//     is queued as a market buy.
//  3. MatchQueued is the explicit trigger that drains queued market buys
//     against fresh liquidity. It never creates new parent transactions.
//  4. Cancel removes a resting entry and, for sells, restores the
//     reserved shares.
//  5. BestPrices snapshots the lowest ask per stock.
//
// Every operation that can move a best price publishes a fresh snapshot on
// the PriceUpdates channel for the façade's live stream.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"daytrader/internal/book"
	"daytrader/internal/catalog"
	"daytrader/internal/journal"
	"daytrader/internal/metrics"
	"daytrader/internal/portfolio"
	"daytrader/internal/wallet"
	"daytrader/pkg/types"
)

// Engine is the matching engine. All fields are set at construction and
// never change; per-stock mutual exclusion lives in the order book.
type Engine struct {
	book     *book.Book
	ledger   wallet.Ledger
	holdings portfolio.Store
	journal  journal.Journal
	catalog  catalog.Catalog
	logger   *slog.Logger

	priceCh chan []types.PriceQuote
}

// New wires a matching engine over the given ports.
func New(b *book.Book, ledger wallet.Ledger, holdings portfolio.Store, j journal.Journal, cat catalog.Catalog, logger *slog.Logger) *Engine {
	return &Engine{
		book:     b,
		ledger:   ledger,
		holdings: holdings,
		journal:  j,
		catalog:  cat,
		logger:   logger.With("component", "engine"),
		priceCh:  make(chan []types.PriceQuote, 16),
	}
}

// PriceUpdates returns the channel carrying best-price snapshots emitted
// after operations that can move a head price. Slow consumers miss
// snapshots rather than blocking the engine.
func (e *Engine) PriceUpdates() <-chan []types.PriceQuote {
	return e.priceCh
}

func (e *Engine) publishPrices() {
	select {
	case e.priceCh <- e.book.BestSells():
	default:
	}
}

// BuyResult is the outcome of PlaceBuy returned to the façade.
type BuyResult struct {
	StockTxID   string
	OrderStatus types.OrderStatus
	Trades      []types.TradeDetail
}

// SellResult is the outcome of PlaceSell.
type SellResult struct {
	StockTxID   string
	OrderStatus types.OrderStatus
}

// PlaceSell accepts a LIMIT sell: it reserves quantity shares out of the
// seller's portfolio, journals the parent transaction, and rests the
// order on the sell side. Wallet balances are untouched until match time.
func (e *Engine) PlaceSell(ctx context.Context, userID, stockID string, price, quantity int64) (*SellResult, error) {
	if price <= 0 || quantity <= 0 {
		metrics.OrdersRejected.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: price and quantity must be positive", ErrInvalidOrder)
	}
	if !e.catalog.Exists(stockID) {
		metrics.OrdersRejected.WithLabelValues("unknown_stock").Inc()
		return nil, ErrUnknownStock
	}

	owned, err := e.holdings.Qty(userID, stockID)
	if err != nil {
		return nil, fmt.Errorf("read holdings: %w", err)
	}
	if owned < quantity {
		metrics.OrdersRejected.WithLabelValues("insufficient_stock").Inc()
		return nil, ErrInsufficientStock
	}

	// Reservation: the shares leave the portfolio now and come back only
	// on cancel.
	ok, err := e.holdings.ApplyDelta(userID, stockID, -quantity, "")
	if err != nil {
		return nil, fmt.Errorf("reserve holdings: %w", err)
	}
	if !ok {
		return nil, ErrPortfolioUpdate
	}

	now := time.Now()
	txID := uuid.NewString()
	sellPrice := price
	parent := types.StockTransaction{
		StockTxID:         txID,
		StockID:           stockID,
		UserID:            userID,
		OrderStatus:       types.StatusInProgress,
		IsBuy:             false,
		OrderType:         types.OrderTypeLimit,
		StockPrice:        &sellPrice,
		Quantity:          quantity,
		RemainingQuantity: quantity,
		TimeStamp:         now,
	}
	if err := e.journal.InsertStockTx(parent); err != nil {
		// Give the shares back; the order never existed.
		if _, rerr := e.holdings.ApplyDelta(userID, stockID, quantity, e.catalog.NameFor(stockID)); rerr != nil {
			e.logger.Error("failed to restore reservation after journal error",
				"user", userID, "stock", stockID, "error", rerr)
		}
		return nil, fmt.Errorf("journal sell: %w", err)
	}

	ins, unlock := e.book.Lock(stockID)
	ins.AddSell(e.book, &book.SellEntry{
		UserID:     userID,
		StockID:    stockID,
		StockName:  e.catalog.NameFor(stockID),
		Price:      price,
		Remaining:  quantity,
		AcceptedAt: now,
		StockTxID:  txID,
	})
	unlock()

	metrics.OrdersPlaced.WithLabelValues("limit_sell").Inc()
	e.logger.Info("sell accepted",
		"user", userID, "stock", stockID, "price", price, "quantity", quantity, "tx", txID)
	e.publishPrices()

	return &SellResult{StockTxID: txID, OrderStatus: types.StatusInProgress}, nil
}

// Cancel removes the caller's resting order identified by stock
// transaction id. A target that has already matched or been cancelled is
// reported as not found; nothing is partially undone. Cancelling a sell
// restores the reserved shares; cancelling a queued market buy restores
// nothing because nothing was reserved.
func (e *Engine) Cancel(ctx context.Context, userID, stockTxID string) error {
	tx, err := e.journal.StockTx(stockTxID)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	if tx == nil || tx.UserID != userID || tx.OrderStatus.Terminal() {
		return ErrNotFound
	}

	ins, unlock := e.book.Lock(tx.StockID)
	removed, ok := ins.RemoveByTx(userID, stockTxID)
	unlock()
	if !ok {
		// Raced with a match that consumed the entry.
		return ErrNotFound
	}

	now := time.Now()
	status := types.StatusCancelled
	if err := e.journal.UpdateStockTx(stockTxID, journal.StockTxPatch{
		Status:      &status,
		CancelledAt: &now,
	}); err != nil {
		return fmt.Errorf("journal cancel: %w", err)
	}

	side := "buy"
	if removed.Side == book.SideSell {
		side = "sell"
		name := removed.StockName
		if name == "" {
			name = e.catalog.NameFor(tx.StockID)
		}
		if _, err := e.holdings.ApplyDelta(userID, tx.StockID, removed.Quantity, name); err != nil {
			return fmt.Errorf("restore reservation: %w", err)
		}
	} else {
		metrics.QueuedBuys.Dec()
	}

	metrics.CancelsTotal.WithLabelValues(side).Inc()
	e.logger.Info("order cancelled", "user", userID, "tx", stockTxID, "side", side, "restored", removed.Quantity)
	e.publishPrices()
	return nil
}

// BestPrices returns the lowest current ask for every stock with an open
// sell, sorted by stock name.
func (e *Engine) BestPrices(ctx context.Context) []types.PriceQuote {
	return e.book.BestSells()
}
