package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"daytrader/internal/book"
	"daytrader/internal/journal"
	"daytrader/internal/metrics"
	"daytrader/pkg/types"
)

// PlaceBuy accepts a MARKET buy and matches it immediately against the
// sell side under the stock lock. Fills execute at the resting ask, never
// at a buyer-supplied price. When the buyer cannot afford the full head
// quantity the fill is clamped to floor(balance/price); a clamp to zero
// ends matching. Any unfilled residual is queued as a market buy.
func (e *Engine) PlaceBuy(ctx context.Context, userID, stockID string, quantity int64) (*BuyResult, error) {
	if quantity <= 0 {
		metrics.OrdersRejected.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	if !e.catalog.Exists(stockID) {
		metrics.OrdersRejected.WithLabelValues("unknown_stock").Inc()
		return nil, ErrUnknownStock
	}

	now := time.Now()
	parentID := uuid.NewString()
	parent := types.StockTransaction{
		StockTxID:         parentID,
		StockID:           stockID,
		UserID:            userID,
		OrderStatus:       types.StatusInProgress,
		IsBuy:             true,
		OrderType:         types.OrderTypeMarket,
		Quantity:          quantity,
		RemainingQuantity: quantity,
		TimeStamp:         now,
	}
	if err := e.journal.InsertStockTx(parent); err != nil {
		return nil, fmt.Errorf("journal buy: %w", err)
	}

	ins, unlock := e.book.Lock(stockID)

	remaining := quantity
	var trades []types.TradeDetail
	var depErr error
	for remaining > 0 {
		head := ins.PeekSell(userID)
		if head == nil {
			break
		}

		fillQty := min(remaining, head.Remaining)
		balance, err := e.ledger.Balance(userID)
		if err != nil {
			depErr = fmt.Errorf("read wallet: %w", err)
			break
		}
		if balance < fillQty*head.Price {
			affordable := balance / head.Price
			if affordable == 0 {
				break
			}
			fillQty = affordable
		}

		detail, err := e.executeFill(ins, parentID, userID, head, fillQty)
		if err != nil {
			depErr = err
			break
		}
		trades = append(trades, detail)
		remaining -= fillQty
	}

	status := e.finalizeBuy(ins, parentID, userID, stockID, quantity, remaining, now)
	unlock()

	metrics.OrdersPlaced.WithLabelValues("market_buy").Inc()
	e.logger.Info("buy processed",
		"user", userID, "stock", stockID, "quantity", quantity,
		"filled", quantity-remaining, "status", status, "tx", parentID)
	e.publishPrices()

	if depErr != nil {
		return nil, depErr
	}
	return &BuyResult{StockTxID: parentID, OrderStatus: status, Trades: trades}, nil
}

// MatchQueued drains queued market buys against current liquidity. It is
// an explicit trigger: nothing happens in the background. Fills use the
// same semantics as PlaceBuy and attach children to the pre-existing
// parents; no new parent transactions are created. A queued buy whose
// owner cannot afford one share at the best non-self ask stays queued and
// the next queued buy is tried.
func (e *Engine) MatchQueued(ctx context.Context) ([]types.TradeDetail, error) {
	var all []types.TradeDetail

	for _, stockID := range e.book.StocksWithQueuedBuys() {
		ins, unlock := e.book.Lock(stockID)

		for _, q := range ins.QueuedBuys() {
			for q.Remaining > 0 {
				head := ins.PeekSell(q.UserID)
				if head == nil {
					break
				}

				fillQty := min(q.Remaining, head.Remaining)
				balance, err := e.ledger.Balance(q.UserID)
				if err != nil {
					unlock()
					return all, fmt.Errorf("read wallet: %w", err)
				}
				if balance < fillQty*head.Price {
					affordable := balance / head.Price
					if affordable == 0 {
						break
					}
					fillQty = affordable
				}

				detail, err := e.executeFill(ins, q.ParentStockTxID, q.UserID, head, fillQty)
				if err != nil {
					unlock()
					return all, err
				}
				all = append(all, detail)
				ins.ConsumeQueuedBuy(q.ParentStockTxID, fillQty)

				if err := e.settleQueuedParent(q); err != nil {
					unlock()
					return all, err
				}
			}
		}
		unlock()
	}

	if len(all) > 0 {
		e.publishPrices()
	}
	return all, nil
}

// settleQueuedParent updates a queued buy's parent after a fill: final
// VWAP and completion when the queue entry drained, otherwise the new
// residual quantity.
func (e *Engine) settleQueuedParent(q *book.QueuedBuy) error {
	remaining := q.Remaining
	patch := journal.StockTxPatch{RemainingQuantity: &remaining}

	if remaining == 0 {
		children, err := e.journal.ChildrenOf(q.ParentStockTxID)
		if err != nil {
			return fmt.Errorf("read children: %w", err)
		}
		status := types.StatusCompleted
		avg := vwap(children)
		orderWalletTx := uuid.NewString()
		patch.Status = &status
		patch.StockPrice = &avg
		patch.WalletTxID = &orderWalletTx
		metrics.QueuedBuys.Dec()
	} else {
		status := types.StatusPartiallyCompleted
		patch.Status = &status
	}

	if err := e.journal.UpdateStockTx(q.ParentStockTxID, patch); err != nil {
		return fmt.Errorf("journal queued parent: %w", err)
	}
	return nil
}

// executeFill performs one partial fill between buyer and the resting
// sell at the head: portfolio credit, zero-sum wallet movement, book
// consumption, the child transaction, and the paired wallet log entries.
// The caller holds the stock lock.
func (e *Engine) executeFill(ins *book.Instrument, parentTxID, buyerID string, head *book.SellEntry, qty int64) (types.TradeDetail, error) {
	now := time.Now()
	sellerID := head.UserID
	sellTxID := head.StockTxID
	price := head.Price
	value := qty * price
	sellerRemaining := head.Remaining - qty

	if _, err := e.holdings.ApplyDelta(buyerID, head.StockID, qty, head.StockName); err != nil {
		return types.TradeDetail{}, fmt.Errorf("credit holdings: %w", err)
	}
	// Seller is credited first so the ledger total never dips; the two
	// sides together are zero-sum.
	if err := e.ledger.Add(sellerID, value); err != nil {
		return types.TradeDetail{}, fmt.Errorf("credit seller: %w", err)
	}
	if err := e.ledger.Add(buyerID, -value); err != nil {
		return types.TradeDetail{}, fmt.Errorf("debit buyer: %w", err)
	}

	ins.ConsumeSell(sellTxID, qty)

	childID := uuid.NewString()
	walletTxID := uuid.NewString()
	fillPrice := price
	parentRef := parentTxID
	child := types.StockTransaction{
		StockTxID:       childID,
		ParentStockTxID: &parentRef,
		StockID:         head.StockID,
		UserID:          buyerID,
		WalletTxID:      &walletTxID,
		OrderStatus:     types.StatusCompleted,
		IsBuy:           true,
		OrderType:       types.OrderTypeMarket,
		StockPrice:      &fillPrice,
		Quantity:        qty,
		TimeStamp:       now,
	}
	if err := e.journal.InsertStockTx(child); err != nil {
		return types.TradeDetail{}, fmt.Errorf("journal child: %w", err)
	}
	if err := e.journal.AppendWalletTx(buyerID, types.WalletTransaction{
		WalletTxID: walletTxID, StockTxID: childID, IsDebit: true, Amount: value, TimeStamp: now,
	}); err != nil {
		return types.TradeDetail{}, fmt.Errorf("journal buyer wallet tx: %w", err)
	}
	if err := e.journal.AppendWalletTx(sellerID, types.WalletTransaction{
		WalletTxID: walletTxID, StockTxID: childID, IsDebit: false, Amount: value, TimeStamp: now,
	}); err != nil {
		return types.TradeDetail{}, fmt.Errorf("journal seller wallet tx: %w", err)
	}

	// Reflect the fill on the seller's parent sell transaction.
	sellPatch := journal.StockTxPatch{RemainingQuantity: &sellerRemaining}
	if sellerRemaining == 0 {
		status := types.StatusCompleted
		sellPatch.Status = &status
		sellPatch.WalletTxID = &walletTxID
	} else {
		status := types.StatusPartiallyCompleted
		sellPatch.Status = &status
	}
	if err := e.journal.UpdateStockTx(sellTxID, sellPatch); err != nil {
		return types.TradeDetail{}, fmt.Errorf("journal sell parent: %w", err)
	}

	metrics.FillsTotal.Inc()
	metrics.SharesTraded.Add(float64(qty))
	metrics.ValueTraded.Add(float64(value))
	e.logger.Info("fill executed",
		"stock", head.StockID, "buyer", buyerID, "seller", sellerID,
		"quantity", qty, "price", price, "parent", parentTxID)

	return types.TradeDetail{
		StockTxID:       childID,
		ParentStockTxID: parentTxID,
		StockID:         head.StockID,
		Quantity:        qty,
		Price:           price,
		BuyerID:         buyerID,
		SellerID:        sellerID,
		TimeStamp:       now,
	}, nil
}

// finalizeBuy journals the terminal state of a PlaceBuy call and queues
// any residual. The caller holds the stock lock.
func (e *Engine) finalizeBuy(ins *book.Instrument, parentID, userID, stockID string, quantity, remaining int64, acceptedAt time.Time) types.OrderStatus {
	patch := journal.StockTxPatch{RemainingQuantity: &remaining}
	var status types.OrderStatus

	switch {
	case remaining == 0:
		status = types.StatusCompleted
		children, err := e.journal.ChildrenOf(parentID)
		if err == nil {
			avg := vwap(children)
			orderWalletTx := uuid.NewString()
			patch.StockPrice = &avg
			patch.WalletTxID = &orderWalletTx
		} else {
			e.logger.Error("failed to read children for VWAP", "parent", parentID, "error", err)
		}
	case remaining < quantity:
		status = types.StatusPartiallyCompleted
	default:
		status = types.StatusIncomplete
	}

	if remaining > 0 {
		ins.AddQueuedBuy(&book.QueuedBuy{
			UserID:          userID,
			StockID:         stockID,
			Remaining:       remaining,
			AcceptedAt:      acceptedAt,
			ParentStockTxID: parentID,
		})
		metrics.QueuedBuys.Inc()
	}

	patch.Status = &status
	if err := e.journal.UpdateStockTx(parentID, patch); err != nil {
		e.logger.Error("failed to finalize buy parent", "parent", parentID, "error", err)
	}
	return status
}

// vwap returns the volume-weighted average fill price across child
// transactions, truncated toward zero.
func vwap(children []types.StockTransaction) int64 {
	var qty, value int64
	for _, c := range children {
		if c.StockPrice == nil {
			continue
		}
		qty += c.Quantity
		value += c.Quantity * *c.StockPrice
	}
	if qty == 0 {
		return 0
	}
	return value / qty
}
