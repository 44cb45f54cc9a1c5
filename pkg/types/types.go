// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the trading backend: order
// enums, journal records, wire envelopes, and price quotes. It has no
// dependencies on internal packages, so it can be imported by any layer.
package types

import "time"

// OrderType distinguishes the two supported order shapes. Buys are always
// MARKET, sells are always LIMIT; every other combination is rejected at
// the façade.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus tracks an order through its lifecycle. Transitions form a DAG:
// IN_PROGRESS → {COMPLETED, PARTIALLY_COMPLETED, CANCELLED}. INCOMPLETE is
// the reported status of a market buy that queued without a single fill.
// Child fill records are born COMPLETED and never change.
type OrderStatus string

const (
	StatusInProgress         OrderStatus = "IN_PROGRESS"
	StatusCompleted          OrderStatus = "COMPLETED"
	StatusPartiallyCompleted OrderStatus = "PARTIALLY_COMPLETED"
	StatusIncomplete         OrderStatus = "INCOMPLETE"
	StatusCancelled          OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed from s.
// PARTIALLY_COMPLETED is not terminal: its queued residual may still fill
// or be cancelled.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// StockTransaction is one row of the stock transaction journal. A parent
// row (ParentStockTxID == nil) records a submitted order; a child row
// records a single partial fill and points back at its parent.
//
// StockPrice is nil while a market buy is queued without a fill, the limit
// price for sells, the fill price on children, and the volume-weighted
// average fill price once a buy parent completes. WalletTxID is nil until
// money has moved for the row.
type StockTransaction struct {
	StockTxID         string      `json:"stock_tx_id"`
	ParentStockTxID   *string     `json:"parent_stock_tx_id"`
	StockID           string      `json:"stock_id"`
	UserID            string      `json:"-"`
	WalletTxID        *string     `json:"wallet_tx_id"`
	OrderStatus       OrderStatus `json:"order_status"`
	IsBuy             bool        `json:"is_buy"`
	OrderType         OrderType   `json:"order_type"`
	StockPrice        *int64      `json:"stock_price"`
	Quantity          int64       `json:"quantity"`
	RemainingQuantity int64       `json:"remaining_quantity"`
	TimeStamp         time.Time   `json:"time_stamp"`
	CancelledAt       *time.Time  `json:"cancelled_at,omitempty"`
}

// WalletTransaction is one entry of a user's wallet movement log. Every
// partial fill appends exactly two entries sharing a WalletTxID: a debit
// for the buyer and a credit for the seller.
type WalletTransaction struct {
	WalletTxID string    `json:"wallet_tx_id"`
	StockTxID  string    `json:"stock_tx_id"`
	IsDebit    bool      `json:"is_debit"`
	Amount     int64     `json:"amount"`
	TimeStamp  time.Time `json:"time_stamp"`
}

// TradeDetail describes one executed partial fill, as returned to the
// submitter of a market buy and from the queued-order matcher.
type TradeDetail struct {
	StockTxID       string    `json:"stock_tx_id"`
	ParentStockTxID string    `json:"parent_stock_tx_id"`
	StockID         string    `json:"stock_id"`
	Quantity        int64     `json:"quantity"`
	Price           int64     `json:"price"`
	BuyerID         string    `json:"buyer_id"`
	SellerID        string    `json:"seller_id"`
	TimeStamp       time.Time `json:"time_stamp"`
}

// PriceQuote is one entry of the best-price snapshot: the lowest current
// ask for a stock that has at least one open sell.
type PriceQuote struct {
	StockID      string `json:"stock_id"`
	StockName    string `json:"stock_name"`
	CurrentPrice int64  `json:"current_price"`
}

// PortfolioEntry is one holding in a user's portfolio. QuantityOwned is
// always positive; zeroed entries are pruned by the store.
type PortfolioEntry struct {
	StockID       string `json:"stock_id"`
	StockName     string `json:"stock_name"`
	QuantityOwned int64  `json:"quantity_owned"`
}
