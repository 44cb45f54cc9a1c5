package api

// placeOrderRequest is the body of POST /engine/placeStockOrder. Pointer
// fields distinguish absent from zero so validation can report the exact
// missing key.
type placeOrderRequest struct {
	StockID   *string `json:"stock_id"`
	IsBuy     *bool   `json:"is_buy"`
	OrderType *string `json:"order_type"`
	Quantity  *int64  `json:"quantity"`
	Price     *int64  `json:"price"`
}

// cancelRequest is the body of POST /engine/cancelStockTransaction.
type cancelRequest struct {
	StockTxID *string `json:"stock_tx_id"`
}

// createStockRequest is the body of POST /setup/createStock.
type createStockRequest struct {
	StockName *string `json:"stock_name"`
}

type createStockResponse struct {
	StockID string `json:"stock_id"`
}

// addStockRequest is the body of POST /setup/addStockToUser.
type addStockRequest struct {
	StockID  *string `json:"stock_id"`
	Quantity *int64  `json:"quantity"`
}

// addMoneyRequest is the body of POST /transaction/addMoneyToWallet.
type addMoneyRequest struct {
	Amount *int64 `json:"amount"`
}

type walletBalanceResponse struct {
	Balance int64 `json:"balance"`
}
