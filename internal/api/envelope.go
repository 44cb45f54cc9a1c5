package api

import (
	"encoding/json"
	"net/http"

	"daytrader/pkg/types"
)

// envelope is the uniform response shape every endpoint returns:
// {"success": true, "data": ...} or {"success": false, "data": {"error": ...}}.
// The shape is part of the external contract shared with the other services.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// placeOrderResponse extends the envelope with the order outcome fields
// clients read after submitting an order.
type placeOrderResponse struct {
	Success      bool                `json:"success"`
	Data         any                 `json:"data"`
	OrderStatus  types.OrderStatus   `json:"order_status"`
	TradeDetails []types.TradeDetail `json:"trade_details"`
	StockTxID    string              `json:"stock_tx_id"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Data: errorBody{Error: msg}})
}
