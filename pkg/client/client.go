// Package client is the Go client for the matching engine REST API.
//
// It wraps a resty HTTP client with retry on transport errors and 5xx
// responses and attaches the caller's JWT to every request. Responses
// arrive in the service envelope {"success": bool, "data": ...}; the
// client unwraps the envelope and surfaces failures as *APIError.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"daytrader/pkg/types"
)

// APIError is a non-success response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// Client talks to a matching engine instance.
type Client struct {
	http *resty.Client
}

// Option customizes the client.
type Option func(*Client)

// WithTimeout overrides the default 10s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// New creates a client for the service at baseURL authenticating with the
// given JWT.
func New(baseURL, token string, opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("token", token)

	c := &Client{http: httpClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope mirrors the service response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

// unwrap validates the envelope and decodes data into out (a pointer),
// when out is non-nil.
func unwrap(resp *resty.Response, out any) error {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Success {
		var eb errorBody
		_ = json.Unmarshal(env.Data, &eb)
		return &APIError{StatusCode: resp.StatusCode(), Message: eb.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// OrderResult is the outcome of PlaceBuy / PlaceSell.
type OrderResult struct {
	OrderStatus  types.OrderStatus   `json:"order_status"`
	TradeDetails []types.TradeDetail `json:"trade_details"`
	StockTxID    string              `json:"stock_tx_id"`
}

// placeOrder posts an order and decodes the extended order envelope.
func (c *Client) placeOrder(ctx context.Context, body map[string]any) (*OrderResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/placeStockOrder")
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	var wire struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		OrderResult
	}
	if err := json.Unmarshal(resp.Body(), &wire); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	if !wire.Success {
		var eb errorBody
		_ = json.Unmarshal(wire.Data, &eb)
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: eb.Error}
	}
	result := wire.OrderResult
	return &result, nil
}

// PlaceBuy submits a MARKET buy.
func (c *Client) PlaceBuy(ctx context.Context, stockID string, quantity int64) (*OrderResult, error) {
	return c.placeOrder(ctx, map[string]any{
		"stock_id":   stockID,
		"is_buy":     true,
		"order_type": string(types.OrderTypeMarket),
		"quantity":   quantity,
	})
}

// PlaceSell submits a LIMIT sell.
func (c *Client) PlaceSell(ctx context.Context, stockID string, price, quantity int64) (*OrderResult, error) {
	return c.placeOrder(ctx, map[string]any{
		"stock_id":   stockID,
		"is_buy":     false,
		"order_type": string(types.OrderTypeLimit),
		"quantity":   quantity,
		"price":      price,
	})
}

// Cancel cancels a resting transaction.
func (c *Client) Cancel(ctx context.Context, stockTxID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"stock_tx_id": stockTxID}).
		Post("/cancelStockTransaction")
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	return unwrap(resp, nil)
}

// StockPrices returns the best ask per stock, sorted by name descending.
func (c *Client) StockPrices(ctx context.Context) ([]types.PriceQuote, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/getStockPrices")
	if err != nil {
		return nil, fmt.Errorf("stock prices: %w", err)
	}
	var quotes []types.PriceQuote
	if err := unwrap(resp, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// StockTransactions returns the caller's order history.
func (c *Client) StockTransactions(ctx context.Context) ([]types.StockTransaction, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/getStockTransactions")
	if err != nil {
		return nil, fmt.Errorf("stock transactions: %w", err)
	}
	var txs []types.StockTransaction
	if err := unwrap(resp, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// WalletTransactions returns the caller's money movements.
func (c *Client) WalletTransactions(ctx context.Context) ([]types.WalletTransaction, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/getWalletTransactions")
	if err != nil {
		return nil, fmt.Errorf("wallet transactions: %w", err)
	}
	var txs []types.WalletTransaction
	if err := unwrap(resp, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// CreateStock registers a new stock name and returns its id.
func (c *Client) CreateStock(ctx context.Context, name string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"stock_name": name}).
		Post("/createStock")
	if err != nil {
		return "", fmt.Errorf("create stock: %w", err)
	}
	var out struct {
		StockID string `json:"stock_id"`
	}
	if err := unwrap(resp, &out); err != nil {
		return "", err
	}
	return out.StockID, nil
}

// AddStockToUser seeds the caller's portfolio with shares.
func (c *Client) AddStockToUser(ctx context.Context, stockID string, quantity int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"stock_id": stockID, "quantity": quantity}).
		Post("/addStockToUser")
	if err != nil {
		return fmt.Errorf("add stock: %w", err)
	}
	return unwrap(resp, nil)
}

// Portfolio returns the caller's holdings.
func (c *Client) Portfolio(ctx context.Context) ([]types.PortfolioEntry, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/getStockPortfolio")
	if err != nil {
		return nil, fmt.Errorf("portfolio: %w", err)
	}
	var entries []types.PortfolioEntry
	if err := unwrap(resp, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// AddMoney deposits funds into the caller's wallet.
func (c *Client) AddMoney(ctx context.Context, amount int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"amount": amount}).
		Post("/addMoneyToWallet")
	if err != nil {
		return fmt.Errorf("add money: %w", err)
	}
	return unwrap(resp, nil)
}

// WalletBalance returns the caller's balance.
func (c *Client) WalletBalance(ctx context.Context) (int64, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/getWalletBalance")
	if err != nil {
		return 0, fmt.Errorf("wallet balance: %w", err)
	}
	var out struct {
		Balance int64 `json:"balance"`
	}
	if err := unwrap(resp, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

// MatchOrders triggers matching for queued market buys and returns the
// trades it executed.
func (c *Client) MatchOrders(ctx context.Context) ([]types.TradeDetail, error) {
	resp, err := c.http.R().SetContext(ctx).Post("/matchOrders")
	if err != nil {
		return nil, fmt.Errorf("match orders: %w", err)
	}
	var trades []types.TradeDetail
	if err := unwrap(resp, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}
