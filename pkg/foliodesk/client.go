// Package foliodesk provides a Go SDK for the foliodesk dashboard API.
package foliodesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is an HTTP client for the foliodesk-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API served at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ---------------------------------------------------------------------------
// Response types
// ---------------------------------------------------------------------------

// Instrument is one tradable instrument.
type Instrument struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Quote is the latest observed price for a symbol.
type Quote struct {
	Symbol     string `json:"symbol"`
	Price      string `json:"price"`
	ObservedAt int64  `json:"observedAt"` // unix milliseconds
}

// PricePoint is one charted price observation.
type PricePoint struct {
	Time  int64   `json:"time"` // unix milliseconds
	Price float64 `json:"price"`
}

// Holding is one open position, marked at the latest quote.
type Holding struct {
	Symbol         string `json:"symbol"`
	Quantity       string `json:"quantity"`
	AvgPrice       string `json:"avgPrice"`
	Price          string `json:"price"`
	MarketValue    string `json:"marketValue"`
	UnrealizedGain string `json:"unrealizedGain"`
}

// Account holds the cash balance and open positions.
type Account struct {
	AccountID string    `json:"accountId"`
	Balance   string    `json:"balance"`
	Holdings  []Holding `json:"holdings"`
}

// AllocationSlice is one instrument's share of portfolio value.
type AllocationSlice struct {
	Symbol string  `json:"symbol"`
	Value  string  `json:"value"`
	Weight float64 `json:"weight"`
}

// Allocation breaks portfolio value down per instrument.
type Allocation struct {
	Total  string            `json:"total"`
	Slices []AllocationSlice `json:"slices"`
}

// Transaction is one recorded order submission.
type Transaction struct {
	ID        int64  `json:"id"`
	Symbol    string `json:"symbol"`
	OrderType string `json:"orderType"`
	Quantity  string `json:"quantity"`
	Price     string `json:"price"`
	Total     string `json:"total"`
	Timestamp string `json:"timestamp"`
}

// OrderRequest is the order submission body.
type OrderRequest struct {
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	OrderType  string `json:"orderType"`
	Quantity   string `json:"quantity"`
	LimitPrice string `json:"limitPrice,omitempty"`
}

// OrderResponse reports the validation and submission outcome.
type OrderResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
	Total    string `json:"total,omitempty"`
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// Instruments lists instruments, filtered by the search term when it is
// non-empty.
func (c *Client) Instruments(ctx context.Context, q string) ([]Instrument, error) {
	u := c.baseURL + "/api/instruments"
	if q != "" {
		u += "?q=" + url.QueryEscape(q)
	}
	var out struct {
		Instruments []Instrument `json:"instruments"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	return out.Instruments, nil
}

// Quote returns the latest price for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	var out Quote
	if err := c.getJSON(ctx, c.baseURL+"/api/quote/"+url.PathEscape(symbol), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns price points for a symbol within [start, end]. Zero times
// leave the bound to the server default.
func (c *Client) History(ctx context.Context, symbol string, start, end time.Time) ([]PricePoint, error) {
	u := c.baseURL + "/api/history/" + url.PathEscape(symbol)
	params := url.Values{}
	if !start.IsZero() {
		params.Set("start", start.UTC().Format(time.RFC3339))
	}
	if !end.IsZero() {
		params.Set("end", end.UTC().Format(time.RFC3339))
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var out struct {
		Points []PricePoint `json:"points"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	return out.Points, nil
}

// Account returns the cash balance and open positions.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	var out Account
	if err := c.getJSON(ctx, c.baseURL+"/api/account", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Allocation returns the per-instrument portfolio breakdown.
func (c *Client) Allocation(ctx context.Context) (*Allocation, error) {
	var out Allocation
	if err := c.getJSON(ctx, c.baseURL+"/api/allocation", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transactions lists recorded transactions newest-first, up to limit
// (0 means no limit).
func (c *Client) Transactions(ctx context.Context, limit int) ([]Transaction, error) {
	u := c.baseURL + "/api/transactions"
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// SubmitOrder submits a draft order for validation and execution.
func (c *Client) SubmitOrder(ctx context.Context, order OrderRequest) (*OrderResponse, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("encoding order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submitting order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var out OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding order response: %w", err)
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// apiError extracts the server's error message when one is present.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("api: %s (status %d)", body.Error, resp.StatusCode)
	}
	return fmt.Errorf("api: unexpected status %d", resp.StatusCode)
}
