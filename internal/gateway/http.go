package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"foliodesk/internal/domain"
)

// Compile-time interface checks.
var _ MarketDataGateway = (*HTTPGateway)(nil)
var _ AccountGateway = (*HTTPGateway)(nil)
var _ ExecutionGateway = (*HTTPGateway)(nil)

// HTTPGateway implements all three gateway interfaces against the foliodesk
// backend REST service: /data for market data, /user for account state, and
// /transaction for order execution.
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPGateway creates an HTTPGateway targeting the service at baseURL.
func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type instrumentBody struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

type quoteBody struct {
	Ticker string          `json:"ticker"`
	Close  decimal.Decimal `json:"Close"`
	AsOf   time.Time       `json:"asOf"`
}

type holdingBody struct {
	Ticker   string          `json:"ticker"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

type ticketBody struct {
	UserID    string          `json:"user_id"`
	Ticker    string          `json:"ticker"`
	OrderType string          `json:"orderType"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp string          `json:"timestamp"`
}

// ---------------------------------------------------------------------------
// MarketDataGateway implementation
// ---------------------------------------------------------------------------

// ListInstruments fetches the full instrument list from GET /data/.
func (g *HTTPGateway) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	var body []instrumentBody
	if err := g.getJSON(ctx, "/data/", &body); err != nil {
		return nil, fmt.Errorf("listing instruments: %w", err)
	}

	instruments := make([]domain.Instrument, 0, len(body))
	for _, b := range body {
		instruments = append(instruments, domain.Instrument{Symbol: b.Ticker, Name: b.Name})
	}
	return instruments, nil
}

// GetQuote fetches the latest quote for symbol from GET /data/{symbol}.
func (g *HTTPGateway) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	var body quoteBody
	if err := g.getJSON(ctx, "/data/"+url.PathEscape(symbol), &body); err != nil {
		return nil, fmt.Errorf("getting quote for %s: %w", symbol, err)
	}

	observed := body.AsOf
	if observed.IsZero() {
		observed = time.Now()
	}
	return &domain.Quote{Symbol: symbol, Price: body.Close, ObservedAt: observed}, nil
}

// ---------------------------------------------------------------------------
// AccountGateway implementation
// ---------------------------------------------------------------------------

// GetBalance fetches the cash balance from GET /user/{id}/balance.
func (g *HTTPGateway) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := g.getJSON(ctx, "/user/"+url.PathEscape(accountID)+"/balance", &balance); err != nil {
		return decimal.Zero, fmt.Errorf("getting balance for account %s: %w", accountID, err)
	}
	return balance, nil
}

// GetHoldings fetches current holdings from GET /user/{id}/holdings.
func (g *HTTPGateway) GetHoldings(ctx context.Context, accountID string) ([]domain.Holding, error) {
	var body []holdingBody
	if err := g.getJSON(ctx, "/user/"+url.PathEscape(accountID)+"/holdings", &body); err != nil {
		return nil, fmt.Errorf("getting holdings for account %s: %w", accountID, err)
	}

	holdings := make([]domain.Holding, 0, len(body))
	for _, b := range body {
		holdings = append(holdings, domain.Holding{
			Symbol:   b.Ticker,
			Quantity: b.Quantity,
			AvgPrice: b.AvgPrice,
		})
	}
	return holdings, nil
}

// ---------------------------------------------------------------------------
// ExecutionGateway implementation
// ---------------------------------------------------------------------------

// SubmitOrder posts the ticket to POST /transaction/. Quantity stays signed
// on the wire: negative magnitude for sells.
func (g *HTTPGateway) SubmitOrder(ctx context.Context, ticket *domain.OrderTicket) error {
	body := ticketBody{
		UserID:    ticket.AccountID,
		Ticker:    ticket.Symbol,
		OrderType: string(ticket.OrderType),
		Quantity:  ticket.Quantity,
		Price:     ticket.Price,
		Timestamp: ticket.Timestamp.Format(time.RFC3339),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding order ticket: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transaction/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submitting order for %s: %w", ticket.Symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("submitting order for %s: status %d: %s", ticket.Symbol, resp.StatusCode, msg)
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP helpers
// ---------------------------------------------------------------------------

func (g *HTTPGateway) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", path, err)
	}
	return nil
}
