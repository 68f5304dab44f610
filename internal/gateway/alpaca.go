package gateway

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"foliodesk/internal/domain"
)

// Compile-time interface checks.
var _ MarketDataGateway = (*AlpacaGateway)(nil)
var _ AccountGateway = (*AlpacaGateway)(nil)
var _ ExecutionGateway = (*AlpacaGateway)(nil)

// AlpacaGateway implements the gateway interfaces against the Alpaca
// brokerage: trading API for account state and execution, market-data API
// for quotes. The account is identified by the API credentials, so the
// accountID argument is ignored.
type AlpacaGateway struct {
	trading *alpaca.Client
	data    *marketdata.Client
}

// NewAlpacaGateway creates an AlpacaGateway configured with the given
// credentials and API endpoints.
func NewAlpacaGateway(apiKey, apiSecret, baseURL, dataURL string) *AlpacaGateway {
	tradingOpts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if baseURL != "" {
		tradingOpts.BaseURL = baseURL
	}

	dataOpts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		dataOpts.BaseURL = dataURL
	}

	return &AlpacaGateway{
		trading: alpaca.NewClient(tradingOpts),
		data:    marketdata.NewClient(dataOpts),
	}
}

// ListInstruments returns all active tradable assets.
func (g *AlpacaGateway) ListInstruments(_ context.Context) ([]domain.Instrument, error) {
	status := "active"
	assets, err := g.trading.GetAssets(alpaca.GetAssetsRequest{Status: status})
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}

	instruments := make([]domain.Instrument, 0, len(assets))
	for _, a := range assets {
		if !a.Tradable {
			continue
		}
		instruments = append(instruments, domain.Instrument{Symbol: a.Symbol, Name: a.Name})
	}
	return instruments, nil
}

// GetQuote returns the latest trade price for symbol.
func (g *AlpacaGateway) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	trade, err := g.data.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return nil, fmt.Errorf("GetLatestTrade(%s): %w", symbol, err)
	}

	return &domain.Quote{
		Symbol:     symbol,
		Price:      decimal.NewFromFloat(trade.Price),
		ObservedAt: trade.Timestamp,
	}, nil
}

// GetBalance returns the account's cash balance.
func (g *AlpacaGateway) GetBalance(_ context.Context, _ string) (decimal.Decimal, error) {
	account, err := g.trading.GetAccount()
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetAccount: %w", err)
	}
	return account.Cash, nil
}

// GetHoldings returns all open positions as holdings.
func (g *AlpacaGateway) GetHoldings(_ context.Context, _ string) ([]domain.Holding, error) {
	positions, err := g.trading.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("GetPositions: %w", err)
	}

	holdings := make([]domain.Holding, 0, len(positions))
	for _, p := range positions {
		holdings = append(holdings, domain.Holding{
			Symbol:   p.Symbol,
			Quantity: p.Qty,
			AvgPrice: p.AvgEntryPrice,
		})
	}
	return holdings, nil
}

// SubmitOrder places the ticket as a day order. The signed ticket quantity
// is split back into an unsigned quantity and an explicit side, which is
// how the Alpaca API expects it.
func (g *AlpacaGateway) SubmitOrder(_ context.Context, ticket *domain.OrderTicket) error {
	side := alpaca.Buy
	qty := ticket.Quantity
	if qty.IsNegative() {
		side = alpaca.Sell
		qty = qty.Neg()
	}

	req := alpaca.PlaceOrderRequest{
		Symbol:      ticket.Symbol,
		Qty:         &qty,
		Side:        side,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	}
	if ticket.OrderType == domain.OrderTypeLimit {
		price := ticket.Price
		req.Type = alpaca.Limit
		req.LimitPrice = &price
	}

	if _, err := g.trading.PlaceOrder(req); err != nil {
		return fmt.Errorf("PlaceOrder(%s): %w", ticket.Symbol, err)
	}
	return nil
}
