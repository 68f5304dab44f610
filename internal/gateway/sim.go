package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"foliodesk/internal/domain"
)

// Compile-time interface checks.
var _ MarketDataGateway = (*SimGateway)(nil)
var _ AccountGateway = (*SimGateway)(nil)
var _ ExecutionGateway = (*SimGateway)(nil)

// SimGateway implements all three gateway interfaces in memory for paper
// mode and tests. Quotes, balance, and holdings are seeded by the caller;
// submitted tickets are applied to the simulated account immediately.
type SimGateway struct {
	mu          sync.Mutex
	instruments []domain.Instrument
	quotes      map[string]decimal.Decimal
	balance     decimal.Decimal
	holdings    map[string]domain.Holding
	submitted   []domain.OrderTicket

	// Error injection for tests: when set, the corresponding call fails.
	QuoteErr    error
	BalanceErr  error
	HoldingsErr error
	SubmitErr   error
}

// NewSimGateway creates an empty SimGateway.
func NewSimGateway() *SimGateway {
	return &SimGateway{
		quotes:   make(map[string]decimal.Decimal),
		holdings: make(map[string]domain.Holding),
	}
}

// SetInstruments seeds the instrument list.
func (g *SimGateway) SetInstruments(instruments []domain.Instrument) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.instruments = instruments
}

// SetQuote seeds the latest price for a symbol.
func (g *SimGateway) SetQuote(symbol string, price decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.quotes[symbol] = price
}

// SetBalance seeds the account cash balance.
func (g *SimGateway) SetBalance(balance decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balance = balance
}

// SetHolding seeds a holding.
func (g *SimGateway) SetHolding(symbol string, quantity, avgPrice decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.holdings[symbol] = domain.Holding{Symbol: symbol, Quantity: quantity, AvgPrice: avgPrice}
}

// Submitted returns a copy of every ticket accepted so far.
func (g *SimGateway) Submitted() []domain.OrderTicket {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.OrderTicket, len(g.submitted))
	copy(out, g.submitted)
	return out
}

// ListInstruments returns the seeded instrument list.
func (g *SimGateway) ListInstruments(_ context.Context) ([]domain.Instrument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.Instrument, len(g.instruments))
	copy(out, g.instruments)
	return out, nil
}

// GetQuote returns the seeded price for symbol, observed now.
func (g *SimGateway) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.QuoteErr != nil {
		return nil, g.QuoteErr
	}
	return &domain.Quote{Symbol: symbol, Price: g.quotes[symbol], ObservedAt: time.Now()}, nil
}

// GetBalance returns the seeded cash balance.
func (g *SimGateway) GetBalance(_ context.Context, _ string) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.BalanceErr != nil {
		return decimal.Zero, g.BalanceErr
	}
	return g.balance, nil
}

// GetHoldings returns the seeded holdings.
func (g *SimGateway) GetHoldings(_ context.Context, _ string) ([]domain.Holding, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.HoldingsErr != nil {
		return nil, g.HoldingsErr
	}
	holdings := make([]domain.Holding, 0, len(g.holdings))
	for _, h := range g.holdings {
		holdings = append(holdings, h)
	}
	return holdings, nil
}

// SubmitOrder records the ticket and applies it to the simulated account:
// cash moves by quantity × price, the holding quantity by the signed
// quantity.
func (g *SimGateway) SubmitOrder(_ context.Context, ticket *domain.OrderTicket) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SubmitErr != nil {
		return g.SubmitErr
	}

	g.submitted = append(g.submitted, *ticket)

	notional := ticket.Quantity.Mul(ticket.Price)
	g.balance = g.balance.Sub(notional)

	h := g.holdings[ticket.Symbol]
	h.Symbol = ticket.Symbol
	h.Quantity = h.Quantity.Add(ticket.Quantity)
	if h.Quantity.IsZero() {
		delete(g.holdings, ticket.Symbol)
	} else {
		g.holdings[ticket.Symbol] = h
	}
	return nil
}
