// Package gateway defines the external collaborator interfaces the order
// composition core depends on: market data, account state, and order
// execution. Implementations cover the foliodesk backend service, the
// Alpaca brokerage, and an in-memory simulator.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"foliodesk/internal/domain"
)

// MarketDataGateway returns instrument listings and latest quotes on request.
type MarketDataGateway interface {
	// ListInstruments returns the ordered sequence of tradable instruments.
	ListInstruments(ctx context.Context) ([]domain.Instrument, error)

	// GetQuote returns the latest quote for a symbol.
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// AccountGateway returns the current cash balance and holdings of an account.
type AccountGateway interface {
	// GetBalance returns the account's available cash balance.
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)

	// GetHoldings returns all current holdings of the account.
	GetHoldings(ctx context.Context, accountID string) ([]domain.Holding, error)
}

// ExecutionGateway accepts normalized order tickets for execution.
type ExecutionGateway interface {
	// SubmitOrder sends exactly one order ticket for execution. A nil error
	// means the order was acknowledged; any error means it was not placed.
	SubmitOrder(ctx context.Context, ticket *domain.OrderTicket) error
}
