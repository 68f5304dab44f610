// Package store defines storage interfaces for persisting and retrieving
// transaction history and observed price points.
package store

import (
	"context"
	"time"

	"foliodesk/internal/domain"
)

// TransactionStore persists and retrieves submitted-order records.
type TransactionStore interface {
	// SaveTransaction inserts a new transaction and sets its ID.
	SaveTransaction(ctx context.Context, tx *domain.Transaction) error

	// ListTransactions returns the account's transactions newest-first,
	// up to limit (0 means no limit).
	ListTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)
}

// PriceStore persists and retrieves observed price points for charting.
type PriceStore interface {
	// WritePrices persists a batch of price points.
	WritePrices(ctx context.Context, points []domain.PricePoint) error

	// ReadPrices returns points for the given symbol within [start, end].
	ReadPrices(ctx context.Context, symbol string, start, end time.Time) ([]domain.PricePoint, error)

	// ListSymbols returns all distinct symbols with recorded prices.
	ListSymbols(ctx context.Context) ([]string, error)
}
