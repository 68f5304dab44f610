// Package httpapi provides the HTTP REST API for the portfolio dashboard:
// instrument search, quotes, price history, account state, allocation, and
// order submission in JSON format.
package httpapi

import (
	"time"

	"foliodesk/internal/domain"
)

// InstrumentJSON is the JSON representation of a tradable instrument.
type InstrumentJSON struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// InstrumentsResponse lists instruments, optionally filtered by a search
// term.
type InstrumentsResponse struct {
	Instruments []InstrumentJSON `json:"instruments"`
}

// QuoteJSON is the latest observed price for a symbol.
type QuoteJSON struct {
	Symbol     string `json:"symbol"`
	Price      string `json:"price"`
	ObservedAt int64  `json:"observedAt"` // unix milliseconds
}

// PricePointJSON is one charted price observation.
type PricePointJSON struct {
	Time  int64   `json:"time"` // unix milliseconds
	Price float64 `json:"price"`
}

// HistoryResponse holds chart data for one symbol.
type HistoryResponse struct {
	Symbol string           `json:"symbol"`
	Points []PricePointJSON `json:"points"`
}

// HoldingJSON is one position in the account response. Price, MarketValue,
// and UnrealizedGain are marked at the latest quote; they fall back to the
// average cost when no quote is available.
type HoldingJSON struct {
	Symbol         string `json:"symbol"`
	Quantity       string `json:"quantity"`
	AvgPrice       string `json:"avgPrice"`
	Price          string `json:"price"`
	MarketValue    string `json:"marketValue"`
	UnrealizedGain string `json:"unrealizedGain"`
}

// AccountResponse holds the cash balance and open positions.
type AccountResponse struct {
	AccountID string        `json:"accountId"`
	Balance   string        `json:"balance"`
	Holdings  []HoldingJSON `json:"holdings"`
}

// AllocationSliceJSON is one instrument's share of portfolio value.
type AllocationSliceJSON struct {
	Symbol string  `json:"symbol"`
	Value  string  `json:"value"`
	Weight float64 `json:"weight"` // fraction of total, 0..1
}

// AllocationResponse breaks total portfolio value down per instrument,
// cash included under the "USDT" slice.
type AllocationResponse struct {
	Total  string                `json:"total"`
	Slices []AllocationSliceJSON `json:"slices"`
}

// TransactionJSON is one recorded submission.
type TransactionJSON struct {
	ID        int64  `json:"id"`
	Symbol    string `json:"symbol"`
	OrderType string `json:"orderType"`
	Quantity  string `json:"quantity"` // signed: negative for sells
	Price     string `json:"price"`
	Total     string `json:"total"`
	Timestamp string `json:"timestamp"` // RFC3339
}

// TransactionsResponse lists recorded transactions newest-first.
type TransactionsResponse struct {
	Transactions []TransactionJSON `json:"transactions"`
}

// OrderRequest is the order submission body. Quantity and limitPrice are
// raw text as entered; the server parses and validates them.
type OrderRequest struct {
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`      // "buy" or "sell"
	OrderType  string `json:"orderType"` // "market" or "limit"
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

// convertInstruments converts catalog instruments to JSON.
func convertInstruments(instruments []domain.Instrument) []InstrumentJSON {
	out := make([]InstrumentJSON, 0, len(instruments))
	for _, inst := range instruments {
		out = append(out, InstrumentJSON{Symbol: inst.Symbol, Name: inst.Name})
	}
	return out
}

// convertQuote converts a domain quote to JSON.
func convertQuote(q *domain.Quote) QuoteJSON {
	return QuoteJSON{
		Symbol:     q.Symbol,
		Price:      q.Price.String(),
		ObservedAt: q.ObservedAt.UnixMilli(),
	}
}

// convertPricePoints converts stored price points to chart JSON.
func convertPricePoints(points []domain.PricePoint) []PricePointJSON {
	out := make([]PricePointJSON, 0, len(points))
	for _, p := range points {
		out = append(out, PricePointJSON{Time: p.ObservedAt.UnixMilli(), Price: p.Price})
	}
	return out
}

// convertTransactions converts stored transactions to JSON.
func convertTransactions(txs []domain.Transaction) []TransactionJSON {
	out := make([]TransactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, TransactionJSON{
			ID:        tx.ID,
			Symbol:    tx.Symbol,
			OrderType: string(tx.OrderType),
			Quantity:  tx.Quantity.String(),
			Price:     tx.Price.String(),
			Total:     tx.Total.StringFixed(2),
			Timestamp: tx.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return out
}
