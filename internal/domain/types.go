// Package domain defines the core types shared across the foliodesk
// platform: instruments, quotes, account snapshots, draft orders, and the
// outcomes of validating and submitting them.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType determines how the effective price of an order is chosen.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// Instrument is a tradable asset: a ticker symbol plus its display name.
// Instruments are immutable and loaded once per session from the catalog.
type Instrument struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Quote is the latest observed price for a symbol. A quote is replaced
// wholesale on each refresh, never partially updated.
type Quote struct {
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	ObservedAt time.Time       `json:"observedAt"`
}

// Holding is a position in a single instrument: quantity held and the
// average acquisition price.
type Holding struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avgPrice"`
}

// AccountSnapshot is the cash balance and holdings of one account, refreshed
// wholesale from the account gateway. It is never derived from local deltas.
type AccountSnapshot struct {
	Balance  decimal.Decimal    `json:"balance"`
	Holdings map[string]Holding `json:"holdings"`
}

// HoldingQuantity returns the quantity held for symbol, or zero if the
// symbol is absent from the snapshot.
func (a *AccountSnapshot) HoldingQuantity(symbol string) decimal.Decimal {
	if a == nil || a.Holdings == nil {
		return decimal.Zero
	}
	return a.Holdings[symbol].Quantity
}

// DraftOrder is an order under construction. Quantity and LimitPrice track
// raw user input: a nil value means the field is empty or unparsable.
// ComputedTotal is always round(quantity × effective price, 2), or zero when
// either factor is absent.
type DraftOrder struct {
	Symbol        string
	Side          Side
	OrderType     OrderType
	Quantity      *decimal.Decimal
	LimitPrice    *decimal.Decimal
	ComputedTotal decimal.Decimal
}

// EffectivePrice returns the price used for total computation: the limit
// price for limit orders, the latest quote price for market orders. The
// second return is false when no effective price is available.
func (d *DraftOrder) EffectivePrice(quote *Quote) (decimal.Decimal, bool) {
	if d.OrderType == OrderTypeLimit {
		if d.LimitPrice == nil {
			return decimal.Zero, false
		}
		return *d.LimitPrice, true
	}
	if quote == nil {
		return decimal.Zero, false
	}
	return quote.Price, true
}

// ReasonCode identifies why a draft was rejected by validation or why a
// submission failed.
type ReasonCode string

const (
	ReasonInvalidQuantity      ReasonCode = "InvalidQuantity"
	ReasonInvalidPrice         ReasonCode = "InvalidPrice"
	ReasonInsufficientHoldings ReasonCode = "InsufficientHoldings"
	ReasonInsufficientBalance  ReasonCode = "InsufficientBalance"
	ReasonSubmissionFailed     ReasonCode = "SubmissionFailed"

	// ReasonDataUnavailable marks a draft as not-yet-admissible because a
	// quote or account fetch failed; it clears once a fetch succeeds.
	ReasonDataUnavailable ReasonCode = "DataUnavailable"
)

// ValidationOutcome is the result of evaluating a draft order against the
// admissibility rules. The zero value is not meaningful; use Admissible or
// Rejected to construct one.
type ValidationOutcome struct {
	OK      bool
	Reason  ReasonCode
	Message string
}

// Admissible returns the outcome for a draft that passed every check.
func Admissible() ValidationOutcome {
	return ValidationOutcome{OK: true}
}

// Rejected returns the outcome for a draft that failed the check identified
// by reason.
func Rejected(reason ReasonCode, message string) ValidationOutcome {
	return ValidationOutcome{Reason: reason, Message: message}
}

// SubmissionResult is the terminal outcome of one submission attempt.
type SubmissionResult struct {
	Accepted bool
	Reason   ReasonCode
}

// OrderTicket is the normalized order record sent to the execution gateway:
// quantity is signed (negative magnitude for sells), price is the effective
// price at submission time.
type OrderTicket struct {
	AccountID string          `json:"accountId"`
	Symbol    string          `json:"symbol"`
	OrderType OrderType       `json:"orderType"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Transaction is a submitted order as recorded in the transaction history.
type Transaction struct {
	ID        int64           `json:"id"`
	AccountID string          `json:"accountId"`
	Symbol    string          `json:"symbol"`
	OrderType OrderType       `json:"orderType"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
}

// PricePoint is a single observed price for a symbol, persisted by the
// price-history store and served to chart clients.
type PricePoint struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observedAt"`
}
