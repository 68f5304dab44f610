// Package compose implements the order composition core: a per-session
// state machine that drives instrument selection, parameter entry, live
// revalidation, and submission of a single draft order.
package compose

import (
	"fmt"

	"github.com/shopspring/decimal"

	"foliodesk/internal/domain"
)

// ComputeTotal returns quantity × price rounded to 2 decimal places.
func ComputeTotal(quantity, price decimal.Decimal) decimal.Decimal {
	return quantity.Mul(price).Round(2)
}

// Total returns the draft's computed total against the given quote: zero
// when either the quantity or the effective price is absent.
func Total(draft *domain.DraftOrder, quote *domain.Quote) decimal.Decimal {
	if draft.Quantity == nil {
		return decimal.Zero
	}
	price, ok := draft.EffectivePrice(quote)
	if !ok {
		return decimal.Zero
	}
	return ComputeTotal(*draft.Quantity, price)
}

// Validate evaluates the admissibility rules for a draft order against the
// current account snapshot and quote. Checks run in a fixed order and the
// first failure wins, so the highest-priority message is always the one
// surfaced:
//
//  1. missing or non-positive quantity
//  2. limit order with missing or non-positive price
//  3. sell quantity exceeding the held quantity
//  4. buy total exceeding the cash balance
//
// A missing snapshot (failed balance/holdings fetch) or a market order with
// no known quote cannot be admitted: the data the rules depend on is
// unavailable, so the draft stays non-submittable until a fetch succeeds.
func Validate(draft *domain.DraftOrder, account *domain.AccountSnapshot, quote *domain.Quote) domain.ValidationOutcome {
	if draft.Quantity == nil || !draft.Quantity.IsPositive() {
		return domain.Rejected(domain.ReasonInvalidQuantity, "Please enter a valid quantity")
	}

	if draft.OrderType == domain.OrderTypeLimit {
		if draft.LimitPrice == nil || !draft.LimitPrice.IsPositive() {
			return domain.Rejected(domain.ReasonInvalidPrice, "Please enter a valid price")
		}
	} else if quote == nil {
		return domain.Rejected(domain.ReasonDataUnavailable, "Current price unavailable")
	}

	if account == nil {
		return domain.Rejected(domain.ReasonDataUnavailable, "Account data unavailable")
	}

	if draft.Side == domain.SideSell {
		held := account.HoldingQuantity(draft.Symbol)
		if draft.Quantity.GreaterThan(held) {
			return domain.Rejected(domain.ReasonInsufficientHoldings,
				fmt.Sprintf("Insufficient holdings. You only have %s %s available.", held, draft.Symbol))
		}
	}

	if draft.Side == domain.SideBuy {
		total := Total(draft, quote)
		if total.GreaterThan(account.Balance) {
			shortfall := total.Sub(account.Balance)
			return domain.Rejected(domain.ReasonInsufficientBalance,
				fmt.Sprintf("Insufficient balance. You need $%s more USDT.", shortfall.StringFixed(2)))
		}
	}

	return domain.Admissible()
}
