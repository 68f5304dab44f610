package compose

import (
	"context"
	"log/slog"
	"time"

	"foliodesk/internal/domain"
	"foliodesk/internal/gateway"
)

// Dispatcher normalizes an admissible draft into an order ticket and sends
// it to the execution gateway. Exactly one request is made per call; a
// transport or server failure is reported as SubmissionFailed and the order
// must be treated as not placed.
type Dispatcher struct {
	exec gateway.ExecutionGateway
	log  *slog.Logger
}

// NewDispatcher creates a Dispatcher sending through exec.
func NewDispatcher(exec gateway.ExecutionGateway) *Dispatcher {
	return &Dispatcher{
		exec: exec,
		log:  slog.Default().With("component", "dispatcher"),
	}
}

// buildTicket normalizes the draft: signed quantity (negative magnitude for
// sells), effective price, and a submission timestamp.
func buildTicket(draft *domain.DraftOrder, accountID string, quote *domain.Quote, now time.Time) *domain.OrderTicket {
	qty := *draft.Quantity
	if draft.Side == domain.SideSell {
		qty = qty.Abs().Neg()
	}

	price, _ := draft.EffectivePrice(quote)

	return &domain.OrderTicket{
		AccountID: accountID,
		Symbol:    draft.Symbol,
		OrderType: draft.OrderType,
		Quantity:  qty,
		Price:     price,
		Timestamp: now,
	}
}

// Submit re-validates the draft and forwards it to the execution gateway.
// An inadmissible draft is rejected with its validation reason and no
// request is sent. Submission is never retried here.
func (d *Dispatcher) Submit(ctx context.Context, draft *domain.DraftOrder, account *domain.AccountSnapshot, quote *domain.Quote, accountID string) domain.SubmissionResult {
	if outcome := Validate(draft, account, quote); !outcome.OK {
		d.log.Warn("rejecting inadmissible draft", "symbol", draft.Symbol, "reason", outcome.Reason)
		return domain.SubmissionResult{Reason: outcome.Reason}
	}

	ticket := buildTicket(draft, accountID, quote, time.Now())

	if err := d.exec.SubmitOrder(ctx, ticket); err != nil {
		d.log.Warn("order submission failed", "symbol", ticket.Symbol, "error", err)
		return domain.SubmissionResult{Reason: domain.ReasonSubmissionFailed}
	}

	d.log.Info("order accepted",
		"symbol", ticket.Symbol,
		"quantity", ticket.Quantity,
		"price", ticket.Price,
	)
	return domain.SubmissionResult{Accepted: true}
}
