package gateway

import (
	"context"
	"log/slog"

	"foliodesk/internal/domain"
	"foliodesk/internal/store"
)

var _ ExecutionGateway = (*RecordingGateway)(nil)

// RecordingGateway wraps an ExecutionGateway and persists every accepted
// ticket as a transaction. A failed persist does not fail the order: the
// order stands, the gap is logged.
type RecordingGateway struct {
	inner ExecutionGateway
	txs   store.TransactionStore
	log   *slog.Logger
}

// NewRecordingGateway creates a RecordingGateway writing accepted orders to
// txs.
func NewRecordingGateway(inner ExecutionGateway, txs store.TransactionStore) *RecordingGateway {
	return &RecordingGateway{
		inner: inner,
		txs:   txs,
		log:   slog.Default().With("component", "recording-gateway"),
	}
}

// SubmitOrder forwards the ticket and records it once accepted.
func (g *RecordingGateway) SubmitOrder(ctx context.Context, ticket *domain.OrderTicket) error {
	if err := g.inner.SubmitOrder(ctx, ticket); err != nil {
		return err
	}

	tx := &domain.Transaction{
		AccountID: ticket.AccountID,
		Symbol:    ticket.Symbol,
		OrderType: ticket.OrderType,
		Quantity:  ticket.Quantity,
		Price:     ticket.Price,
		Total:     ticket.Quantity.Abs().Mul(ticket.Price).Round(2),
		Timestamp: ticket.Timestamp,
	}
	if err := g.txs.SaveTransaction(ctx, tx); err != nil {
		g.log.Error("recording accepted order failed", "symbol", ticket.Symbol, "error", err)
	}
	return nil
}
