package compose

import (
	"context"
	"errors"
	"testing"
	"time"

	"foliodesk/internal/domain"
	"foliodesk/internal/gateway"
)

func TestBuildTicketSignsQuantity(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	quote := quoteAt("BTC", "50.00")

	buy := &domain.DraftOrder{Symbol: "BTC", Side: domain.SideBuy, OrderType: domain.OrderTypeMarket, Quantity: decp("10")}
	ticket := buildTicket(buy, "1", quote, now)
	if !ticket.Quantity.Equal(dec("10")) {
		t.Errorf("buy ticket quantity = %s, want 10", ticket.Quantity)
	}
	if !ticket.Price.Equal(dec("50.00")) {
		t.Errorf("buy ticket price = %s, want quote 50.00", ticket.Price)
	}
	if !ticket.Timestamp.Equal(now) {
		t.Errorf("ticket timestamp = %v, want %v", ticket.Timestamp, now)
	}

	sell := &domain.DraftOrder{Symbol: "BTC", Side: domain.SideSell, OrderType: domain.OrderTypeLimit, Quantity: decp("4"), LimitPrice: decp("49.00")}
	ticket = buildTicket(sell, "1", quote, now)
	if !ticket.Quantity.Equal(dec("-4")) {
		t.Errorf("sell ticket quantity = %s, want -4", ticket.Quantity)
	}
	if !ticket.Price.Equal(dec("49.00")) {
		t.Errorf("sell ticket price = %s, want limit 49.00", ticket.Price)
	}
}

func TestDispatcherRevalidates(t *testing.T) {
	sim := gateway.NewSimGateway()
	d := NewDispatcher(sim)

	// A draft that fails validation never reaches the gateway.
	draft := &domain.DraftOrder{Symbol: "BTC", Side: domain.SideBuy, OrderType: domain.OrderTypeMarket, Quantity: decp("100")}
	result := d.Submit(context.Background(), draft, snapshot("10.00"), quoteAt("BTC", "50.00"), "1")
	if result.Accepted || result.Reason != domain.ReasonInsufficientBalance {
		t.Fatalf("Submit = %+v, want InsufficientBalance", result)
	}
	if len(sim.Submitted()) != 0 {
		t.Error("inadmissible draft reached the execution gateway")
	}
}

func TestDispatcherSingleRequestNoRetry(t *testing.T) {
	sim := gateway.NewSimGateway()
	sim.SubmitErr = errors.New("dial tcp: connection refused")
	d := NewDispatcher(sim)

	draft := &domain.DraftOrder{Symbol: "BTC", Side: domain.SideBuy, OrderType: domain.OrderTypeMarket, Quantity: decp("1")}
	result := d.Submit(context.Background(), draft, snapshot("1000.00"), quoteAt("BTC", "50.00"), "1")
	if result.Accepted || result.Reason != domain.ReasonSubmissionFailed {
		t.Fatalf("Submit = %+v, want SubmissionFailed", result)
	}
	// The order must be treated as not placed.
	if len(sim.Submitted()) != 0 {
		t.Error("failed submission recorded a ticket")
	}
}
