package record

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"foliodesk/internal/catalog"
	"foliodesk/internal/domain"
	"foliodesk/internal/gateway"
)

// memPriceStore captures written points in memory.
type memPriceStore struct {
	mu     sync.Mutex
	points []domain.PricePoint
}

func (m *memPriceStore) WritePrices(_ context.Context, points []domain.PricePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, points...)
	return nil
}

func (m *memPriceStore) ReadPrices(_ context.Context, symbol string, start, end time.Time) ([]domain.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PricePoint
	for _, p := range m.points {
		if p.Symbol == symbol && !p.ObservedAt.Before(start) && !p.ObservedAt.After(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPriceStore) ListSymbols(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, p := range m.points {
		if _, ok := seen[p.Symbol]; !ok {
			seen[p.Symbol] = struct{}{}
			out = append(out, p.Symbol)
		}
	}
	return out, nil
}

func (m *memPriceStore) symbols(t *testing.T) []string {
	t.Helper()
	syms, err := m.ListSymbols(context.Background())
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	return syms
}

func newTestRecorder(sim *gateway.SimGateway, prices *memPriceStore) *PriceRecorder {
	cat := catalog.New([]domain.Instrument{
		{Symbol: "BTC", Name: "Bitcoin"},
		{Symbol: "ETH", Name: "Ethereum"},
		{Symbol: "SOL", Name: "Solana"},
	})
	return NewPriceRecorder(sim, sim, cat, prices, "1", time.Hour, 2, 6000)
}

func TestSweepRecordsPopularAndHeld(t *testing.T) {
	sim := gateway.NewSimGateway()
	sim.SetQuote("BTC", decimal.NewFromInt(50000))
	sim.SetQuote("ETH", decimal.NewFromInt(2000))
	sim.SetQuote("DOGE", decimal.NewFromFloat(0.25))
	sim.SetHolding("DOGE", decimal.NewFromInt(100), decimal.NewFromFloat(0.20))

	prices := &memPriceStore{}
	r := newTestRecorder(sim, prices)

	if err := r.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	// Popular top-2 (BTC, ETH) plus the held DOGE, sorted.
	want := []string{"BTC", "DOGE", "ETH"}
	syms, err := r.watchedSymbols(context.Background())
	if err != nil {
		t.Fatalf("watchedSymbols: %v", err)
	}
	if len(syms) != len(want) {
		t.Fatalf("watchedSymbols = %v, want %v", syms, want)
	}
	for i := range want {
		if syms[i] != want[i] {
			t.Errorf("watchedSymbols[%d] = %s, want %s", i, syms[i], want[i])
		}
	}

	got := prices.symbols(t)
	if len(got) != 3 {
		t.Fatalf("recorded %d symbols, want 3 (%v)", len(got), got)
	}
}

func TestSweepSkipsFailedQuotes(t *testing.T) {
	sim := gateway.NewSimGateway()
	sim.QuoteErr = errors.New("feed down")

	prices := &memPriceStore{}
	r := newTestRecorder(sim, prices)

	// Every quote fails; the sweep completes without writing anything.
	if err := r.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n := len(prices.symbols(t)); n != 0 {
		t.Errorf("recorded %d symbols after total quote failure, want 0", n)
	}
}

func TestWatchedSymbolsDegradesOnHoldingsError(t *testing.T) {
	sim := gateway.NewSimGateway()
	sim.HoldingsErr = errors.New("backend unavailable")

	prices := &memPriceStore{}
	r := newTestRecorder(sim, prices)

	syms, err := r.watchedSymbols(context.Background())
	if err != nil {
		t.Fatalf("watchedSymbols: %v", err)
	}
	// Falls back to the popular list alone.
	if len(syms) != 2 || syms[0] != "BTC" || syms[1] != "ETH" {
		t.Errorf("watchedSymbols = %v, want [BTC ETH]", syms)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	sim := gateway.NewSimGateway()
	sim.SetQuote("BTC", decimal.NewFromInt(50000))

	prices := &memPriceStore{}
	r := newTestRecorder(sim, prices)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
