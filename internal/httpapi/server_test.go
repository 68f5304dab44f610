package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"foliodesk/internal/catalog"
	"foliodesk/internal/domain"
	"foliodesk/internal/gateway"
	"foliodesk/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *gateway.SimGateway, store.PriceStore) {
	t.Helper()

	sim := gateway.NewSimGateway()
	sim.SetInstruments([]domain.Instrument{
		{Symbol: "BTC", Name: "Bitcoin"},
		{Symbol: "ETH", Name: "Ethereum"},
	})
	sim.SetQuote("BTC", decimal.NewFromFloat(50.00))
	sim.SetQuote("ETH", decimal.NewFromFloat(20.00))
	sim.SetBalance(decimal.NewFromInt(1000))
	sim.SetHolding("ETH", decimal.NewFromInt(2), decimal.NewFromFloat(18.00))

	dir := t.TempDir()
	prices := store.NewParquetStore(dir)
	txs, err := store.NewSQLiteStore(filepath.Join(dir, "tx.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { txs.Close() })

	cat := catalog.New([]domain.Instrument{
		{Symbol: "BTC", Name: "Bitcoin"},
		{Symbol: "ETH", Name: "Ethereum"},
	})

	exec := gateway.NewRecordingGateway(sim, txs)
	s := NewDashboardServer(cat, sim, sim, exec, prices, txs, "1")
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, sim, prices
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding %s: %v", url, err)
	}
}

func postOrder(t *testing.T, url string, req OrderRequest) (OrderResponse, int) {
	t.Helper()
	body, _ := json.Marshal(req)
	resp, err := http.Post(url+"/api/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/orders: %v", err)
	}
	defer resp.Body.Close()
	var out OrderResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decoding order response: %v", err)
		}
	}
	return out, resp.StatusCode
}

func TestInstrumentsEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var all InstrumentsResponse
	getJSON(t, ts.URL+"/api/instruments", &all)
	if len(all.Instruments) != 2 {
		t.Fatalf("got %d instruments, want 2", len(all.Instruments))
	}

	var filtered InstrumentsResponse
	getJSON(t, ts.URL+"/api/instruments?q=bit", &filtered)
	if len(filtered.Instruments) != 1 || filtered.Instruments[0].Symbol != "BTC" {
		t.Errorf("search q=bit = %+v, want [BTC]", filtered.Instruments)
	}
}

func TestQuoteEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var q QuoteJSON
	getJSON(t, ts.URL+"/api/quote/btc", &q)
	if q.Symbol != "BTC" || q.Price != "50" {
		t.Errorf("quote = %+v, want BTC at 50", q)
	}

	resp, err := http.Get(ts.URL + "/api/quote/NOPE")
	if err != nil {
		t.Fatalf("GET unknown quote: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown symbol status = %d, want 404", resp.StatusCode)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	ts, _, prices := newTestServer(t)

	now := time.Now().UTC().Truncate(time.Second)
	seed := []domain.PricePoint{
		{Symbol: "BTC", Price: 49.50, ObservedAt: now.Add(-2 * time.Hour)},
		{Symbol: "BTC", Price: 50.00, ObservedAt: now.Add(-time.Hour)},
	}
	if err := prices.WritePrices(context.Background(), seed); err != nil {
		t.Fatalf("seeding prices: %v", err)
	}

	var h HistoryResponse
	getJSON(t, ts.URL+"/api/history/BTC", &h)
	if h.Symbol != "BTC" || len(h.Points) != 2 {
		t.Fatalf("history = %+v, want 2 BTC points", h)
	}
	if h.Points[0].Price != 49.50 || h.Points[1].Price != 50.00 {
		t.Errorf("points = %+v, want time-ordered [49.50 50.00]", h.Points)
	}

	// Narrow window excludes the older point.
	start := now.Add(-90 * time.Minute).Format(time.RFC3339)
	var narrow HistoryResponse
	getJSON(t, ts.URL+"/api/history/BTC?start="+start, &narrow)
	if len(narrow.Points) != 1 || narrow.Points[0].Price != 50.00 {
		t.Errorf("narrowed history = %+v, want the newer point only", narrow.Points)
	}
}

func TestAccountEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var a AccountResponse
	getJSON(t, ts.URL+"/api/account", &a)
	if a.Balance != "1000" {
		t.Errorf("balance = %s, want 1000", a.Balance)
	}
	if len(a.Holdings) != 1 || a.Holdings[0].Symbol != "ETH" || a.Holdings[0].Quantity != "2" {
		t.Fatalf("holdings = %+v, want [ETH qty 2]", a.Holdings)
	}

	// 2 ETH held at avg 18, marked at the quote of 20.
	h := a.Holdings[0]
	if h.Price != "20" {
		t.Errorf("holding price = %s, want 20", h.Price)
	}
	if h.MarketValue != "40.00" {
		t.Errorf("market value = %s, want 40.00", h.MarketValue)
	}
	if h.UnrealizedGain != "4.00" {
		t.Errorf("unrealized gain = %s, want 4.00", h.UnrealizedGain)
	}
}

func TestAllocationEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var a AllocationResponse
	getJSON(t, ts.URL+"/api/allocation", &a)

	// 1000 cash + 2 ETH at the 20.00 quote.
	if a.Total != "1040.00" {
		t.Errorf("total = %s, want 1040.00", a.Total)
	}
	if len(a.Slices) != 2 {
		t.Fatalf("got %d slices, want 2", len(a.Slices))
	}
	if a.Slices[0].Symbol != "USDT" || a.Slices[0].Value != "1000.00" {
		t.Errorf("cash slice = %+v, want USDT 1000.00", a.Slices[0])
	}
	if a.Slices[1].Symbol != "ETH" || a.Slices[1].Value != "40.00" {
		t.Errorf("ETH slice = %+v, want ETH 40.00", a.Slices[1])
	}

	var sum float64
	for _, sl := range a.Slices {
		sum += sl.Weight
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("weights sum to %v, want 1", sum)
	}
}

func TestOrderSubmitAndTransactions(t *testing.T) {
	ts, sim, _ := newTestServer(t)

	out, status := postOrder(t, ts.URL, OrderRequest{
		Symbol:    "btc",
		Side:      "buy",
		OrderType: "market",
		Quantity:  "10",
	})
	if status != http.StatusOK {
		t.Fatalf("order status = %d, want 200", status)
	}
	if !out.Accepted {
		t.Fatalf("order rejected: %+v", out)
	}
	if out.Total != "500.00" {
		t.Errorf("total = %s, want 500.00", out.Total)
	}

	submitted := sim.Submitted()
	if len(submitted) != 1 {
		t.Fatalf("gateway received %d tickets, want 1", len(submitted))
	}
	if !submitted[0].Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("ticket quantity = %s, want 10", submitted[0].Quantity)
	}

	// The accepted order shows up in the transaction history.
	var txs TransactionsResponse
	getJSON(t, ts.URL+"/api/transactions", &txs)
	if len(txs.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs.Transactions))
	}
	tx := txs.Transactions[0]
	if tx.Symbol != "BTC" || tx.Quantity != "10" || tx.Total != "500.00" {
		t.Errorf("transaction = %+v, want BTC qty 10 total 500.00", tx)
	}
}

func TestOrderRejectedInsufficientBalance(t *testing.T) {
	ts, sim, _ := newTestServer(t)

	out, status := postOrder(t, ts.URL, OrderRequest{
		Symbol:    "BTC",
		Side:      "buy",
		OrderType: "market",
		Quantity:  "100", // 5000.00 against a 1000 balance
	})
	if status != http.StatusOK {
		t.Fatalf("order status = %d, want 200", status)
	}
	if out.Accepted {
		t.Fatal("order accepted, want rejection")
	}
	if out.Reason != string(domain.ReasonInsufficientBalance) {
		t.Errorf("reason = %s, want %s", out.Reason, domain.ReasonInsufficientBalance)
	}
	if out.Message != "Insufficient balance. You need $4000.00 more USDT." {
		t.Errorf("message = %q", out.Message)
	}
	if len(sim.Submitted()) != 0 {
		t.Error("rejected order reached the gateway")
	}
}

func TestOrderSellLimitRecordsNegativeQuantity(t *testing.T) {
	ts, sim, _ := newTestServer(t)

	out, _ := postOrder(t, ts.URL, OrderRequest{
		Symbol:     "ETH",
		Side:       "sell",
		OrderType:  "limit",
		Quantity:   "2",
		LimitPrice: "25.00",
	})
	if !out.Accepted {
		t.Fatalf("order rejected: %+v", out)
	}
	if out.Total != "50.00" {
		t.Errorf("total = %s, want 50.00 at the limit price", out.Total)
	}

	submitted := sim.Submitted()
	if len(submitted) != 1 {
		t.Fatalf("gateway received %d tickets, want 1", len(submitted))
	}
	if !submitted[0].Quantity.Equal(decimal.NewFromInt(-2)) {
		t.Errorf("ticket quantity = %s, want -2 for a sell", submitted[0].Quantity)
	}
	if !submitted[0].Price.Equal(decimal.NewFromFloat(25.00)) {
		t.Errorf("ticket price = %s, want the 25.00 limit", submitted[0].Price)
	}
}

func TestOrderBadRequests(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/orders", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST bad body: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", resp.StatusCode)
	}

	_, status := postOrder(t, ts.URL, OrderRequest{Symbol: "NOPE", Side: "buy", OrderType: "market", Quantity: "1"})
	if status != http.StatusNotFound {
		t.Errorf("unknown symbol status = %d, want 404", status)
	}

	_, status = postOrder(t, ts.URL, OrderRequest{Symbol: "BTC", Side: "hold", OrderType: "market", Quantity: "1"})
	if status != http.StatusBadRequest {
		t.Errorf("bad side status = %d, want 400", status)
	}
}
