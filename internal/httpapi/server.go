package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"foliodesk/internal/catalog"
	"foliodesk/internal/compose"
	"foliodesk/internal/domain"
	"foliodesk/internal/gateway"
	"foliodesk/internal/store"
)

// defaultHistoryWindow is the chart range served when the request does not
// bound it.
const defaultHistoryWindow = 30 * 24 * time.Hour

// DashboardServer serves the dashboard HTTP API for one account.
type DashboardServer struct {
	cat        *catalog.Catalog
	market     gateway.MarketDataGateway
	accounts   gateway.AccountGateway
	dispatcher *compose.Dispatcher
	prices     store.PriceStore
	txs        store.TransactionStore
	accountID  string
	log        *slog.Logger
}

// NewDashboardServer creates a dashboard server backed by the given catalog,
// gateways, and stores.
func NewDashboardServer(
	cat *catalog.Catalog,
	market gateway.MarketDataGateway,
	accounts gateway.AccountGateway,
	exec gateway.ExecutionGateway,
	prices store.PriceStore,
	txs store.TransactionStore,
	accountID string,
) *DashboardServer {
	return &DashboardServer{
		cat:        cat,
		market:     market,
		accounts:   accounts,
		dispatcher: compose.NewDispatcher(exec),
		prices:     prices,
		txs:        txs,
		accountID:  accountID,
		log:        slog.Default().With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *DashboardServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/instruments", s.handleInstruments)
	mux.HandleFunc("GET /api/quote/{symbol}", s.handleQuote)
	mux.HandleFunc("GET /api/history/{symbol}", s.handleHistory)
	mux.HandleFunc("GET /api/account", s.handleAccount)
	mux.HandleFunc("GET /api/allocation", s.handleAllocation)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("POST /api/orders", s.handleOrders)
}

// Handler returns an http.Handler with CORS middleware.
func (s *DashboardServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *DashboardServer) handleInstruments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	var instruments []domain.Instrument
	if q == "" {
		instruments = s.cat.All()
	} else {
		instruments = s.cat.Search(q)
	}

	writeJSON(w, InstrumentsResponse{Instruments: convertInstruments(instruments)})
}

func (s *DashboardServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	inst, err := s.cat.Lookup(r.PathValue("symbol"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	quote, err := s.market.GetQuote(r.Context(), inst.Symbol)
	if err != nil {
		s.log.Warn("quote fetch failed", "symbol", inst.Symbol, "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch quote")
		return
	}

	writeJSON(w, convertQuote(quote))
}

func (s *DashboardServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	end := time.Now().UTC()
	start := end.Add(-defaultHistoryWindow)
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start time")
			return
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end time")
			return
		}
		end = t
	}

	points, err := s.prices.ReadPrices(r.Context(), symbol, start, end)
	if err != nil {
		s.log.Warn("reading price history failed", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}

	writeJSON(w, HistoryResponse{Symbol: symbol, Points: convertPricePoints(points)})
}

func (s *DashboardServer) handleAccount(w http.ResponseWriter, r *http.Request) {
	balance, err := s.accounts.GetBalance(r.Context(), s.accountID)
	if err != nil {
		s.log.Warn("balance fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch balance")
		return
	}

	holdings, err := s.accounts.GetHoldings(r.Context(), s.accountID)
	if err != nil {
		s.log.Warn("holdings fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch holdings")
		return
	}

	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })

	out := make([]HoldingJSON, 0, len(holdings))
	for _, h := range holdings {
		price := h.AvgPrice
		if quote, err := s.market.GetQuote(r.Context(), h.Symbol); err == nil {
			price = quote.Price
		} else {
			s.log.Warn("quote fetch failed, marking at cost", "symbol", h.Symbol, "error", err)
		}
		marketValue := h.Quantity.Mul(price).Round(2)
		cost := h.Quantity.Mul(h.AvgPrice).Round(2)
		out = append(out, HoldingJSON{
			Symbol:         h.Symbol,
			Quantity:       h.Quantity.String(),
			AvgPrice:       h.AvgPrice.String(),
			Price:          price.String(),
			MarketValue:    marketValue.StringFixed(2),
			UnrealizedGain: marketValue.Sub(cost).StringFixed(2),
		})
	}

	writeJSON(w, AccountResponse{AccountID: s.accountID, Balance: balance.String(), Holdings: out})
}

func (s *DashboardServer) handleAllocation(w http.ResponseWriter, r *http.Request) {
	balance, err := s.accounts.GetBalance(r.Context(), s.accountID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch balance")
		return
	}
	holdings, err := s.accounts.GetHoldings(r.Context(), s.accountID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch holdings")
		return
	}

	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })

	type valued struct {
		symbol string
		value  decimal.Decimal
	}

	total := balance
	slices := []valued{{symbol: "USDT", value: balance}}
	for _, h := range holdings {
		// Mark positions at the latest quote, average cost if the quote
		// is unavailable.
		price := h.AvgPrice
		if quote, err := s.market.GetQuote(r.Context(), h.Symbol); err == nil {
			price = quote.Price
		} else {
			s.log.Warn("quote fetch failed, marking at cost", "symbol", h.Symbol, "error", err)
		}
		value := h.Quantity.Mul(price).Round(2)
		total = total.Add(value)
		slices = append(slices, valued{symbol: h.Symbol, value: value})
	}

	out := make([]AllocationSliceJSON, 0, len(slices))
	for _, sl := range slices {
		weight := 0.0
		if total.IsPositive() {
			weight, _ = sl.value.Div(total).Float64()
		}
		out = append(out, AllocationSliceJSON{
			Symbol: sl.symbol,
			Value:  sl.value.StringFixed(2),
			Weight: weight,
		})
	}

	writeJSON(w, AllocationResponse{Total: total.StringFixed(2), Slices: out})
}

func (s *DashboardServer) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	txs, err := s.txs.ListTransactions(r.Context(), s.accountID, limit)
	if err != nil {
		s.log.Warn("listing transactions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	writeJSON(w, TransactionsResponse{Transactions: convertTransactions(txs)})
}

func (s *DashboardServer) handleOrders(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inst, err := s.cat.Lookup(req.Symbol)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	side := domain.Side(strings.ToLower(req.Side))
	if side != domain.SideBuy && side != domain.SideSell {
		writeError(w, http.StatusBadRequest, "side must be buy or sell")
		return
	}
	orderType := domain.OrderType(strings.ToLower(req.OrderType))
	if orderType != domain.OrderTypeMarket && orderType != domain.OrderTypeLimit {
		writeError(w, http.StatusBadRequest, "orderType must be market or limit")
		return
	}

	draft := &domain.DraftOrder{
		Symbol:     inst.Symbol,
		Side:       side,
		OrderType:  orderType,
		Quantity:   compose.ParseAmount(req.Quantity),
		LimitPrice: compose.ParseAmount(req.LimitPrice),
	}

	// A quote is fetched regardless of order type: market orders price at
	// it, and the response echoes the computed total.
	quote, err := s.market.GetQuote(r.Context(), inst.Symbol)
	if err != nil {
		s.log.Warn("quote fetch failed", "symbol", inst.Symbol, "error", err)
		quote = nil
	}

	account, err := s.fetchSnapshot(r)
	if err != nil {
		s.log.Warn("snapshot fetch failed", "error", err)
		account = nil
	}

	draft.ComputedTotal = compose.Total(draft, quote)

	if outcome := compose.Validate(draft, account, quote); !outcome.OK {
		writeJSON(w, OrderResponse{
			Reason:  string(outcome.Reason),
			Message: outcome.Message,
			Total:   draft.ComputedTotal.StringFixed(2),
		})
		return
	}

	result := s.dispatcher.Submit(r.Context(), draft, account, quote, s.accountID)
	if !result.Accepted {
		writeJSON(w, OrderResponse{
			Reason:  string(result.Reason),
			Message: "Failed to send order. Please check connection and try again.",
			Total:   draft.ComputedTotal.StringFixed(2),
		})
		return
	}

	writeJSON(w, OrderResponse{
		Accepted: true,
		Total:    draft.ComputedTotal.StringFixed(2),
	})
}

// fetchSnapshot assembles the account snapshot used for validation.
func (s *DashboardServer) fetchSnapshot(r *http.Request) (*domain.AccountSnapshot, error) {
	balance, err := s.accounts.GetBalance(r.Context(), s.accountID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.accounts.GetHoldings(r.Context(), s.accountID)
	if err != nil {
		return nil, err
	}

	snap := &domain.AccountSnapshot{
		Balance:  balance,
		Holdings: make(map[string]domain.Holding, len(holdings)),
	}
	for _, h := range holdings {
		snap.Holdings[h.Symbol] = h
	}
	return snap, nil
}
