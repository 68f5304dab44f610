package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"foliodesk/internal/catalog"
	"foliodesk/internal/domain"
	"foliodesk/internal/gateway"
)

// SessionState identifies where a composer session is in its lifecycle.
type SessionState string

const (
	StateSearching  SessionState = "searching_instrument"
	StateSelected   SessionState = "instrument_selected"
	StateEntry      SessionState = "parameter_entry"
	StateSubmitting SessionState = "submitting"
	StateClosed     SessionState = "closed"
)

// CloseResult is the terminal outcome of a closed session.
type CloseResult string

const (
	CloseSuccess   CloseResult = "success"
	CloseCancelled CloseResult = "cancelled"
	CloseFailed    CloseResult = "failed"
)

// Session is the state machine for composing one order. It owns the draft
// order, the account snapshot, and the latest quote for the selected
// instrument. Operations are serialized under a mutex: each event runs to
// completion, recomputes the total, and re-runs validation before the next
// event is processed. Gateway fetches run asynchronously and are tagged
// with a sequence number; a response whose sequence no longer matches the
// current one is discarded (last-request-wins).
type Session struct {
	mu sync.Mutex
	wg sync.WaitGroup // outstanding fetches

	state       SessionState
	closeResult CloseResult
	draft       *domain.DraftOrder
	account     *domain.AccountSnapshot
	quote       *domain.Quote
	outcome     domain.ValidationOutcome
	fetchWarn   string // transient data-fetch warning, cleared on success
	submitErr   string // surfaced submission failure, cleared on next attempt

	quoteSeq uint64 // sequence of the most recently issued quote request
	snapSeq  uint64 // sequence of the most recently issued snapshot request

	cat        *catalog.Catalog
	market     gateway.MarketDataGateway
	accounts   gateway.AccountGateway
	dispatcher *Dispatcher
	accountID  string
	onClosed   func(CloseResult)
	log        *slog.Logger
}

// SessionOption configures a Session at construction.
type SessionOption func(*Session)

// WithOnClosed registers a callback fired once when the session reaches a
// terminal state. It is invoked with the session lock held; callbacks must
// not call back into the session.
func WithOnClosed(fn func(CloseResult)) SessionOption {
	return func(s *Session) { s.onClosed = fn }
}

// WithLogger overrides the session logger.
func WithLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// NewSession creates a composer session for one account against the given
// catalog and gateways, starting in the instrument-search state.
func NewSession(cat *catalog.Catalog, market gateway.MarketDataGateway, accounts gateway.AccountGateway, exec gateway.ExecutionGateway, accountID string, opts ...SessionOption) *Session {
	s := &Session{
		state:      StateSearching,
		cat:        cat,
		market:     market,
		accounts:   accounts,
		dispatcher: NewDispatcher(exec),
		accountID:  accountID,
		log:        slog.Default().With("component", "compose", "account", accountID),
	}
	s.outcome = domain.Rejected(domain.ReasonInvalidQuantity, "Please enter a valid quantity")
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------------------------------------------------------------------------
// Read-only state for the host UI
// ---------------------------------------------------------------------------

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the terminal result, or "" while the session is open.
func (s *Session) Result() CloseResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeResult
}

// Draft returns a copy of the current draft order, or nil before an
// instrument is selected.
func (s *Session) Draft() *domain.DraftOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return nil
	}
	d := *s.draft
	return &d
}

// Outcome returns the current validation outcome.
func (s *Session) Outcome() domain.ValidationOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Quote returns a copy of the latest applied quote, or nil.
func (s *Session) Quote() *domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quote == nil {
		return nil
	}
	q := *s.quote
	return &q
}

// Account returns the current account snapshot, or nil if no fetch has
// succeeded yet.
func (s *Session) Account() *domain.AccountSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// Warning returns the transient data-fetch warning, or "".
func (s *Session) Warning() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchWarn
}

// Wait blocks until all fetches issued so far have been applied or
// discarded. Hosts that need a settled view before rendering call this
// after SelectInstrument or a refresh.
func (s *Session) Wait() {
	s.wg.Wait()
}

// SubmissionError returns the message for the most recent failed submit
// attempt, or "". It does not affect admissibility: the draft may be
// resubmitted as-is.
func (s *Session) SubmissionError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitErr
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// SelectInstrument clears any prior draft, starts quote and snapshot
// fetches for the symbol, and moves to parameter entry. The symbol must be
// known to the catalog. Fetch failures do not block selection: they leave
// the session in an error-annotated state with validation conservatively
// unavailable.
func (s *Session) SelectInstrument(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed || s.state == StateSubmitting {
		return fmt.Errorf("cannot select instrument in state %s", s.state)
	}

	inst, err := s.cat.Lookup(symbol)
	if err != nil {
		return err
	}

	s.draft = &domain.DraftOrder{
		Symbol:    inst.Symbol,
		Side:      domain.SideBuy,
		OrderType: domain.OrderTypeMarket,
	}
	s.quote = nil
	s.account = nil
	s.fetchWarn = ""
	s.submitErr = ""

	s.state = StateSelected
	s.recomputeLocked()
	s.state = StateEntry

	s.startQuoteFetchLocked(ctx, inst.Symbol)
	s.startSnapshotFetchLocked(ctx)

	s.log.Info("instrument selected", "symbol", inst.Symbol)
	return nil
}

// SetSide changes the trade side and revalidates.
func (s *Session) SetSide(side domain.Side) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEntry {
		return
	}
	s.draft.Side = side
	s.recomputeLocked()
}

// SetOrderType changes the order type. Switching to market overwrites the
// price with the latest known quote; switching to limit clears it, forcing
// explicit entry.
func (s *Session) SetOrderType(orderType domain.OrderType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEntry {
		return
	}

	s.draft.OrderType = orderType
	if orderType == domain.OrderTypeMarket {
		s.mirrorQuotePriceLocked()
	} else {
		s.draft.LimitPrice = nil
	}
	s.recomputeLocked()
}

// SetQuantity accepts raw textual quantity input. Empty or unparsable input
// marks the field absent; the total is only computed once both quantity and
// an effective price are present.
func (s *Session) SetQuantity(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEntry {
		return
	}
	s.draft.Quantity = ParseAmount(raw)
	s.recomputeLocked()
}

// SetLimitPrice accepts raw textual price input, tolerated as incomplete
// when unparsable.
func (s *Session) SetLimitPrice(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEntry {
		return
	}
	s.draft.LimitPrice = ParseAmount(raw)
	s.recomputeLocked()
}

// RefreshQuote issues a new quote fetch for the selected instrument. The
// response supersedes any still in flight: only the newest request's
// response is applied.
func (s *Session) RefreshQuote(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEntry || s.draft == nil {
		return
	}
	s.startQuoteFetchLocked(ctx, s.draft.Symbol)
}

// RefreshSnapshot issues a new balance/holdings fetch.
func (s *Session) RefreshSnapshot(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.startSnapshotFetchLocked(ctx)
}

// AutoRefresh re-fetches the quote every interval while the session is in
// parameter entry with a market order. It blocks until ctx is cancelled or
// the session closes.
func (s *Session) AutoRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.state == StateClosed {
			s.mu.Unlock()
			return
		}
		if s.state == StateEntry && s.draft != nil && s.draft.OrderType == domain.OrderTypeMarket {
			s.startQuoteFetchLocked(ctx, s.draft.Symbol)
		}
		s.mu.Unlock()
	}
}

// Cancel closes the session from any non-terminal state. Responses from
// in-flight fetches are discarded from this point on.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.closeLocked(CloseCancelled)
}

// Submit dispatches the draft if it is currently admissible. An
// inadmissible draft is rejected locally without any network call. On a
// submission failure the session stays in parameter entry with the draft
// intact so the user can retry or cancel; on acceptance it closes with
// success.
func (s *Session) Submit(ctx context.Context) domain.SubmissionResult {
	s.mu.Lock()
	if s.state != StateEntry {
		s.mu.Unlock()
		return domain.SubmissionResult{Reason: domain.ReasonSubmissionFailed}
	}
	if !s.outcome.OK {
		reason := s.outcome.Reason
		s.mu.Unlock()
		return domain.SubmissionResult{Reason: reason}
	}

	s.state = StateSubmitting
	s.submitErr = ""
	draft := *s.draft
	account := s.account
	quote := s.quote
	s.mu.Unlock()

	result := s.dispatcher.Submit(ctx, &draft, account, quote, s.accountID)

	s.mu.Lock()
	defer s.mu.Unlock()

	// The session may have been cancelled while the request was in flight;
	// a closed session is never mutated again.
	if s.state != StateSubmitting {
		return result
	}

	if result.Accepted {
		s.closeLocked(CloseSuccess)
		return result
	}

	// Failure is terminal for this attempt only: back to parameter entry
	// with the draft intact, the failure surfaced, and admissibility
	// re-derived from the unchanged fields.
	s.state = StateEntry
	s.submitErr = "Failed to send order. Please check connection and try again."
	s.recomputeLocked()
	return result
}

// ---------------------------------------------------------------------------
// Async fetch plumbing
// ---------------------------------------------------------------------------

// startQuoteFetchLocked issues a quote request tagged with a fresh sequence
// number. Caller holds s.mu.
func (s *Session) startQuoteFetchLocked(ctx context.Context, symbol string) {
	s.quoteSeq++
	seq := s.quoteSeq

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		quote, err := s.market.GetQuote(ctx, symbol)
		s.applyQuote(seq, quote, err)
	}()
}

// startSnapshotFetchLocked issues a balance+holdings request pair tagged
// with a fresh sequence number. Caller holds s.mu.
func (s *Session) startSnapshotFetchLocked(ctx context.Context) {
	s.snapSeq++
	seq := s.snapSeq

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		snap, err := s.fetchSnapshot(ctx)
		s.applySnapshot(seq, snap, err)
	}()
}

func (s *Session) fetchSnapshot(ctx context.Context) (*domain.AccountSnapshot, error) {
	balance, err := s.accounts.GetBalance(ctx, s.accountID)
	if err != nil {
		return nil, fmt.Errorf("fetching balance: %w", err)
	}
	holdings, err := s.accounts.GetHoldings(ctx, s.accountID)
	if err != nil {
		return nil, fmt.Errorf("fetching holdings: %w", err)
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

// applyQuote applies a quote response if its sequence still matches the
// most recently issued request and the session is open. Superseded and
// post-close responses are discarded.
func (s *Session) applyQuote(seq uint64, quote *domain.Quote, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.quoteSeq || s.state == StateClosed {
		return
	}
	if err != nil {
		// Keep the last known good quote; validation stays conservative.
		s.fetchWarn = "Failed to fetch current price"
		s.log.Warn("quote fetch failed", "error", err)
		s.recomputeLocked()
		return
	}
	if s.draft == nil || quote.Symbol != s.draft.Symbol {
		return
	}

	s.quote = quote
	s.fetchWarn = ""
	if s.draft.OrderType == domain.OrderTypeMarket {
		s.mirrorQuotePriceLocked()
	}
	s.recomputeLocked()
}

// applySnapshot applies a balance/holdings response under the same
// last-request-wins discipline as applyQuote.
func (s *Session) applySnapshot(seq uint64, snap *domain.AccountSnapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.snapSeq || s.state == StateClosed {
		return
	}
	if err != nil {
		s.fetchWarn = "Failed to fetch account data"
		s.log.Warn("snapshot fetch failed", "error", err)
		s.recomputeLocked()
		return
	}

	s.account = snap
	s.fetchWarn = ""
	s.recomputeLocked()
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// recomputeLocked is the single named recomputation step: it refreshes the
// computed total and re-runs validation. Invoked after every mutating
// event, so the outcome is never stale relative to the fields. Caller
// holds s.mu.
func (s *Session) recomputeLocked() {
	if s.draft == nil {
		return
	}
	s.draft.ComputedTotal = Total(s.draft, s.quote)
	s.outcome = Validate(s.draft, s.account, s.quote)
}

// mirrorQuotePriceLocked overwrites the draft price field with the latest
// known quote price, as market orders always price at the quote. Caller
// holds s.mu.
func (s *Session) mirrorQuotePriceLocked() {
	if s.quote == nil {
		s.draft.LimitPrice = nil
		return
	}
	price := s.quote.Price
	s.draft.LimitPrice = &price
}

// closeLocked moves the session to its terminal state and fires the
// onClosed callback exactly once. Caller holds s.mu.
func (s *Session) closeLocked(result CloseResult) {
	s.state = StateClosed
	s.closeResult = result
	s.draft = nil
	s.log.Info("session closed", "result", result)
	if s.onClosed != nil {
		s.onClosed(result)
	}
}

// ParseAmount parses raw numeric input, returning nil for empty or
// unparsable text. Incomplete input is tolerated, not an error.
func ParseAmount(raw string) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}
