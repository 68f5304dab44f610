// Package record contains the background price recorder. It periodically
// samples quotes for the symbols a user holds plus the popular instruments
// and appends them to the price-history store so the dashboard charts have
// data to draw.
package record

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"foliodesk/internal/catalog"
	"foliodesk/internal/domain"
	"foliodesk/internal/gateway"
	"foliodesk/internal/store"
	"foliodesk/internal/util"
)

// ---------------------------------------------------------------------------
// PriceRecorder
// ---------------------------------------------------------------------------

// PriceRecorder samples quotes on a fixed interval and persists them as
// price points. A sweep covers the account's current holdings plus the
// top popular instruments from the catalog.
type PriceRecorder struct {
	market    gateway.MarketDataGateway
	accounts  gateway.AccountGateway
	cat       *catalog.Catalog
	prices    store.PriceStore
	accountID string
	interval  time.Duration
	popularN  int
	limiter   *util.RateLimiter
	log       *slog.Logger
}

// NewPriceRecorder creates a PriceRecorder that sweeps every interval and
// rate-limits quote requests to perMinute calls per minute.
func NewPriceRecorder(market gateway.MarketDataGateway, accounts gateway.AccountGateway, cat *catalog.Catalog, prices store.PriceStore, accountID string, interval time.Duration, popularN, perMinute int) *PriceRecorder {
	return &PriceRecorder{
		market:    market,
		accounts:  accounts,
		cat:       cat,
		prices:    prices,
		accountID: accountID,
		interval:  interval,
		popularN:  popularN,
		limiter:   util.NewRateLimiter(perMinute),
		log:       slog.Default().With("component", "recorder"),
	}
}

// Name returns the recorder identifier.
func (r *PriceRecorder) Name() string { return "price-recorder" }

// Run sweeps quotes on the configured interval. It blocks until ctx is
// cancelled and performs one sweep immediately on start.
func (r *PriceRecorder) Run(ctx context.Context) error {
	r.log.Info("starting", "interval", r.interval, "popular", r.popularN)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.sweep(ctx); err != nil {
		r.log.Error("sweep failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			r.log.Info("stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				r.log.Error("sweep failed", "err", err)
			}
		}
	}
}

// sweep fetches one quote per watched symbol and writes the batch to the
// price store. Individual quote failures are logged and skipped so one bad
// symbol does not starve the rest.
func (r *PriceRecorder) sweep(ctx context.Context) error {
	symbols, err := r.watchedSymbols(ctx)
	if err != nil {
		return err
	}

	var points []domain.PricePoint
	for _, sym := range symbols {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		q, err := r.market.GetQuote(ctx, sym)
		if err != nil {
			r.log.Warn("quote fetch failed", "symbol", sym, "err", err)
			continue
		}
		price, _ := q.Price.Float64()
		points = append(points, domain.PricePoint{
			Symbol:     q.Symbol,
			Price:      price,
			ObservedAt: q.ObservedAt,
		})
	}

	if len(points) == 0 {
		return nil
	}
	if err := r.prices.WritePrices(ctx, points); err != nil {
		return err
	}
	r.log.Info("sweep done", "symbols", len(symbols), "points", len(points))
	return nil
}

// watchedSymbols returns the union of held symbols and the popular list,
// deduplicated and sorted for a stable sweep order. A holdings fetch
// failure degrades to the popular list alone.
func (r *PriceRecorder) watchedSymbols(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})

	for _, inst := range r.cat.Popular(r.popularN) {
		seen[inst.Symbol] = struct{}{}
	}

	holdings, err := r.accounts.GetHoldings(ctx, r.accountID)
	if err != nil {
		r.log.Warn("holdings fetch failed", "err", err)
	} else {
		for _, h := range holdings {
			seen[h.Symbol] = struct{}{}
		}
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}
