package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foliodesk/internal/catalog"
	"foliodesk/internal/config"
	"foliodesk/internal/domain"
	"foliodesk/internal/gateway"
	"foliodesk/internal/httpapi"
	"foliodesk/internal/record"
	"foliodesk/internal/store"
	"foliodesk/internal/util"

	"github.com/shopspring/decimal"
)

func main() {
	cfgPath := "config/foliodesk.yaml"
	if p := os.Getenv("FOLIODESK_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Stores.
	prices := store.NewParquetStore(cfg.Storage.DataDir)
	txs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening transaction store: %v", err)
	}
	defer txs.Close()

	// Gateways.
	market, accounts, exec, err := buildGateways(cfg)
	if err != nil {
		log.Fatalf("building gateways: %v", err)
	}
	exec = gateway.NewRecordingGateway(exec, txs)

	// Catalog, from the gateway's instrument list. Transient upstream
	// failures are retried before giving up.
	var instruments []domain.Instrument
	err = util.Retry(ctx, 3, time.Second, func() error {
		var lerr error
		instruments, lerr = market.ListInstruments(ctx)
		return lerr
	})
	if err != nil {
		log.Fatalf("listing instruments: %v", err)
	}
	if len(instruments) == 0 {
		instruments = catalog.Default()
	}
	cat := catalog.New(instruments)
	logger.Info("catalog loaded", "instruments", cat.Len())

	// Background price recorder.
	recorder := record.NewPriceRecorder(
		market,
		accounts,
		cat,
		prices,
		cfg.Trading.AccountID,
		time.Duration(cfg.Trading.QuoteRefreshSec)*time.Second,
		cfg.Trading.PopularCount,
		cfg.Trading.RateLimitPerMin,
	)
	go func() {
		if err := recorder.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("recorder stopped", "error", err)
		}
	}()

	// HTTP API.
	api := httpapi.NewDashboardServer(cat, market, accounts, exec, prices, txs, cfg.Trading.AccountID)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
	}()

	logger.Info("foliodesk-server listening", "addr", addr, "gateway", cfg.Trading.GatewayMode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	slog.Info("foliodesk-server stopped")
}

// buildGateways wires the market-data, account, and execution gateways for
// the configured mode.
func buildGateways(cfg *config.Config) (gateway.MarketDataGateway, gateway.AccountGateway, gateway.ExecutionGateway, error) {
	switch cfg.Trading.GatewayMode {
	case "backend":
		g := gateway.NewHTTPGateway(cfg.Backend.BaseURL)
		return g, g, g, nil

	case "alpaca":
		g := gateway.NewAlpacaGateway(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, cfg.Alpaca.DataURL)
		return g, g, g, nil

	case "sim":
		g := gateway.NewSimGateway()
		seedSim(g)
		return g, g, g, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown gateway_mode %q", cfg.Trading.GatewayMode)
	}
}

// seedSim gives the simulated account starting cash and a quote per
// built-in instrument so the dashboard is usable out of the box.
func seedSim(g *gateway.SimGateway) {
	instruments := catalog.Default()
	g.SetInstruments(instruments)
	g.SetBalance(decimal.NewFromInt(10000))

	prices := map[string]float64{
		"BTC": 65000, "ETH": 3400, "SOL": 150, "XRP": 0.52, "ADA": 0.45,
		"DOGE": 0.12, "AVAX": 28, "DOT": 6.5, "LINK": 14, "LTC": 72,
	}
	for _, inst := range instruments {
		if p, ok := prices[inst.Symbol]; ok {
			g.SetQuote(inst.Symbol, decimal.NewFromFloat(p))
		}
	}
}
