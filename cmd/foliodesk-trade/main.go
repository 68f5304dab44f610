// Command foliodesk-trade composes and submits a single order from the
// command line, running the same draft validation the dashboard applies.
//
// Usage:
//
//	foliodesk-trade -symbol BTC -side buy -qty 0.5
//	foliodesk-trade -symbol ETH -side sell -type limit -qty 2 -price 3500 -dry-run
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"foliodesk/internal/catalog"
	"foliodesk/internal/compose"
	"foliodesk/internal/config"
	"foliodesk/internal/domain"
	"foliodesk/internal/gateway"
	"foliodesk/internal/util"
)

func main() {
	var (
		symbol  = flag.String("symbol", "", "instrument symbol (required)")
		side    = flag.String("side", "buy", "buy or sell")
		ordType = flag.String("type", "market", "market or limit")
		qty     = flag.String("qty", "", "quantity (required)")
		price   = flag.String("price", "", "limit price (limit orders)")
		dryRun  = flag.Bool("dry-run", false, "validate only, do not submit")
		timeout = flag.Duration("timeout", 30*time.Second, "overall timeout")
	)
	flag.Parse()

	if *symbol == "" || *qty == "" {
		flag.Usage()
		os.Exit(1)
	}

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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	market, accounts, exec, err := buildGateways(cfg)
	if err != nil {
		log.Fatalf("building gateways: %v", err)
	}

	instruments, err := market.ListInstruments(ctx)
	if err != nil {
		log.Fatalf("listing instruments: %v", err)
	}
	if len(instruments) == 0 {
		instruments = catalog.Default()
	}
	cat := catalog.New(instruments)

	session := compose.NewSession(cat, market, accounts, exec, cfg.Trading.AccountID)
	if err := session.SelectInstrument(ctx, *symbol); err != nil {
		log.Fatalf("selecting instrument: %v", err)
	}
	session.Wait()

	session.SetSide(domain.Side(*side))
	session.SetOrderType(domain.OrderType(*ordType))
	session.SetQuantity(*qty)
	if *price != "" {
		session.SetLimitPrice(*price)
	}

	draft := session.Draft()
	if quote := session.Quote(); quote != nil {
		fmt.Printf("quote: %s @ %s\n", quote.Symbol, quote.Price)
	}
	if warn := session.Warning(); warn != "" {
		fmt.Printf("warning: %s\n", warn)
	}
	fmt.Printf("draft: %s %s %s qty=%s total=%s\n",
		draft.Side, draft.OrderType, draft.Symbol, *qty, draft.ComputedTotal.StringFixed(2))

	outcome := session.Outcome()
	if !outcome.OK {
		fmt.Printf("not admissible: %s\n", outcome.Message)
		session.Cancel()
		os.Exit(1)
	}

	if *dryRun {
		fmt.Println("admissible (dry run, not submitted)")
		session.Cancel()
		return
	}

	result := session.Submit(ctx)
	if !result.Accepted {
		if msg := session.SubmissionError(); msg != "" {
			fmt.Println(msg)
		} else {
			fmt.Printf("rejected: %s\n", result.Reason)
		}
		os.Exit(1)
	}
	fmt.Println("order accepted")
}

// buildGateways wires the gateways for the configured mode.
func buildGateways(cfg *config.Config) (gateway.MarketDataGateway, gateway.AccountGateway, gateway.ExecutionGateway, error) {
	switch cfg.Trading.GatewayMode {
	case "backend":
		g := gateway.NewHTTPGateway(cfg.Backend.BaseURL)
		return g, g, g, nil
	case "alpaca":
		g := gateway.NewAlpacaGateway(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, cfg.Alpaca.DataURL)
		return g, g, g, nil
	case "sim":
		return nil, nil, nil, fmt.Errorf("gateway_mode sim has no durable account; use backend or alpaca")
	default:
		return nil, nil, nil, fmt.Errorf("unknown gateway_mode %q", cfg.Trading.GatewayMode)
	}
}
