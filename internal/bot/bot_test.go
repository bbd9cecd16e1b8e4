package bot

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"smc-trading-bot/config"
	"smc-trading-bot/internal/analysis"
	"smc-trading-bot/internal/events"
	"smc-trading-bot/internal/market"
	"smc-trading-bot/internal/orders"
	"smc-trading-bot/internal/scanner"
	"smc-trading-bot/internal/signal"
)

func newTestBot(cfg *config.Config, scan *scanner.Scanner, bus *events.EventBus) *Bot {
	nop := zerolog.Nop()

	mtf := analysis.NewMultiTimeframeAnalyzer(
		analysis.NewImbalanceDetector(cfg.SMCConfig.MinGapSize),
		analysis.NewStructureAnalyzer(cfg.SMCConfig.SwingLookback),
		analysis.NewZoneDetector(),
		analysis.NewLiquidityAnalyzer(cfg.SMCConfig.SweepThreshold),
		cfg.SMCConfig.ConfluenceConfidence,
		nop,
	)
	gen := signal.NewGenerator(cfg.SMCConfig, mtf, nop)
	gateway := orders.NewLoggingGateway(nop)
	tracker := orders.NewTracker(gateway, nil,
		cfg.OrdersConfig.MaxPendingPerSymbol,
		time.Duration(cfg.OrdersConfig.ExpiryHours)*time.Hour,
		nop)

	return New(cfg, market.NewSimFeed(), mtf, gen, tracker, gateway, scan, nil, bus, nop)
}

// TestRunCycle tests one full cycle over the simulated feed
func TestRunCycle(t *testing.T) {
	cfg := config.Default()
	bus := events.NewEventBus()

	cycles := 0
	bus.Subscribe(events.EventCycleComplete, func(e events.Event) { cycles++ })

	b := newTestBot(cfg, nil, bus)
	b.runCycle(context.Background())

	if cycles != 1 {
		t.Fatalf("expected 1 cycle-complete event, got %d", cycles)
	}

	// Every configured symbol should have a cached analysis.
	for _, symbol := range cfg.TradingConfig.Symbols {
		if _, ok := b.Analysis(symbol); !ok {
			t.Errorf("no cached analysis for %s", symbol)
		}
	}

	status := b.Status()
	if status["cycles"] != int64(1) {
		t.Errorf("status should report 1 cycle, got %v", status["cycles"])
	}
}

// TestTradeableSymbolsWithScanner tests volatility-ranked symbol selection
func TestTradeableSymbolsWithScanner(t *testing.T) {
	cfg := config.Default()
	cfg.ScannerConfig.MinVolatility = 0 // Keep everything

	scan := scanner.New(cfg.ScannerConfig, zerolog.Nop())
	b := newTestBot(cfg, scan, events.NewEventBus())

	symbols := b.tradeableSymbols(context.Background())

	if len(symbols) != len(cfg.TradingConfig.Symbols) {
		t.Fatalf("expected %d symbols, got %d", len(cfg.TradingConfig.Symbols), len(symbols))
	}
	seen := make(map[string]bool)
	for _, s := range symbols {
		seen[s] = true
	}
	for _, s := range cfg.TradingConfig.Symbols {
		if !seen[s] {
			t.Errorf("symbol %s missing from scanner ranking", s)
		}
	}
}

// TestProcessSymbolUnknown tests that a bad symbol surfaces an error
func TestProcessSymbolUnknown(t *testing.T) {
	cfg := config.Default()
	b := newTestBot(cfg, nil, events.NewEventBus())

	if err := b.processSymbol(context.Background(), "DOGE"); err == nil {
		t.Error("expected an error for an unknown symbol")
	}
}

// TestPendingOrdersSnapshot tests the API-facing order accessor
func TestPendingOrdersSnapshot(t *testing.T) {
	cfg := config.Default()
	b := newTestBot(cfg, nil, events.NewEventBus())

	if got := b.PendingOrders(); len(got) != 0 {
		t.Errorf("expected no orders before any cycle, got %d", len(got))
	}
	if got := b.Symbols(); len(got) != len(cfg.TradingConfig.Symbols) {
		t.Errorf("expected %d symbols, got %d", len(cfg.TradingConfig.Symbols), len(got))
	}
}
