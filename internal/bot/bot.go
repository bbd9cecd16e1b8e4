package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"smc-trading-bot/config"
	"smc-trading-bot/internal/analysis"
	"smc-trading-bot/internal/database"
	"smc-trading-bot/internal/events"
	"smc-trading-bot/internal/market"
	"smc-trading-bot/internal/orders"
	"smc-trading-bot/internal/scanner"
	"smc-trading-bot/internal/signal"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MarketData supplies candles and quotes for the analysis cycle.
type MarketData interface {
	Candles(ctx context.Context, symbol string, tf market.Timeframe, count int) ([]market.Candle, error)
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// TicketLister is implemented by gateways that can report which tickets
// are still open at the venue, enabling reconciliation.
type TicketLister interface {
	OpenTickets() map[int64]struct{}
}

// Bot drives the periodic analysis cycle across the configured symbols.
type Bot struct {
	cfg       *config.Config
	feed      MarketData
	mtf       *analysis.MultiTimeframeAnalyzer
	generator *signal.Generator
	tracker   *orders.Tracker
	gateway   orders.Gateway
	scanner   *scanner.Scanner // nil when disabled
	repo      *database.Repository
	bus       *events.EventBus
	log       zerolog.Logger

	mu       sync.RWMutex
	analyses map[string]analysis.TimeframeAnalysis
	started  time.Time
	cycles   int64

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates the bot. repo and scan may be nil when those subsystems are
// disabled.
func New(cfg *config.Config, feed MarketData, mtf *analysis.MultiTimeframeAnalyzer, gen *signal.Generator, tracker *orders.Tracker, gateway orders.Gateway, scan *scanner.Scanner, repo *database.Repository, bus *events.EventBus, logger zerolog.Logger) *Bot {
	return &Bot{
		cfg:       cfg,
		feed:      feed,
		mtf:       mtf,
		generator: gen,
		tracker:   tracker,
		gateway:   gateway,
		scanner:   scan,
		repo:      repo,
		bus:       bus,
		log:       logger.With().Str("component", "bot").Logger(),
		analyses:  make(map[string]analysis.TimeframeAnalysis),
		stopChan:  make(chan struct{}),
	}
}

// Start restores tracked orders and launches the cycle loop.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.tracker.Restore(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	b.started = time.Now()
	b.mu.Unlock()

	b.log.Info().
		Strs("symbols", b.cfg.TradingConfig.Symbols).
		Int("cycle_interval", b.cfg.TradingConfig.CycleInterval).
		Bool("dry_run", b.cfg.TradingConfig.DryRun).
		Msg("bot started")

	b.wg.Add(1)
	go b.run(ctx)

	return nil
}

// Stop signals the cycle loop to exit and waits for it.
func (b *Bot) Stop() {
	close(b.stopChan)
	b.wg.Wait()
	b.log.Info().Msg("bot stopped")
}

func (b *Bot) run(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(time.Duration(b.cfg.TradingConfig.CycleInterval) * time.Second)
	defer ticker.Stop()

	// First cycle immediately rather than waiting one interval.
	b.runCycle(ctx)

	for {
		select {
		case <-ticker.C:
			b.runCycle(ctx)
		case <-b.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCycle processes every tradeable symbol once, then maintains the
// pending order book.
func (b *Bot) runCycle(ctx context.Context) {
	start := time.Now()
	cycleID := uuid.NewString()

	for _, symbol := range b.tradeableSymbols(ctx) {
		if err := b.processSymbol(ctx, symbol); err != nil {
			b.log.Error().Err(err).Str("cycle_id", cycleID).Str("symbol", symbol).Msg("cycle failed for symbol")
			b.bus.Publish(events.EventError, map[string]interface{}{
				"cycle_id": cycleID,
				"symbol":   symbol,
				"error":    err.Error(),
			})
		}
	}

	b.maintainOrders(ctx)

	b.mu.Lock()
	b.cycles++
	cycles := b.cycles
	b.mu.Unlock()

	b.bus.Publish(events.EventCycleComplete, map[string]interface{}{
		"cycle_id":    cycleID,
		"cycle":       cycles,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// tradeableSymbols returns the configured symbols, ranked and filtered by
// the volatility scanner when it is enabled.
func (b *Bot) tradeableSymbols(ctx context.Context) []string {
	symbols := b.cfg.TradingConfig.Symbols
	if b.scanner == nil {
		return symbols
	}

	candlesBySymbol := make(map[string][]market.Candle, len(symbols))
	for _, symbol := range symbols {
		candles, err := b.feed.Candles(ctx, symbol, market.M5, b.cfg.ScannerConfig.ATRPeriod+b.cfg.ScannerConfig.RSIPeriod+2)
		if err != nil {
			b.log.Warn().Err(err).Str("symbol", symbol).Msg("scanner candle fetch failed")
			continue
		}
		candlesBySymbol[symbol] = candles
	}

	ranked := b.scanner.Scan(candlesBySymbol)
	if len(ranked) == 0 {
		// Nothing passed the volatility filter, fall back to the full list
		// so a quiet session does not silence the engine entirely.
		return symbols
	}

	names := make([]string, len(ranked))
	for i, iv := range ranked {
		names[i] = iv.Symbol
	}
	return names
}

// processSymbol runs one full analysis and synthesis pass for a symbol.
func (b *Bot) processSymbol(ctx context.Context, symbol string) error {
	candles := make(market.CandleSet, len(market.AnalysisTimeframes))
	for _, tf := range market.AnalysisTimeframes {
		bars, err := b.feed.Candles(ctx, symbol, tf, b.cfg.TradingConfig.CandleLimit)
		if err != nil {
			return err
		}
		if err := market.ValidateCandles(bars); err != nil {
			return err
		}
		candles[tf] = bars
	}

	price, err := b.feed.CurrentPrice(ctx, symbol)
	if err != nil {
		return err
	}

	tfAnalysis := b.mtf.Analyze(symbol, candles)

	b.mu.Lock()
	b.analyses[symbol] = tfAnalysis
	b.mu.Unlock()

	sig := b.generator.GenerateFromAnalysis(symbol, tfAnalysis, price)
	if sig == nil {
		return nil
	}

	b.bus.Publish(events.EventSignalGenerated, map[string]interface{}{
		"signal": sig,
	})

	if b.repo != nil {
		if err := b.repo.SaveSignal(ctx, sig); err != nil {
			b.log.Error().Err(err).Str("signal_id", sig.ID).Msg("failed to persist signal")
		}
	}

	ticket, err := b.tracker.Place(ctx, sig, b.cfg.TradingConfig.Volume)
	if err != nil {
		if errors.Is(err, orders.ErrMaxPending) {
			b.log.Info().Str("symbol", symbol).Msg("pending order cap reached, signal skipped")
			b.bus.Publish(events.EventSignalRejected, map[string]interface{}{
				"signal_id": sig.ID,
				"symbol":    symbol,
				"reason":    "max pending orders",
			})
			return nil
		}
		return err
	}

	b.bus.Publish(events.EventOrderPlaced, map[string]interface{}{
		"ticket":    ticket,
		"signal_id": sig.ID,
		"symbol":    symbol,
		"kind":      string(sig.OrderKind),
		"entry":     sig.EntryPrice,
	})

	return nil
}

// maintainOrders expires stale pending orders and reconciles the local
// book against the venue.
func (b *Bot) maintainOrders(ctx context.Context) {
	ordersBefore := b.ordersByTicket()

	for _, ticket := range b.tracker.SweepExpired(ctx, time.Now()) {
		b.publishOrderEvent(ctx, events.EventOrderExpired, ordersBefore, ticket, "expired")
	}

	lister, ok := b.gateway.(TicketLister)
	if !ok {
		return
	}
	ordersBefore = b.ordersByTicket()
	for _, ticket := range b.tracker.Reconcile(ctx, lister.OpenTickets()) {
		b.publishOrderEvent(ctx, events.EventOrderClosed, ordersBefore, ticket, "closed at venue")
	}
}

func (b *Bot) publishOrderEvent(ctx context.Context, eventType events.EventType, known map[int64]orders.PendingOrder, ticket int64, reason string) {
	data := map[string]interface{}{
		"ticket": ticket,
		"reason": reason,
	}
	order, ok := known[ticket]
	if ok {
		data["symbol"] = order.Symbol
	}
	b.bus.Publish(eventType, data)

	if b.repo != nil && ok {
		if err := b.repo.SaveOrderEvent(ctx, order, reason, time.Now()); err != nil {
			b.log.Error().Err(err).Int64("ticket", ticket).Msg("failed to persist order event")
		}
	}
}

func (b *Bot) ordersByTicket() map[int64]orders.PendingOrder {
	byTicket := make(map[int64]orders.PendingOrder)
	for _, o := range b.tracker.Orders() {
		byTicket[o.Ticket] = o
	}
	return byTicket
}

// Status reports bot runtime state for the API.
func (b *Bot) Status() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return map[string]interface{}{
		"running":        !b.started.IsZero(),
		"started_at":     b.started.Format(time.RFC3339),
		"cycles":         b.cycles,
		"symbols":        b.cfg.TradingConfig.Symbols,
		"dry_run":        b.cfg.TradingConfig.DryRun,
		"pending_orders": len(b.tracker.Orders()),
	}
}

// Symbols returns the configured symbol universe.
func (b *Bot) Symbols() []string {
	return b.cfg.TradingConfig.Symbols
}

// Analysis returns the latest cached analysis for a symbol.
func (b *Bot) Analysis(symbol string) (*analysis.TimeframeAnalysis, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	a, ok := b.analyses[symbol]
	if !ok {
		return nil, false
	}
	return &a, true
}

// PendingOrders returns the tracked pending orders.
func (b *Bot) PendingOrders() []orders.PendingOrder {
	return b.tracker.Orders()
}
